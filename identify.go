package audience

import (
	"context"
	"fmt"
	"strings"
)

// productExtraction is the structured-extraction schema for product
// identification.
type productExtraction struct {
	Mentioned   bool   `json:"mentioned"`
	ProductName string `json:"product_name"`
}

// identifyProduct extracts the product the user wants audiences for
// from their most recent utterance. An extraction with no usable name
// re-prompts; Mentioned true with an empty name counts as no usable
// name, never as a product.
func (e *Engine) identifyProduct(ctx context.Context, state *State) (Stage, error) {
	lastUser := state.LastUser()
	if lastUser == "" {
		// Nothing to process; the driver normally prevents this.
		return StageTerminal, nil
	}

	var extraction productExtraction
	if err := e.llm.ChatJSON(ctx, e.prompts.Extraction, lastUser, nil, &extraction); err != nil {
		return state.CurrentStage, NewLLMError("product extraction failed", err)
	}

	name := strings.TrimSpace(extraction.ProductName)
	if name == "" {
		reply, err := e.llm.Chat(ctx, e.prompts.Clarification, lastUser, nil)
		if err != nil {
			return state.CurrentStage, NewLLMError("clarification generation failed", err)
		}
		state.AppendAssistant(reply)
		return StageIdentifyProduct, nil
	}

	state.ProductName = name

	reply, err := e.llm.Chat(ctx, e.prompts.Confirmation,
		fmt.Sprintf("Product: %s", name), nil)
	if err != nil {
		return state.CurrentStage, NewLLMError("confirmation generation failed", err)
	}
	state.AppendAssistant(reply)

	return StageLookupProduct, nil
}
