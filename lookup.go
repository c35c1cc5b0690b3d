package audience

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/retailmedia-labs/audience-agent/catalog"
)

// lookupProduct searches the catalog for the identified product.
// Catalog failures never escape this stage as errors: not-found ends
// the conversation with an apology, and a service failure routes back
// to identification so the user can retry.
func (e *Engine) lookupProduct(ctx context.Context, state *State) (Stage, error) {
	results, err := e.catalog.Search(ctx, state.ProductName)
	if errors.Is(err, catalog.ErrNotFound) {
		reply, llmErr := e.llm.Chat(ctx, e.prompts.NotFound,
			fmt.Sprintf("Product: %s", state.ProductName), nil)
		if llmErr != nil {
			return state.CurrentStage, NewLLMError("not-found response generation failed", llmErr)
		}
		state.AppendAssistant(reply)
		return StageTerminal, nil
	}
	if err != nil {
		e.logger.Warn("catalog search failed",
			"product", state.ProductName,
			"error", err,
		)
		reply, llmErr := e.llm.Chat(ctx, e.prompts.LookupRetry,
			fmt.Sprintf("Product: %s", state.ProductName), nil)
		if llmErr != nil {
			return state.CurrentStage, NewLLMError("retry response generation failed", llmErr)
		}
		state.AppendAssistant(reply)
		return StageIdentifyProduct, nil
	}

	state.SearchResults = results
	// Category labels from the top-ranked match.
	if len(results.Matches) > 0 {
		state.BuyerCategory = results.Matches[0].BuyerCategory
		state.ProductCategory = results.Matches[0].ProductCategory
	}

	reply, err := e.llm.Chat(ctx, e.prompts.Summary,
		buildSummaryInput(state.ProductName, results), nil)
	if err != nil {
		return state.CurrentStage, NewLLMError("summary generation failed", err)
	}
	state.AppendAssistant(reply)

	return StageFormatResults, nil
}

// buildSummaryInput serializes the search outcome for the summary
// prompt.
func buildSummaryInput(productName string, results *catalog.SearchResults) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Product Name: %s\n", productName)
	fmt.Fprintf(&sb, "Total Results: %d\n", results.TotalCount)
	fmt.Fprintf(&sb, "Buyer Categories: %s\n", strings.Join(results.UniqueBuyerCategories, ", "))
	fmt.Fprintf(&sb, "Product Categories: %s\n", strings.Join(results.UniqueProductCategories, ", "))
	return sb.String()
}
