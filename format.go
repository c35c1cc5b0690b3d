package audience

import (
	"context"
	"fmt"
	"strings"

	"github.com/retailmedia-labs/audience-agent/catalog"
)

// tableRowLimit bounds the rendered result table.
const tableRowLimit = 10

// formatResults renders the stored search results as a summary plus a
// markdown table. It only reads SearchResults; the result set itself is
// never mutated here.
func (e *Engine) formatResults(ctx context.Context, state *State) (Stage, error) {
	results := state.SearchResults
	if results == nil {
		return state.CurrentStage, NewAgentError(ErrCodeInternal, "format stage reached without search results", nil)
	}

	reply, err := e.llm.Chat(ctx, e.prompts.TableFormat, buildFormatInput(results), nil)
	if err != nil {
		return state.CurrentStage, NewLLMError("table formatting failed", err)
	}
	state.AppendAssistant(reply)

	return StageTerminal, nil
}

// buildFormatInput serializes the result set for the table-formatting
// prompt, bounded to tableRowLimit product lines. For an unchanged
// result set this always produces the same counts and category sets.
func buildFormatInput(results *catalog.SearchResults) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Buyer Categories: %s\n", strings.Join(results.UniqueBuyerCategories, ", "))
	fmt.Fprintf(&sb, "Product Categories: %s\n", strings.Join(results.UniqueProductCategories, ", "))
	fmt.Fprintf(&sb, "Total Results: %d\n", results.TotalCount)

	sb.WriteString("Products:\n")
	rows := results.Matches
	if len(rows) > tableRowLimit {
		rows = rows[:tableRowLimit]
	}
	for _, rec := range rows {
		fmt.Fprintf(&sb, "- %s (SKU: %s, Buyer Category: %s, Product Category: %s)\n",
			rec.Name, rec.SKU, rec.BuyerCategory, rec.ProductCategory)
	}

	return sb.String()
}
