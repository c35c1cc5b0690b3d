// Package catalog resolves product identifiers and name fragments to
// catalog records, grouping ranked search results by buyer and product
// category.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrNotFound indicates the query matched no catalog entry. Lookup
// implementations return it for both by-SKU misses and empty searches
// so callers can tell an empty result from a transport failure.
var ErrNotFound = errors.New("product not found")

// DefaultSearchLimit caps how many matches a search returns.
const DefaultSearchLimit = 10

// ProductRecord is one catalog entry. SKU uniquely identifies the
// entry; name and categories may be empty if unset in source data.
type ProductRecord struct {
	SKU             string `json:"sku"`
	Name            string `json:"name"`
	BuyerCategory   string `json:"buyerCategory,omitempty"`
	ProductCategory string `json:"productCategory,omitempty"`
}

// SearchResults is the grouped, ranked output of a catalog name search.
type SearchResults struct {
	// Query is the original search string.
	Query string `json:"query"`

	// TotalCount is the number of matches found.
	TotalCount int `json:"totalCount"`

	// Matches is ordered by relevance, best first.
	Matches []ProductRecord `json:"matches"`

	// ByBuyerCategory and ByProductCategory partition Matches by the
	// relevant category field. The union of values in each grouping
	// equals Matches exactly.
	ByBuyerCategory   map[string][]ProductRecord `json:"byBuyerCategory"`
	ByProductCategory map[string][]ProductRecord `json:"byProductCategory"`

	// UniqueBuyerCategories and UniqueProductCategories are the sorted
	// distinct category labels appearing in Matches; they equal the key
	// sets of the corresponding groupings.
	UniqueBuyerCategories   []string `json:"uniqueBuyerCategories"`
	UniqueProductCategories []string `json:"uniqueProductCategories"`
}

// Lookup resolves products by exact SKU or by name fragment.
type Lookup interface {
	// GetBySKU returns the single record with the given SKU, or
	// ErrNotFound.
	GetBySKU(ctx context.Context, sku string) (*ProductRecord, error)

	// Search returns a ranked result set for a name fragment, or
	// ErrNotFound when nothing matches.
	Search(ctx context.Context, query string) (*SearchResults, error)
}

// NewSearchResults derives the grouped result set from an ordered match
// slice. Groupings and unique category sets are computed here, never
// stored independently, so the partition invariants hold by
// construction.
func NewSearchResults(query string, matches []ProductRecord) *SearchResults {
	byBuyer := make(map[string][]ProductRecord)
	byProduct := make(map[string][]ProductRecord)
	for _, rec := range matches {
		byBuyer[rec.BuyerCategory] = append(byBuyer[rec.BuyerCategory], rec)
		byProduct[rec.ProductCategory] = append(byProduct[rec.ProductCategory], rec)
	}

	return &SearchResults{
		Query:                   query,
		TotalCount:              len(matches),
		Matches:                 matches,
		ByBuyerCategory:         byBuyer,
		ByProductCategory:       byProduct,
		UniqueBuyerCategories:   sortedKeys(byBuyer),
		UniqueProductCategories: sortedKeys(byProduct),
	}
}

func sortedKeys(groups map[string][]ProductRecord) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// likeEscaper escapes the metacharacters SQL LIKE gives special
// meaning, with backslash as the escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes s for literal use in a SQL LIKE pattern. SQL
// backends apply it to user-derived name fragments so `%` and `_` in a
// query match themselves, the same way MatchRank treats them.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// MatchRank scores how well a product name matches a query:
// 3 for an exact match, 2 for a prefix match, 1 for a substring match,
// 0 for no match. Comparison is case-insensitive.
func MatchRank(name, query string) int {
	n := strings.ToLower(strings.TrimSpace(name))
	q := strings.ToLower(strings.TrimSpace(query))
	switch {
	case q == "" || n == "":
		return 0
	case n == q:
		return 3
	case strings.HasPrefix(n, q):
		return 2
	case strings.Contains(n, q):
		return 1
	}
	return 0
}
