package catalog

import (
	"context"
	"sort"
)

// MemoryLookup is an in-memory catalog, used in tests and local
// development.
type MemoryLookup struct {
	records []ProductRecord
	limit   int
}

// MemoryOption configures a MemoryLookup.
type MemoryOption func(*MemoryLookup)

// WithLimit caps the number of search matches returned.
func WithLimit(limit int) MemoryOption {
	return func(m *MemoryLookup) {
		m.limit = limit
	}
}

// NewMemoryLookup creates an in-memory catalog over the given records.
func NewMemoryLookup(records []ProductRecord, opts ...MemoryOption) *MemoryLookup {
	m := &MemoryLookup{
		records: records,
		limit:   DefaultSearchLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetBySKU returns the record with the given SKU.
func (m *MemoryLookup) GetBySKU(ctx context.Context, sku string) (*ProductRecord, error) {
	for _, rec := range m.records {
		if rec.SKU == sku {
			found := rec
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// Search returns a ranked result set for a name fragment.
func (m *MemoryLookup) Search(ctx context.Context, query string) (*SearchResults, error) {
	type ranked struct {
		rec  ProductRecord
		rank int
	}

	var hits []ranked
	for _, rec := range m.records {
		if r := MatchRank(rec.Name, query); r > 0 {
			hits = append(hits, ranked{rec: rec, rank: r})
		}
	}
	if len(hits) == 0 {
		return nil, ErrNotFound
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank > hits[j].rank
		}
		return hits[i].rec.Name < hits[j].rec.Name
	})

	if m.limit > 0 && len(hits) > m.limit {
		hits = hits[:m.limit]
	}

	matches := make([]ProductRecord, len(hits))
	for i, h := range hits {
		matches[i] = h.rec
	}

	return NewSearchResults(query, matches), nil
}
