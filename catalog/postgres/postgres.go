// Package postgres implements catalog.Lookup with PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/retailmedia-labs/audience-agent/catalog"
)

// Lookup implements catalog.Lookup against a products table.
type Lookup struct {
	pool      *pgxpool.Pool
	tableName string
	limit     int
}

// Option configures the lookup.
type Option func(*Lookup)

// WithTableName sets a custom table name.
func WithTableName(name string) Option {
	return func(l *Lookup) {
		l.tableName = name
	}
}

// WithLimit caps the number of search matches returned.
func WithLimit(limit int) Option {
	return func(l *Lookup) {
		l.limit = limit
	}
}

// New creates a PostgreSQL catalog lookup.
func New(pool *pgxpool.Pool, opts ...Option) *Lookup {
	l := &Lookup{
		pool:      pool,
		tableName: "products",
		limit:     catalog.DefaultSearchLimit,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetBySKU returns the single record with the given SKU.
func (l *Lookup) GetBySKU(ctx context.Context, sku string) (*catalog.ProductRecord, error) {
	// Name and categories may be NULL in source data.
	query := fmt.Sprintf(`
		SELECT sku, COALESCE(name, ''), COALESCE(buyer_category, ''), COALESCE(product_category, '')
		FROM %s
		WHERE sku = $1
	`, l.tableName)

	row := l.pool.QueryRow(ctx, query, sku)

	var rec catalog.ProductRecord
	err := row.Scan(&rec.SKU, &rec.Name, &rec.BuyerCategory, &rec.ProductCategory)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning product: %w", err)
	}

	return &rec, nil
}

// Search returns a ranked result set for a name fragment. Ranking is
// computed in SQL: exact name match above prefix match above substring
// match.
func (l *Lookup) Search(ctx context.Context, nameFragment string) (*catalog.SearchResults, error) {
	// The fragment is user text: LIKE metacharacters are escaped so it
	// matches literally, and the exact-match rank compares the raw value.
	query := fmt.Sprintf(`
		SELECT sku, COALESCE(name, ''), COALESCE(buyer_category, ''), COALESCE(product_category, '')
		FROM %s
		WHERE lower(name) LIKE '%%' || lower($1) || '%%' ESCAPE '\'
		ORDER BY
			CASE
				WHEN lower(name) = lower($2) THEN 3
				WHEN lower(name) LIKE lower($1) || '%%' ESCAPE '\' THEN 2
				ELSE 1
			END DESC,
			name
		LIMIT $3
	`, l.tableName)

	rows, err := l.pool.Query(ctx, query, catalog.EscapeLike(nameFragment), nameFragment, l.limit)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	defer rows.Close()

	var matches []catalog.ProductRecord
	for rows.Next() {
		var rec catalog.ProductRecord
		if err := rows.Scan(&rec.SKU, &rec.Name, &rec.BuyerCategory, &rec.ProductCategory); err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading product rows: %w", err)
	}

	if len(matches) == 0 {
		return nil, catalog.ErrNotFound
	}

	return catalog.NewSearchResults(nameFragment, matches), nil
}
