// Package sqlite implements catalog.Lookup over a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/retailmedia-labs/audience-agent/catalog"
)

// Lookup implements catalog.Lookup against a SQLite products table.
type Lookup struct {
	db    *sql.DB
	limit int
}

// Option configures the lookup.
type Option func(*Lookup)

// WithLimit caps the number of search matches returned.
func WithLimit(limit int) Option {
	return func(l *Lookup) {
		l.limit = limit
	}
}

// Open opens the SQLite database at path and ensures the products
// table exists.
func Open(path string, opts ...Option) (*Lookup, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	l := &Lookup{
		db:    db,
		limit: catalog.DefaultSearchLimit,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return l, nil
}

func (l *Lookup) initSchema() error {
	query := `CREATE TABLE IF NOT EXISTS products (
		sku TEXT PRIMARY KEY,
		name TEXT,
		buyer_category TEXT,
		product_category TEXT
	);`
	if _, err := l.db.Exec(query); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (l *Lookup) Close() error {
	return l.db.Close()
}

// Insert adds a record, replacing any existing record with the same SKU.
func (l *Lookup) Insert(ctx context.Context, rec catalog.ProductRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO products (sku, name, buyer_category, product_category)
		VALUES (?, ?, ?, ?)
	`, rec.SKU, rec.Name, rec.BuyerCategory, rec.ProductCategory)
	if err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}

// GetBySKU returns the single record with the given SKU.
func (l *Lookup) GetBySKU(ctx context.Context, sku string) (*catalog.ProductRecord, error) {
	// Name and categories may be NULL in source data.
	row := l.db.QueryRowContext(ctx, `
		SELECT sku, COALESCE(name, ''), COALESCE(buyer_category, ''), COALESCE(product_category, '')
		FROM products
		WHERE sku = ?
	`, sku)

	var rec catalog.ProductRecord
	err := row.Scan(&rec.SKU, &rec.Name, &rec.BuyerCategory, &rec.ProductCategory)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning product: %w", err)
	}

	return &rec, nil
}

// Search returns a ranked result set for a name fragment. Ranking
// mirrors the postgres backend: exact above prefix above substring.
func (l *Lookup) Search(ctx context.Context, nameFragment string) (*catalog.SearchResults, error) {
	// The fragment is user text: LIKE metacharacters are escaped so it
	// matches literally, and the exact-match rank compares the raw value.
	rows, err := l.db.QueryContext(ctx, `
		SELECT sku, COALESCE(name, ''), COALESCE(buyer_category, ''), COALESCE(product_category, '')
		FROM products
		WHERE lower(name) LIKE '%' || lower(?1) || '%' ESCAPE '\'
		ORDER BY
			CASE
				WHEN lower(name) = lower(?2) THEN 3
				WHEN lower(name) LIKE lower(?1) || '%' ESCAPE '\' THEN 2
				ELSE 1
			END DESC,
			name
		LIMIT ?3
	`, catalog.EscapeLike(nameFragment), nameFragment, l.limit)
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
