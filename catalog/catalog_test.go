package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func sampleRecords() []ProductRecord {
	return []ProductRecord{
		{SKU: "SKU-1", Name: "Trail Runner 5", BuyerCategory: "Outdoor Enthusiasts", ProductCategory: "Running Shoes"},
		{SKU: "SKU-2", Name: "Trail Runner 5 GTX", BuyerCategory: "Outdoor Enthusiasts", ProductCategory: "Running Shoes"},
		{SKU: "SKU-3", Name: "Trail Jacket", BuyerCategory: "Hikers", ProductCategory: "Outerwear"},
		{SKU: "SKU-4", Name: "City Sneaker", BuyerCategory: "Commuters", ProductCategory: "Sneakers"},
	}
}

func TestMatchRank(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"Trail Runner 5", "Trail Runner 5", 3},
		{"Trail Runner 5", "trail runner 5", 3},
		{"Trail Runner 5 GTX", "Trail Runner 5", 2},
		{"Trail Runner 5", "Runner", 1},
		{"City Sneaker", "Trail", 0},
		{"Trail Runner 5", "", 0},
		{"", "Trail", 0},
	}

	for _, tt := range tests {
		if got := MatchRank(tt.name, tt.query); got != tt.want {
			t.Errorf("MatchRank(%q, %q) = %d, want %d", tt.name, tt.query, got, tt.want)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Trail Runner 5", "Trail Runner 5"},
		{"100% Cotton", `100\% Cotton`},
		{"snake_case", `snake\_case`},
		{`back\slash`, `back\\slash`},
		{`%_\`, `\%\_\\`},
	}

	for _, tt := range tests {
		if got := EscapeLike(tt.in); got != tt.want {
			t.Errorf("EscapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewSearchResults(t *testing.T) {
	results := NewSearchResults("trail", sampleRecords()[:3])

	if results.TotalCount != 3 {
		t.Errorf("expected total 3, got %d", results.TotalCount)
	}

	// Groupings partition the matches exactly.
	grouped := 0
	for _, recs := range results.ByBuyerCategory {
		grouped += len(recs)
	}
	if grouped != len(results.Matches) {
		t.Errorf("buyer grouping holds %d records, matches hold %d", grouped, len(results.Matches))
	}
	grouped = 0
	for _, recs := range results.ByProductCategory {
		grouped += len(recs)
	}
	if grouped != len(results.Matches) {
		t.Errorf("product grouping holds %d records, matches hold %d", grouped, len(results.Matches))
	}

	// Unique category lists equal the grouping key sets, sorted.
	if len(results.UniqueBuyerCategories) != len(results.ByBuyerCategory) {
		t.Error("unique buyer categories diverge from grouping keys")
	}
	for _, cat := range results.UniqueBuyerCategories {
		if _, ok := results.ByBuyerCategory[cat]; !ok {
			t.Errorf("unique buyer category %q missing from grouping", cat)
		}
	}
	want := []string{"Hikers", "Outdoor Enthusiasts"}
	for i, cat := range results.UniqueBuyerCategories {
		if cat != want[i] {
			t.Errorf("expected sorted categories %v, got %v", want, results.UniqueBuyerCategories)
			break
		}
	}
}

func TestMemoryLookupSearch(t *testing.T) {
	ctx := context.Background()
	lookup := NewMemoryLookup(sampleRecords())

	t.Run("ranks exact over prefix over substring", func(t *testing.T) {
		results, err := lookup.Search(ctx, "Trail Runner 5")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if results.TotalCount != 2 {
			t.Fatalf("expected 2 matches, got %d", results.TotalCount)
		}
		if results.Matches[0].SKU != "SKU-1" {
			t.Errorf("expected exact match first, got %q", results.Matches[0].Name)
		}
		if results.Matches[1].SKU != "SKU-2" {
			t.Errorf("expected prefix match second, got %q", results.Matches[1].Name)
		}
	})

	t.Run("zero matches return ErrNotFound", func(t *testing.T) {
		_, err := lookup.Search(ctx, "Lawnmower")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("limit caps matches but ranking survives", func(t *testing.T) {
		var records []ProductRecord
		for i := 0; i < 20; i++ {
			records = append(records, ProductRecord{
				SKU:  fmt.Sprintf("SKU-%02d", i),
				Name: fmt.Sprintf("Widget %02d", i),
			})
		}
		records = append(records, ProductRecord{SKU: "SKU-X", Name: "Widget"})

		limited := NewMemoryLookup(records, WithLimit(5))
		results, err := limited.Search(ctx, "Widget")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if results.TotalCount != 5 {
			t.Errorf("expected 5 matches, got %d", results.TotalCount)
		}
		if results.Matches[0].SKU != "SKU-X" {
			t.Errorf("expected exact match first, got %q", results.Matches[0].Name)
		}
	})
}

func TestMemoryLookupGetBySKU(t *testing.T) {
	ctx := context.Background()
	lookup := NewMemoryLookup(sampleRecords())

	rec, err := lookup.GetBySKU(ctx, "SKU-3")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if rec.Name != "Trail Jacket" {
		t.Errorf("expected Trail Jacket, got %q", rec.Name)
	}

	if _, err := lookup.GetBySKU(ctx, "SKU-404"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}
