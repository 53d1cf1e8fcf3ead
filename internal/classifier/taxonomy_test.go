package classifier

import (
	"slices"
	"testing"
)

func TestDefaultTaxonomy(t *testing.T) {
	tax := DefaultTaxonomy()

	want := []string{
		"Food", "Career", "Investment", "Education", "Entertainment",
		"Health & Fitness", "Technology", "Travel", "Lifestyle", Other,
	}
	if got := tax.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	for _, c := range tax.Categories() {
		if len(c.Keywords) == 0 {
			t.Errorf("category %s has no keywords", c.Name)
		}
	}
}

func TestNewTaxonomy(t *testing.T) {
	t.Run("normalizes keywords", func(t *testing.T) {
		tax, err := NewTaxonomy(Category{Name: "Music", Keywords: []string{" Song ", "song", "", "BAND"}})
		if err != nil {
			t.Fatalf("NewTaxonomy() error = %v", err)
		}
		got := tax.Categories()[0].Keywords
		if !slices.Equal(got, []string{"song", "band"}) {
			t.Errorf("keywords = %v", got)
		}
	})

	tests := []struct {
		name       string
		categories []Category
	}{
		{"empty name", []Category{{Name: " ", Keywords: []string{"a"}}}},
		{"reserved name", []Category{{Name: "other", Keywords: []string{"a"}}}},
		{"duplicate name", []Category{{Name: "A", Keywords: []string{"a"}}, {Name: "a", Keywords: []string{"b"}}}},
		{"no keywords", []Category{{Name: "A", Keywords: []string{" "}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTaxonomy(tt.categories...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTaxonomyLookup(t *testing.T) {
	tax := DefaultTaxonomy()

	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"Career", "Career", true},
		{"health & fitness", "Health & Fitness", true},
		{" other ", Other, true},
		{"Cooking", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := tax.Canonical(tt.input)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Canonical(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
			}
			if tax.Contains(tt.input) != tt.ok {
				t.Errorf("Contains(%q) disagrees with Canonical", tt.input)
			}
		})
	}

	if tax.Rank("Food") != 0 || tax.Rank(Other) != len(tax.Categories()) {
		t.Error("unexpected rank ordering")
	}
}
