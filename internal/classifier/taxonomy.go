package classifier

import (
	"fmt"
	"strings"
)

// Other is the fallback category for playlists that match no keyword.
const Other = "Other"

// Category is a named group of keyword patterns.
type Category struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// Taxonomy is the ordered, immutable set of categories used for classification.
type Taxonomy struct {
	categories []Category
	index      map[string]int
}

// NewTaxonomy validates and normalizes categories into a [Taxonomy].
//
// Names must be unique (case-insensitively) and must not be [Other]. Keywords are lowercased, trimmed and
// de-duplicated, keeping their first occurrence.
func NewTaxonomy(categories ...Category) (*Taxonomy, error) {
	t := &Taxonomy{index: make(map[string]int, len(categories))}

	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		key := strings.ToLower(name)
		switch {
		case name == "":
			return nil, fmt.Errorf("taxonomy: category name is empty")
		case key == strings.ToLower(Other):
			return nil, fmt.Errorf("taxonomy: %q is reserved for the fallback", Other)
		}
		if _, dup := t.index[key]; dup {
			return nil, fmt.Errorf("taxonomy: duplicate category %q", name)
		}

		seen := make(map[string]bool, len(c.Keywords))
		keywords := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			keywords = append(keywords, kw)
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("taxonomy: category %q has no keywords", name)
		}

		t.index[key] = len(t.categories)
		t.categories = append(t.categories, Category{Name: name, Keywords: keywords})
	}

	return t, nil
}

// MustTaxonomy is [NewTaxonomy] for static definitions; it panics on error.
func MustTaxonomy(categories ...Category) *Taxonomy {
	t, err := NewTaxonomy(categories...)
	if err != nil {
		panic(err)
	}
	return t
}

// Categories returns a copy of the scored categories in taxonomy order (without [Other]).
func (t *Taxonomy) Categories() []Category {
	out := make([]Category, len(t.categories))
	for i, c := range t.categories {
		out[i] = Category{Name: c.Name, Keywords: append([]string(nil), c.Keywords...)}
	}
	return out
}

// Names returns every valid category name in taxonomy order, ending with [Other].
func (t *Taxonomy) Names() []string {
	names := make([]string, 0, len(t.categories)+1)
	for _, c := range t.categories {
		names = append(names, c.Name)
	}
	return append(names, Other)
}

// Canonical returns the taxonomy's spelling of name, matched case-insensitively, and whether it exists.
// [Other] is always a member.
func (t *Taxonomy) Canonical(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == strings.ToLower(Other) {
		return Other, true
	}
	i, ok := t.index[key]
	if !ok {
		return "", false
	}
	return t.categories[i].Name, true
}

// Contains reports whether name is a category of the taxonomy, [Other] included.
func (t *Taxonomy) Contains(name string) bool {
	_, ok := t.Canonical(name)
	return ok
}

// Rank returns name's position in taxonomy order. [Other] and unknown names sort last.
func (t *Taxonomy) Rank(name string) int {
	if i, ok := t.index[strings.ToLower(name)]; ok {
		return i
	}
	return len(t.categories)
}
