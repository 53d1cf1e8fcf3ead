package classifier

import (
	"strings"

	"github.com/desertthunder/ytcat/internal/models"
)

// Classifier maps playlist text to a category of its [Taxonomy].
//
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	taxonomy *Taxonomy
}

// New creates a [Classifier] for taxonomy. A nil taxonomy uses [DefaultTaxonomy].
func New(taxonomy *Taxonomy) *Classifier {
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	return &Classifier{taxonomy: taxonomy}
}

// Taxonomy returns the classifier's taxonomy.
func (c *Classifier) Taxonomy() *Taxonomy {
	return c.taxonomy
}

// Score is one category's keyword hits for a piece of text.
type Score struct {
	Category string   `json:"category"`
	Matched  []string `json:"matched"`
}

// Value is the number of distinct keywords matched.
func (s Score) Value() int {
	return len(s.Matched)
}

// Result explains a classification.
type Result struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
	// Matched lists the winning category's keywords found in the text.
	Matched []string `json:"matched"`
	// Tied is set when another category reached the same score and lost on taxonomy order.
	Tied bool `json:"tied"`
	// Scores holds every category with a non-zero score, in taxonomy order.
	Scores []Score `json:"scores"`
}

const confidenceScale = 5.0

// Confidence scales the winning score into [0, 1].
func (r Result) Confidence() float64 {
	return min(float64(r.Score)/confidenceScale, 1)
}

// NeedsReview reports whether a person should double check the result: nothing matched, the win came from the
// tie-break, or the confidence is low.
func (r Result) NeedsReview() bool {
	return r.Category == Other || r.Tied || r.Confidence() < 0.3
}

// MatchText builds the text keywords are searched in.
func MatchText(title, description string) string {
	return strings.ToLower(title) + " " + strings.ToLower(description)
}

// Classify returns the category for p's title and description.
func (c *Classifier) Classify(p models.Playlist) string {
	return c.ClassifyText(p.Title, p.Description)
}

// ClassifyText returns the category for a title and description.
func (c *Classifier) ClassifyText(title, description string) string {
	return c.ExplainText(title, description).Category
}

// Explain classifies p and reports how the decision was reached.
func (c *Classifier) Explain(p models.Playlist) Result {
	return c.ExplainText(p.Title, p.Description)
}

// ExplainText classifies a title and description and reports how the decision was reached.
func (c *Classifier) ExplainText(title, description string) Result {
	text := MatchText(title, description)
	result := Result{Category: Other}

	for _, cat := range c.taxonomy.categories {
		var matched []string
		for _, kw := range cat.Keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}

		result.Scores = append(result.Scores, Score{Category: cat.Name, Matched: matched})

		switch {
		case len(matched) > result.Score:
			result.Category = cat.Name
			result.Score = len(matched)
			result.Matched = matched
			result.Tied = false
		case len(matched) == result.Score:
			// earlier category keeps the win
			result.Tied = true
		}
	}

	return result
}
