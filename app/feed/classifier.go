package feed

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Verdict explains a classification decision.
type Verdict struct {
	Relevant bool
	Matched  string // first allow keyword found
	Vetoed   string // first deny keyword found
	Reason   string
}

// Classifier applies an allow-list / deny-list keyword policy. Matching is
// unanchored substring search on the lowercased haystack.
type Classifier struct {
	allow []string
	deny  []string
}

func NewClassifier(policy Policy) *Classifier {
	return &Classifier{
		allow: normalizeKeywords(policy.Allow),
		deny:  normalizeKeywords(policy.Deny),
	}
}

func (c *Classifier) IsRelevant(item Item) bool {
	return c.Explain(item).Relevant
}

func (c *Classifier) Explain(item Item) Verdict {
	haystack := c.haystack(item)

	for _, deny := range c.deny {
		if strings.Contains(haystack, deny) {
			return Verdict{
				Vetoed: deny,
				Reason: fmt.Sprintf("Excluded: contains '%s'", deny),
			}
		}
	}

	for _, allow := range c.allow {
		if strings.Contains(haystack, allow) {
			return Verdict{Relevant: true, Matched: allow}
		}
	}

	return Verdict{Reason: "Excluded: does not contain any allow keyword"}
}

// Run keeps only relevant items, preserving order.
func (c *Classifier) Run(items []Item) []Item {
	relevant := make([]Item, 0, len(items))
	for _, item := range items {
		if c.IsRelevant(item) {
			relevant = append(relevant, item)
		}
	}
	return relevant
}

func (c *Classifier) haystack(item Item) string {
	// cases.Caser keeps state between calls and is not safe for concurrent use.
	lower := cases.Lower(language.Und)
	return lower.String(strings.Join([]string{item.Title, item.DescriptionClean, item.Categories}, " "))
}
