package feed

import (
	"slices"
)

// TopN is the length of the published digest.
const TopN = 5

type Ranker struct {
	limit int
}

func NewRanker(limit int) *Ranker {
	if limit <= 0 {
		limit = TopN
	}
	return &Ranker{limit: limit}
}

// Run orders items newest first and keeps the first limit of them. Items
// with an invalid date sort as the oldest; equal timestamps keep their
// input order.
func (r *Ranker) Run(items []Item) []Item {
	ranked := slices.Clone(items)

	slices.SortStableFunc(ranked, func(a, b Item) int {
		return b.sortKey().Compare(a.sortKey())
	})

	if len(ranked) > r.limit {
		ranked = ranked[:r.limit]
	}
	return ranked
}
