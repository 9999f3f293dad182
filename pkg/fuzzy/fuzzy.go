// Package fuzzy ranks candidate strings against a typed query, the
// scoring layer the completion engine and workspace-symbol search sit
// on top of.
package fuzzy

import (
	"sort"

	sahilm "github.com/sahilm/fuzzy"
)

// Candidate is one fuzzy-matchable item: Text is what the query is
// matched against, ID identifies it back to the caller's own data
// (a refname, a line number, …) without the matcher needing to know
// what that data is.
type Candidate struct {
	Text string
	ID   string
}

// Match is a scored Candidate, the result of a Rank call.
type Match struct {
	Candidate
	Score int
	// MatchedIndexes are the rune positions in Text that matched the
	// query, for highlighting in the client UI.
	MatchedIndexes []int
}

type candidateSource []Candidate

func (s candidateSource) String(i int) string { return s[i].Text }
func (s candidateSource) Len() int            { return len(s) }

// Rank scores and sorts candidates against query, highest score first,
// ties broken by the candidate's original order (stable sort keeps
// refname-ascending ordering intact for equal scores). An empty query
// returns every candidate unscored, in original order — the "show
// everything, narrow as the user types" case completion relies on.
func Rank(query string, candidates []Candidate) []Match {
	if query == "" {
		out := make([]Match, len(candidates))
		for i, c := range candidates {
			out[i] = Match{Candidate: c}
		}
		return out
	}

	results := sahilm.FindFrom(query, candidateSource(candidates))
	out := make([]Match, len(results))
	for i, r := range results {
		out[i] = Match{
			Candidate:      candidates[r.Index],
			Score:          r.Score,
			MatchedIndexes: r.MatchedIndexes,
		}
	}
	// sahilm/fuzzy already sorts by score descending; stabilize ties by
	// original candidate order so callers can break further ties by
	// refname without the sort undoing it.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
