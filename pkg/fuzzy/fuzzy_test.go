package fuzzy_test

import (
	"testing"

	"github.com/atomicobject/moxide/pkg/fuzzy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank_OrdersByScore(t *testing.T) {
	candidates := []fuzzy.Candidate{
		{Text: "Projects/Roadmap", ID: "a"},
		{Text: "Projects/Retro", ID: "b"},
		{Text: "Archive/Old Roadmap", ID: "c"},
	}

	matches := fuzzy.Rank("road", candidates)
	require.NotEmpty(t, matches)
	assert.Equal(t, "Projects/Roadmap", matches[0].Text)
}

func TestRank_EmptyQueryReturnsAllUnscored(t *testing.T) {
	candidates := []fuzzy.Candidate{{Text: "A"}, {Text: "B"}}
	matches := fuzzy.Rank("", candidates)
	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].Score)
}

func TestRank_NoMatchExcluded(t *testing.T) {
	candidates := []fuzzy.Candidate{{Text: "Alpha"}, {Text: "Beta"}}
	matches := fuzzy.Rank("zzz", candidates)
	assert.Empty(t, matches)
}
