package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contest-crawler/internal/contest"
)

func ids(cs []contest.Contest) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestMergeIdentities(t *testing.T) {
	t.Parallel()

	m := Merger{}
	set := []contest.Contest{{ID: "a", Value: 10}, {ID: "b", Value: 30}}

	assert.Equal(t, []string{"b", "a"}, ids(m.Merge(set, nil)))
	assert.Equal(t, []string{"b", "a"}, ids(m.Merge(nil, set)))
	assert.Empty(t, m.Merge(nil, nil))
}

func TestMergeFreshWins(t *testing.T) {
	t.Parallel()

	m := Merger{Key: KeyIdentity}
	existing := []contest.Contest{{ID: "x", Title: "old", Value: 100}, {ID: "y", Value: 50}}
	fresh := []contest.Contest{{ID: "x", Title: "new", Value: 120}, {ID: "z", Value: 70}}

	got := m.Merge(existing, fresh)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"x", "z", "y"}, ids(got))
	assert.Equal(t, "new", got[0].Title)
}

func TestMergeIdempotent(t *testing.T) {
	t.Parallel()

	m := Merger{}
	existing := []contest.Contest{{ID: "a", Value: 5}}
	fresh := []contest.Contest{{ID: "b", Value: 9}, {ID: "a", Value: 6}}

	once := m.Merge(existing, fresh)
	twice := m.Merge(once, fresh)
	assert.Equal(t, once, twice)
}

func TestMergeFuzzyTitleReplacesRescrapedListing(t *testing.T) {
	t.Parallel()

	existing := []contest.Contest{{ID: "src-1-0", Title: "Thermomix TM6", Value: 1499}}
	fresh := []contest.Contest{{ID: "src-2-0", Title: "THERMOMIX TM6", Value: 1399}}

	byID := Merger{Key: KeyIdentity}.Merge(existing, fresh)
	assert.Len(t, byID, 2)

	byTitle := Merger{Key: KeyFuzzyTitle}.Merge(existing, fresh)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "src-2-0", byTitle[0].ID)
}

func TestMergeSortStable(t *testing.T) {
	t.Parallel()

	got := Merger{}.Merge(
		[]contest.Contest{{ID: "a", Value: 1}, {ID: "b", Value: 2}},
		[]contest.Contest{{ID: "c", Value: 1}, {ID: "d", Value: 2}},
	)
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids(got))
}

func TestMergeCorpus(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	prior := contest.Corpus{
		Contests:   []contest.Contest{{ID: "fb-1", Value: 6000}},
		IsFallback: true,
		LastScrape: &contest.RunStats{Found: 3},
	}
	batch := contest.Batch{Contests: []contest.Contest{{ID: "n-1", Value: 10}}, ScrapedAt: at}

	got := Merger{}.MergeCorpus(prior, batch)

	assert.Equal(t, 2, got.Total)
	assert.Equal(t, at, got.ScrapedAt)
	assert.False(t, got.IsFallback)
	assert.Equal(t, []string{"fb-1", "n-1"}, ids(got.Contests))
	assert.Equal(t, prior.LastScrape, got.LastScrape)
}

func TestParseKey(t *testing.T) {
	t.Parallel()

	k, err := ParseKey("")
	require.NoError(t, err)
	assert.Equal(t, KeyIdentity, k)

	k, err = ParseKey("fuzzy_title")
	require.NoError(t, err)
	assert.Equal(t, KeyFuzzyTitle, k)

	_, err = ParseKey("hash")
	assert.Error(t, err)
}
