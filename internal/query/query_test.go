package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contest-crawler/internal/contest"
)

func sample() []contest.Contest {
	return []contest.Contest{
		{ID: "a", Value: 2000, Country: contest.CountryFR, Category: contest.CategoryHighTech},
		{ID: "b", Value: 1500, Country: contest.CountryINT, Category: contest.CategoryHighTech},
		{ID: "c", Value: 900, Country: contest.CountryFR, Category: contest.CategoryVoyage},
		{ID: "d", Value: 100, Country: contest.CountryFR, Category: contest.CategoryAutre},
	}
}

func ids(cs []contest.Contest) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "no filter", filter: Filter{}, want: []string{"a", "b", "c", "d"}},
		{name: "all keyword", filter: Filter{Country: "all", Category: "all"}, want: []string{"a", "b", "c", "d"}},
		{name: "country lower case", filter: Filter{Country: "fr"}, want: []string{"a", "c", "d"}},
		{name: "category", filter: Filter{Category: "High-Tech"}, want: []string{"a", "b"}},
		{name: "min value", filter: Filter{MinValue: 900}, want: []string{"a", "b", "c"}},
		{name: "limit after filters", filter: Filter{Country: "FR", Limit: 2}, want: []string{"a", "c"}},
		{name: "no match", filter: Filter{Country: "US"}, want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ids(Apply(sample(), tc.filter)))
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize(sample())

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 4500, s.TotalValue)
	assert.Equal(t, CountryStats{FR: 3, INT: 1}, s.ByCountry)
	assert.Equal(t, 2, s.ByCategory[contest.CategoryHighTech])
	assert.Equal(t, 1, s.ByCategory[contest.CategoryAutre])
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	s := Summarize(nil)
	assert.Zero(t, s.Total)
	assert.NotNil(t, s.ByCategory)
}

func TestParseFilter(t *testing.T) {
	t.Parallel()

	f, err := ParseFilter(url.Values{
		"country":  {"int"},
		"category": {"Voyage"},
		"minValue": {"500"},
		"limit":    {"10"},
	})
	require.NoError(t, err)
	assert.Equal(t, Filter{Country: "int", Category: "Voyage", MinValue: 500, Limit: 10}, f)

	_, err = ParseFilter(url.Values{"minValue": {"lots"}})
	require.Error(t, err)
	_, err = ParseFilter(url.Values{"limit": {"-1"}})
	require.Error(t, err)
}
