// Package query filters and summarizes a stored corpus for the read API.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JakeFAU/contest-crawler/internal/contest"
)

// All disables a string filter.
const All = "all"

// Filter narrows a contest list. Zero values match everything.
type Filter struct {
	Country  string
	Category string
	MinValue int
	Limit    int
}

// Stats summarizes a contest list.
type Stats struct {
	Total      int                      `json:"total"`
	TotalValue int                      `json:"totalValue"`
	ByCountry  CountryStats             `json:"byCountry"`
	ByCategory map[contest.Category]int `json:"byCategory"`
}

// CountryStats counts contests per market.
type CountryStats struct {
	FR  int `json:"FR"`
	INT int `json:"INT"`
}

// ParseFilter reads country, category, minValue and limit from query parameters.
func ParseFilter(v url.Values) (Filter, error) {
	f := Filter{
		Country:  v.Get("country"),
		Category: v.Get("category"),
	}
	var err error
	if f.MinValue, err = intParam(v, "minValue"); err != nil {
		return Filter{}, err
	}
	if f.Limit, err = intParam(v, "limit"); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func intParam(v url.Values, key string) (int, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must be >= 0", key)
	}
	return n, nil
}

// Apply returns the contests matching f, in input order, truncated to f.Limit.
func Apply(contests []contest.Contest, f Filter) []contest.Contest {
	country := contest.Country(strings.ToUpper(f.Country))
	out := make([]contest.Contest, 0, len(contests))
	for _, c := range contests {
		if active(f.Country) && c.Country != country {
			continue
		}
		if active(f.Category) && string(c.Category) != f.Category {
			continue
		}
		if f.MinValue > 0 && c.Value < f.MinValue {
			continue
		}
		out = append(out, c)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

func active(v string) bool {
	return v != "" && !strings.EqualFold(v, All)
}

// Summarize computes totals over contests.
func Summarize(contests []contest.Contest) Stats {
	s := Stats{ByCategory: make(map[contest.Category]int)}
	for _, c := range contests {
		s.Total++
		s.TotalValue += c.Value
		switch c.Country {
		case contest.CountryFR:
			s.ByCountry.FR++
		case contest.CountryINT:
			s.ByCountry.INT++
		}
		s.ByCategory[c.Category]++
	}
	return s
}
