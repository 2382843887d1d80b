// Package merge folds a fresh batch into the persisted corpus.
package merge

import (
	"fmt"
	"time"

	"github.com/JakeFAU/contest-crawler/internal/aggregator"
	"github.com/JakeFAU/contest-crawler/internal/contest"
)

// Key selects how records are matched across runs.
type Key string

const (
	// KeyIdentity matches records by ID. Because IDs embed the scrape time,
	// re-scraped listings accumulate as new records.
	KeyIdentity Key = "identity"
	// KeyFuzzyTitle matches records by their fuzzy title key, so a re-scraped
	// listing replaces its earlier version.
	KeyFuzzyTitle Key = "fuzzy_title"
)

// ParseKey validates a configured key name. Empty means KeyIdentity.
func ParseKey(s string) (Key, error) {
	switch Key(s) {
	case "", KeyIdentity:
		return KeyIdentity, nil
	case KeyFuzzyTitle:
		return KeyFuzzyTitle, nil
	default:
		return "", fmt.Errorf("unknown merge key %q", s)
	}
}

// Merger combines record sets.
type Merger struct {
	Key         Key
	DedupPrefix int
}

// Merge overlays fresh onto existing. On key collision the fresh record wins and
// takes the slot of the record it replaces. The result is sorted by descending value.
func (m Merger) Merge(existing, fresh []contest.Contest) []contest.Contest {
	index := make(map[string]int, len(existing)+len(fresh))
	out := make([]contest.Contest, 0, len(existing)+len(fresh))
	put := func(c contest.Contest) {
		k := m.key(c)
		if i, ok := index[k]; ok {
			out[i] = c
			return
		}
		index[k] = len(out)
		out = append(out, c)
	}
	for _, c := range existing {
		put(c)
	}
	for _, c := range fresh {
		put(c)
	}
	aggregator.SortByValue(out)
	return out
}

// MergeCorpus merges batch into existing and refreshes the corpus bookkeeping.
// The result is never a fallback corpus.
func (m Merger) MergeCorpus(existing contest.Corpus, batch contest.Batch) contest.Corpus {
	merged := m.Merge(existing.Contests, batch.Contests)
	scrapedAt := batch.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now().UTC()
	}
	return contest.Corpus{
		Contests:   merged,
		ScrapedAt:  scrapedAt,
		Total:      len(merged),
		LastScrape: existing.LastScrape,
	}
}

func (m Merger) key(c contest.Contest) string {
	if m.Key == KeyFuzzyTitle {
		prefix := m.DedupPrefix
		if prefix <= 0 {
			prefix = aggregator.DefaultDedupPrefix
		}
		return contest.FuzzyKey(c.Title, prefix)
	}
	return c.ID
}
