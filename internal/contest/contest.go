// Package contest defines the normalized records shared by every stage of the pipeline.
package contest

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Category is the coarse prize classification assigned to every contest.
type Category string

// Known categories. Autre is the catch-all.
const (
	CategoryHighTech Category = "High-Tech"
	CategoryVoyage   Category = "Voyage"
	CategoryBeaute   Category = "Beauté"
	CategoryMode     Category = "Mode"
	CategoryMaison   Category = "Maison"
	CategoryAuto     Category = "Auto"
	CategoryArgent   Category = "Argent"
	CategoryAutre    Category = "Autre"
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{
		CategoryHighTech, CategoryVoyage, CategoryBeaute, CategoryMode,
		CategoryMaison, CategoryAuto, CategoryArgent, CategoryAutre,
	}
}

// Country tags the market a source targets.
type Country string

const (
	// CountryFR marks French-language sources.
	CountryFR Country = "FR"
	// CountryINT marks international sources.
	CountryINT Country = "INT"
)

// DefaultType is the draw type assigned when a source does not say otherwise.
const DefaultType = "Tirage"

// Field limits applied by the parsers.
const (
	MaxTitleRunes       = 100
	MaxDescriptionRunes = 200
)

// Source describes one listing site in the registry.
type Source struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Icon    string   `json:"icon"`
	Color   string   `json:"color"`
	Country Country  `json:"country"`
	URLs    []string `json:"urls"`
	Origin  string   `json:"origin,omitempty"`
	Render  bool     `json:"render,omitempty"`
}

// Contest is a single normalized listing.
type Contest struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Brand       string    `json:"brand"`
	Value       int       `json:"value"`
	Category    Category  `json:"category"`
	Source      string    `json:"source"`
	SourceName  string    `json:"sourceName"`
	SourceIcon  string    `json:"sourceIcon"`
	SourceColor string    `json:"sourceColor"`
	Country     Country   `json:"country"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	Answers     []string  `json:"answers,omitempty"`
	EndDate     string    `json:"endDate,omitempty"`
	Type        string    `json:"type"`
	ScrapedAt   time.Time `json:"scrapedAt"`
	IsNew       bool      `json:"isNew,omitempty"`
}

// Enrich copies the display metadata of src onto c.
func (c *Contest) Enrich(src Source) {
	c.Source = src.ID
	c.SourceName = src.Name
	c.SourceIcon = src.Icon
	c.SourceColor = src.Color
	c.Country = src.Country
}

// FuzzyKey is the bounded dedup key: the lower-cased, trimmed title cut to prefixLen runes.
func FuzzyKey(title string, prefixLen int) string {
	key := strings.ToLower(strings.TrimSpace(title))
	return Truncate(key, prefixLen)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// NewID builds an id of the form <source>-<unixMillis>-<ordinal>.
func NewID(sourceID string, at time.Time, ordinal int) string {
	return fmt.Sprintf("%s-%d-%d", sourceID, at.UnixMilli(), ordinal)
}

// Failure records why a source produced nothing during a run.
type Failure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// RunStats summarizes the most recent refresh.
type RunStats struct {
	RunID    string    `json:"runId,omitempty"`
	Duration int64     `json:"duration"`
	Found    int       `json:"found"`
	Errors   int       `json:"errors"`
	Failures []Failure `json:"failures,omitempty"`
}

// Corpus is the persisted collection served to readers.
type Corpus struct {
	Contests   []Contest `json:"contests"`
	ScrapedAt  time.Time `json:"scrapedAt"`
	Total      int       `json:"total"`
	IsFallback bool      `json:"isFallback,omitempty"`
	LastScrape *RunStats `json:"lastScrape,omitempty"`
}

// SourceError is a source-level failure recorded in a batch.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"error"`
}

// SourceReport is the per-source accounting of one aggregation run.
type SourceReport struct {
	Source    string `json:"source"`
	Attempted int    `json:"attempted"`
	Failed    int    `json:"failed"`
	Found     int    `json:"found"`
	Skipped   int    `json:"skipped"`
	Error     string `json:"error,omitempty"`
}

// Batch is the output of one aggregation run.
type Batch struct {
	Contests  []Contest      `json:"contests"`
	Errors    []SourceError  `json:"errors"`
	Total     int            `json:"total"`
	ScrapedAt time.Time      `json:"scrapedAt"`
	Sources   int            `json:"sources"`
	Reports   []SourceReport `json:"reports,omitempty"`
}

// Failures converts the batch errors into run-stat failures.
func (b Batch) Failures() []Failure {
	if len(b.Errors) == 0 {
		return nil
	}
	out := make([]Failure, 0, len(b.Errors))
	for _, e := range b.Errors {
		out = append(out, Failure{Source: e.Source, Error: e.Message})
	}
	return out
}
