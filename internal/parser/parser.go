// Package parser turns raw listing pages into contest records.
//
// Each source gets an Adapter variant tuned to its markup; Generic handles
// everything else. Adapters are best effort: a candidate block that cannot be
// turned into a record becomes a Skip and extraction moves on.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/contest-crawler/internal/classify"
	"github.com/JakeFAU/contest-crawler/internal/contest"
)

// Page is one fetched document handed to an Adapter.
type Page struct {
	SourceID   string
	SourceName string
	Origin     string
	URL        string
	Body       []byte
	FetchedAt  time.Time
}

// Skip records a candidate block that did not yield a record.
type Skip struct {
	Index  int
	Reason string
}

// Extraction is the result of parsing one page.
type Extraction struct {
	Records []contest.Contest
	Skips   []Skip
}

// Adapter extracts contest records from a page.
type Adapter interface {
	Name() string
	Extract(page Page) Extraction
}

var (
	errNoTitle    = errors.New("missing title")
	errNoValue    = errors.New("missing value")
	errBelowFloor = errors.New("value below floor")
	errShortTitle = errors.New("title too short")
)

// candidate is the raw material pulled from one block before normalization.
type candidate struct {
	title       string
	brand       string
	value       int
	href        string
	description string
	answers     []string
	dateText    string
}

type blockFunc func(sel *goquery.Selection) (candidate, error)

// extract runs fn over every block matched by container and collects records and skips.
func extract(page Page, container string, cl *classify.Classifier, fn blockFunc) Extraction {
	var out Extraction
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		out.Skips = append(out.Skips, Skip{Index: -1, Reason: fmt.Sprintf("parse document: %v", err)})
		return out
	}
	doc.Find(container).Each(func(i int, sel *goquery.Selection) {
		rec, err := guard(func() (contest.Contest, error) {
			c, err := fn(sel)
			if err != nil {
				return contest.Contest{}, err
			}
			return c.record(page, i, cl), nil
		})
		if err != nil {
			out.Skips = append(out.Skips, Skip{Index: i, Reason: err.Error()})
			return
		}
		out.Records = append(out.Records, rec)
	})
	return out
}

func guard(fn func() (contest.Contest, error)) (rec contest.Contest, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("candidate panic: %v", r)
		}
	}()
	return fn()
}

func (c candidate) record(page Page, idx int, cl *classify.Classifier) contest.Contest {
	title := contest.Truncate(c.title, contest.MaxTitleRunes)
	rec := contest.Contest{
		ID:          contest.NewID(page.SourceID, page.FetchedAt, idx),
		Title:       title,
		Brand:       c.brand,
		Value:       c.value,
		Source:      page.SourceID,
		URL:         resolve(page, c.href),
		Description: contest.Truncate(c.description, contest.MaxDescriptionRunes),
		Answers:     c.answers,
		Type:        contest.DefaultType,
		ScrapedAt:   page.FetchedAt,
	}
	rec.Category = cl.Category(title)
	if c.dateText != "" {
		rec.EndDate = cl.EndDate(c.dateText)
	}
	return rec
}

// resolve makes href absolute against the page's origin, or the page URL when no origin is declared.
func resolve(page Page, href string) string {
	base := page.Origin
	if base == "" {
		base = page.URL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return baseURL.String()
	}
	return baseURL.ResolveReference(ref).String()
}

// requireTitleAndValue applies the floor every variant shares.
func requireTitleAndValue(c candidate, floor int) error {
	if c.title == "" {
		return errNoTitle
	}
	if c.value <= 0 {
		return errNoValue
	}
	if c.value <= floor {
		return errBelowFloor
	}
	return nil
}

func text(sel *goquery.Selection, selector string) string {
	return clean(sel.Find(selector).First().Text())
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func attr(sel *goquery.Selection, selector, name string) string {
	v, _ := sel.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

var answerMarker = regexp.MustCompile(`R\d+[>:]\s*([^R]+)`)

// markedAnswers splits "R1> foo R2: bar" into its answers.
func markedAnswers(s string) []string {
	var answers []string
	for _, m := range answerMarker.FindAllStringSubmatch(s, -1) {
		if a := strings.TrimSpace(m[1]); a != "" {
			answers = append(answers, a)
		}
	}
	return answers
}

func listAnswers(sel *goquery.Selection, selector string) []string {
	var answers []string
	sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if a := clean(s.Text()); a != "" {
			answers = append(answers, a)
		}
	})
	return answers
}
