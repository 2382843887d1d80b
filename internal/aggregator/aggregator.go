// Package aggregator runs every registered source through fetch, parse and
// classification, and folds the results into one deduplicated batch.
package aggregator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/contest-crawler/internal/contest"
	"github.com/JakeFAU/contest-crawler/internal/parser"
)

// DefaultDedupPrefix is the fuzzy title key length.
const DefaultDedupPrefix = 30

// Fetcher returns a page body, nil when the page had no usable content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Registry is the subset of source.Registry the aggregator needs.
type Registry interface {
	All() []contest.Source
	Adapter(id string) parser.Adapter
}

// Recorder receives per-source outcomes.
type Recorder interface {
	ObserveSource(source string, found, skipped int, failed bool)
}

// Config tunes a run.
type Config struct {
	SourceDelay time.Duration
	DedupPrefix int
}

// Aggregator drives sources sequentially. It is safe to reuse across runs but
// not to call RunAll concurrently.
type Aggregator struct {
	cfg      Config
	registry Registry
	fetcher  Fetcher
	renderer Fetcher
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithRenderer routes sources flagged Render through r.
func WithRenderer(r Fetcher) Option {
	return func(a *Aggregator) {
		a.renderer = r
	}
}

// WithRecorder reports per-source outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(a *Aggregator) {
		a.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// New builds an Aggregator.
func New(cfg Config, registry Registry, fetcher Fetcher, opts ...Option) *Aggregator {
	if cfg.DedupPrefix <= 0 {
		cfg.DedupPrefix = DefaultDedupPrefix
	}
	a := &Aggregator{
		cfg:      cfg,
		registry: registry,
		fetcher:  fetcher,
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    sleepWithContext,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("aggregator")
	return a
}

// RunAll processes every source in registry order. Source failures are
// recorded in the batch; the only error returned is context cancellation.
func (a *Aggregator) RunAll(ctx context.Context) (contest.Batch, error) {
	sources := a.registry.All()
	batch := contest.Batch{
		ScrapedAt: a.now(),
		Sources:   len(sources),
		Errors:    []contest.SourceError{},
		Reports:   make([]contest.SourceReport, 0, len(sources)),
	}
	var records []contest.Contest
	for i, src := range sources {
		if i > 0 {
			if err := a.sleep(ctx, a.cfg.SourceDelay); err != nil {
				return contest.Batch{}, fmt.Errorf("aggregate: %w", err)
			}
		}
		if err := ctx.Err(); err != nil {
			return contest.Batch{}, fmt.Errorf("aggregate: %w", err)
		}

		found, report, err := a.runSource(ctx, src)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return contest.Batch{}, fmt.Errorf("aggregate: %w", ctxErr)
		}
		if err != nil {
			report.Error = err.Error()
			batch.Errors = append(batch.Errors, contest.SourceError{Source: src.ID, Message: err.Error()})
			a.logger.Warn("source failed", zap.String("source", src.ID), zap.Error(err))
		} else {
			a.logger.Info("source scraped", zap.String("source", src.ID), zap.Int("found", len(found)))
		}
		for j := range found {
			found[j].ID = contest.NewID(src.ID, found[j].ScrapedAt, len(records)+j)
		}
		records = append(records, found...)
		batch.Reports = append(batch.Reports, report)
		if a.recorder != nil {
			a.recorder.ObserveSource(src.ID, report.Found, report.Skipped, err != nil)
		}
	}

	records = Dedup(records, a.cfg.DedupPrefix)
	SortByValue(records)
	batch.Contests = records
	batch.Total = len(records)
	return batch, nil
}

// runSource fetches and parses every URL of src. It fails when every URL
// failed to fetch or the adapter panicked; in that case no records are kept.
func (a *Aggregator) runSource(ctx context.Context, src contest.Source) ([]contest.Contest, contest.SourceReport, error) {
	report := contest.SourceReport{Source: src.ID}
	fetcher := a.fetcher
	if src.Render && a.renderer != nil {
		fetcher = a.renderer
	}
	adapter := a.registry.Adapter(src.ID)

	var (
		records []contest.Contest
		errs    []error
	)
	for _, u := range src.URLs {
		report.Attempted++
		body, err := fetcher.Fetch(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, report, ctx.Err()
			}
			report.Failed++
			errs = append(errs, err)
			a.logger.Warn("url failed", zap.String("source", src.ID), zap.String("url", u), zap.Error(err))
			continue
		}
		if body == nil {
			a.logger.Debug("no content", zap.String("source", src.ID), zap.String("url", u))
			continue
		}

		page := parser.Page{
			SourceID:   src.ID,
			SourceName: src.Name,
			Origin:     originOf(src, u),
			URL:        u,
			Body:       body,
			FetchedAt:  a.now(),
		}
		ext, err := safeExtract(adapter, page)
		if err != nil {
			return nil, report, fmt.Errorf("parse %s: %w", u, err)
		}
		report.Skipped += len(ext.Skips)
		records = append(records, ext.Records...)
	}
	if len(src.URLs) > 0 && report.Failed == len(src.URLs) {
		return nil, report, errors.Join(errs...)
	}

	for i := range records {
		records[i].Enrich(src)
	}
	report.Found = len(records)
	return records, report, nil
}

func safeExtract(adapter parser.Adapter, page parser.Page) (ext parser.Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter %s panic: %v", adapter.Name(), r)
		}
	}()
	return adapter.Extract(page), nil
}

func originOf(src contest.Source, rawURL string) string {
	if src.Origin != "" {
		return src.Origin
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Dedup keeps the first record for each fuzzy title key.
func Dedup(records []contest.Contest, prefixLen int) []contest.Contest {
	seen := make(map[string]struct{}, len(records))
	out := make([]contest.Contest, 0, len(records))
	for _, rec := range records {
		key := contest.FuzzyKey(rec.Title, prefixLen)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// SortByValue orders records by descending value, keeping ties in place.
func SortByValue(records []contest.Contest) {
	slices.SortStableFunc(records, func(a, b contest.Contest) int {
		return cmp.Compare(b.Value, a.Value)
	})
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("source delay: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
