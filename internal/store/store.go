// Package store persists the contest corpus behind a load/save contract and
// substitutes a seed dataset whenever nothing fresh is available.
package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/contest-crawler/internal/contest"
)

// ErrNotFound is returned by a Backend that holds no corpus yet.
var ErrNotFound = errors.New("corpus not found")

// DefaultMaxAge is how long a persisted corpus stays servable.
const DefaultMaxAge = 24 * time.Hour

// Backend reads and writes a whole corpus.
type Backend interface {
	Read(ctx context.Context) (contest.Corpus, error)
	Write(ctx context.Context, corpus contest.Corpus) error
}

// Store wraps a Backend with staleness checks and the fallback dataset.
type Store struct {
	backend Backend
	dataset Dataset
	maxAge  time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithMaxAge sets the staleness threshold.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a Store over backend that falls back to dataset.
func New(backend Backend, dataset Dataset, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		dataset: dataset,
		maxAge:  DefaultMaxAge,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("store")
	return s
}

// Load returns the persisted corpus when it exists, is non-empty and is younger
// than the max age. Otherwise it returns the fallback dataset flagged IsFallback.
func (s *Store) Load(ctx context.Context) contest.Corpus {
	corpus, err := s.backend.Read(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		s.logger.Debug("no persisted corpus, serving fallback")
		return s.Fallback()
	case err != nil:
		s.logger.Warn("load corpus failed, serving fallback", zap.Error(err))
		return s.Fallback()
	case len(corpus.Contests) == 0:
		s.logger.Debug("persisted corpus empty, serving fallback")
		return s.Fallback()
	case corpus.ScrapedAt.IsZero() || s.now().Sub(corpus.ScrapedAt) >= s.maxAge:
		s.logger.Info("persisted corpus stale, serving fallback", zap.Time("scraped_at", corpus.ScrapedAt))
		return s.Fallback()
	}
	corpus.IsFallback = false
	corpus.Total = len(corpus.Contests)
	return corpus
}

// Save persists corpus. Failures are logged and reported as false.
func (s *Store) Save(ctx context.Context, corpus contest.Corpus) bool {
	if err := s.backend.Write(ctx, corpus); err != nil {
		s.logger.Error("save corpus failed", zap.Error(err), zap.Int("total", corpus.Total))
		return false
	}
	return true
}

// Fallback builds the seed corpus, stamped with the current time.
func (s *Store) Fallback() contest.Corpus {
	now := s.now()
	contests := make([]contest.Contest, len(s.dataset.Contests))
	copy(contests, s.dataset.Contests)
	for i := range contests {
		if contests[i].ScrapedAt.IsZero() {
			contests[i].ScrapedAt = now
		}
	}
	return contest.Corpus{
		Contests:   contests,
		ScrapedAt:  now,
		Total:      len(contests),
		IsFallback: true,
	}
}
