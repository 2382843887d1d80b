// Package refresh runs one full scrape, merges it into the stored corpus and
// persists the result. At most one run executes at a time per Runner.
package refresh

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/contest-crawler/internal/contest"
	"github.com/JakeFAU/contest-crawler/internal/merge"
)

// SubjectRefreshed is the subject run summaries are published under.
const SubjectRefreshed = "contests.refreshed"

// Aggregator produces a batch from every registered source.
type Aggregator interface {
	RunAll(ctx context.Context) (contest.Batch, error)
}

// Store loads and persists the corpus.
type Store interface {
	Load(ctx context.Context) contest.Corpus
	Save(ctx context.Context, corpus contest.Corpus) bool
}

// Publisher announces finished runs.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) (string, error)
}

// Recorder observes run durations and corpus sizes.
type Recorder interface {
	ObserveRefresh(duration time.Duration, total int, err error)
}

// IDGenerator issues run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Result is the outcome of one run.
type Result struct {
	Corpus contest.Corpus
	Batch  contest.Batch
	Stats  contest.RunStats
	Saved  bool
}

// Summary is the event published after every successful run.
type Summary struct {
	RunID     string            `json:"runId"`
	ScrapedAt time.Time         `json:"scrapedAt"`
	Duration  int64             `json:"duration"`
	Found     int               `json:"found"`
	Total     int               `json:"total"`
	Errors    []contest.Failure `json:"errors,omitempty"`
	Saved     bool              `json:"saved"`
}

// Runner coordinates aggregation, merge and persistence.
type Runner struct {
	agg       Aggregator
	store     Store
	merger    merge.Merger
	publisher Publisher
	recorder  Recorder
	ids       IDGenerator
	now       func() time.Time
	logger    *zap.Logger
	group     singleflight.Group
}

// Option customizes a Runner.
type Option func(*Runner)

// WithPublisher announces each run on p.
func WithPublisher(p Publisher) Option {
	return func(r *Runner) {
		r.publisher = p
	}
}

// WithRecorder reports run metrics to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithIDGenerator stamps each run with an id from g.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runner) {
		r.ids = g
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New builds a Runner.
func New(agg Aggregator, store Store, merger merge.Merger, opts ...Option) *Runner {
	r := &Runner{
		agg:    agg,
		store:  store,
		merger: merger,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("refresh")
	return r
}

// Run performs one refresh. Callers arriving while a run is in flight share its result.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	v, err, shared := r.group.Do("refresh", func() (any, error) {
		return r.run(ctx)
	})
	if shared {
		r.logger.Debug("joined in-flight refresh")
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (r *Runner) run(ctx context.Context) (Result, error) {
	start := r.now()
	runID := r.newRunID()
	logger := r.logger.With(zap.String("run_id", runID))
	logger.Info("refresh started")

	batch, err := r.agg.RunAll(ctx)
	if err != nil {
		r.observe(r.now().Sub(start), 0, err)
		logger.Warn("refresh aborted", zap.Error(err))
		return Result{}, fmt.Errorf("aggregate: %w", err)
	}

	existing := r.store.Load(ctx)
	corpus := r.merger.MergeCorpus(existing, batch)
	duration := r.now().Sub(start)
	stats := contest.RunStats{
		RunID:    runID,
		Duration: duration.Milliseconds(),
		Found:    len(batch.Contests),
		Errors:   len(batch.Errors),
		Failures: batch.Failures(),
	}
	corpus.LastScrape = &stats

	saved := r.store.Save(ctx, corpus)
	res := Result{Corpus: corpus, Batch: batch, Stats: stats, Saved: saved}
	r.publish(ctx, res)
	r.observe(duration, corpus.Total, nil)

	logger.Info("refresh completed",
		zap.Int64("duration_ms", stats.Duration),
		zap.Int("found", stats.Found),
		zap.Int("total", corpus.Total),
		zap.Int("errors", stats.Errors),
		zap.Bool("saved", saved),
	)
	return res, nil
}

// Schedule runs a refresh every interval until ctx ends. Run errors are logged.
func (r *Runner) Schedule(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	r.logger.Info("refresh scheduled", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresh schedule stopped")
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				r.logger.Error("scheduled refresh failed", zap.Error(err))
			}
		}
	}
}

func (r *Runner) newRunID() string {
	if r.ids == nil {
		return ""
	}
	id, err := r.ids.NewID()
	if err != nil {
		r.logger.Warn("run id unavailable", zap.Error(err))
		return ""
	}
	return id
}

func (r *Runner) publish(ctx context.Context, res Result) {
	if r.publisher == nil {
		return
	}
	summary := Summary{
		RunID:     res.Stats.RunID,
		ScrapedAt: res.Corpus.ScrapedAt,
		Duration:  res.Stats.Duration,
		Found:     res.Stats.Found,
		Total:     res.Corpus.Total,
		Errors:    res.Stats.Failures,
		Saved:     res.Saved,
	}
	msgID, err := r.publisher.Publish(ctx, SubjectRefreshed, summary)
	if err != nil {
		r.logger.Warn("publish refresh summary failed", zap.Error(err))
		return
	}
	r.logger.Debug("refresh summary published", zap.String("message_id", msgID))
}

func (r *Runner) observe(d time.Duration, total int, err error) {
	if r.recorder != nil {
		r.recorder.ObserveRefresh(d, total, err)
	}
}
