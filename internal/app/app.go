// Package app builds and holds the long-lived services shared by the CLI commands.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/contest-crawler/internal/aggregator"
	"github.com/JakeFAU/contest-crawler/internal/api"
	"github.com/JakeFAU/contest-crawler/internal/classify"
	"github.com/JakeFAU/contest-crawler/internal/clock/system"
	"github.com/JakeFAU/contest-crawler/internal/config"
	collyfetcher "github.com/JakeFAU/contest-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/contest-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/contest-crawler/internal/id/uuid"
	"github.com/JakeFAU/contest-crawler/internal/merge"
	"github.com/JakeFAU/contest-crawler/internal/metrics"
	"github.com/JakeFAU/contest-crawler/internal/policy/ratelimit"
	kafkapublisher "github.com/JakeFAU/contest-crawler/internal/publisher/kafka"
	memorypublisher "github.com/JakeFAU/contest-crawler/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/contest-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/contest-crawler/internal/refresh"
	"github.com/JakeFAU/contest-crawler/internal/source"
	"github.com/JakeFAU/contest-crawler/internal/store"
	gcsstore "github.com/JakeFAU/contest-crawler/internal/store/gcs"
	localstore "github.com/JakeFAU/contest-crawler/internal/store/local"
	memorystore "github.com/JakeFAU/contest-crawler/internal/store/memory"
	pgstore "github.com/JakeFAU/contest-crawler/internal/store/postgres"
)

// App holds the wired pipeline. It is built once per command and closed when
// the command finishes.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *source.Registry
	store    *store.Store
	runner   *refresh.Runner
	closers  []func()
}

// New wires every service described by cfg. It fails fast when a configured
// backend cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	logger.Info("initializing application services",
		zap.String("store", cfg.Store.Backend),
		zap.String("publisher", cfg.Publisher.Backend),
		zap.Bool("headless", cfg.Headless.Enabled),
	)

	clk := system.New()
	recorder := metrics.NewRecorder()
	a.registry = source.Default(classify.Default())

	backend, err := a.buildBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store.New(backend, store.DefaultDataset(),
		store.WithMaxAge(cfg.MaxAge()),
		store.WithClock(clk.Now),
		store.WithLogger(logger),
	)

	publisher, err := a.buildPublisher(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	mergeKey, err := merge.ParseKey(cfg.Merge.Key)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("merge key: %w", err)
	}

	aggOpts := []aggregator.Option{
		aggregator.WithRecorder(recorder),
		aggregator.WithLogger(logger),
		aggregator.WithClock(clk.Now),
	}
	if renderer := a.buildRenderer(); renderer != nil {
		aggOpts = append(aggOpts, aggregator.WithRenderer(renderer))
	}
	agg := aggregator.New(aggregator.Config{
		SourceDelay: cfg.SourceDelay(),
		DedupPrefix: cfg.Aggregator.DedupPrefix,
	}, a.registry, a.buildFetcher(recorder), aggOpts...)

	runOpts := []refresh.Option{
		refresh.WithRecorder(recorder),
		refresh.WithIDGenerator(uuid.New()),
		refresh.WithClock(clk.Now),
		refresh.WithLogger(logger),
	}
	if publisher != nil {
		runOpts = append(runOpts, refresh.WithPublisher(publisher))
	}
	a.runner = refresh.New(agg, a.store, merge.Merger{
		Key:         mergeKey,
		DedupPrefix: cfg.Aggregator.DedupPrefix,
	}, runOpts...)

	logger.Info("application services initialized", zap.Int("sources", a.registry.Len()))
	return a, nil
}

func (a *App) buildFetcher(recorder metrics.Recorder) *collyfetcher.Fetcher {
	limiter := ratelimit.New(ratelimit.Config{
		RPS:   a.cfg.Fetcher.HostRPS,
		Burst: a.cfg.Fetcher.HostBurst,
	}, func(host string, d time.Duration) {
		a.logger.Debug("fetch paced", zap.String("host", host), zap.Duration("delay", d))
	})
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:      a.cfg.Fetcher.UserAgent,
		AcceptLanguage: a.cfg.Fetcher.AcceptLanguage,
		RespectRobots:  a.cfg.Fetcher.RespectRobots,
		Timeout:        a.cfg.FetchTimeout(),
		MaxAttempts:    a.cfg.Fetcher.MaxAttempts,
		Backoff:        a.cfg.FetchBackoff(),
	},
		collyfetcher.WithLogger(a.logger.Named("fetcher")),
		collyfetcher.WithRecorder(recorder),
		collyfetcher.WithLimiter(limiter),
	)
}

// buildRenderer returns nil when headless rendering is disabled or Chrome is unavailable;
// render-flagged sources then fall back to the plain fetcher.
func (a *App) buildRenderer() aggregator.Fetcher {
	if !a.cfg.Headless.Enabled {
		return nil
	}
	r, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
		MaxParallel:       a.cfg.Headless.MaxParallel,
		UserAgent:         a.cfg.Fetcher.UserAgent,
		AcceptLanguage:    a.cfg.Fetcher.AcceptLanguage,
		NavigationTimeout: time.Duration(a.cfg.Headless.NavTimeoutSeconds) * time.Second,
		SettleDelay:       time.Duration(a.cfg.Headless.SettleDelayMS) * time.Millisecond,
	}, a.logger)
	if err != nil {
		a.logger.Warn("headless fetcher init failed", zap.Error(err))
		return nil
	}
	a.closers = append(a.closers, r.Close)
	return r
}

func (a *App) buildBackend(ctx context.Context) (store.Backend, error) {
	cfg := a.cfg.Store
	switch cfg.Backend {
	case config.StoreMemory:
		a.logger.Info("using in-memory corpus store; data is lost on exit")
		return memorystore.New(), nil
	case config.StoreLocal:
		b, err := localstore.New(localstore.Config{Path: cfg.LocalPath})
		if err != nil {
			return nil, fmt.Errorf("init local store: %w", err)
		}
		a.logger.Info("using local corpus store", zap.String("path", cfg.LocalPath))
		return b, nil
	case config.StoreGCS:
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.logger.Warn("close gcs client", zap.Error(err))
			}
		})
		b, err := gcsstore.New(client, gcsstore.Config{Bucket: cfg.GCSBucket, Object: cfg.GCSObject})
		if err != nil {
			return nil, fmt.Errorf("init gcs store: %w", err)
		}
		a.logger.Info("using gcs corpus store", zap.String("uri", b.URI()))
		return b, nil
	case config.StorePostgres:
		b, err := pgstore.New(ctx, pgstore.Config{DSN: cfg.PostgresDSN, Table: cfg.PostgresTable})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		a.closers = append(a.closers, b.Close)
		if err := b.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		a.logger.Info("using postgres corpus store", zap.String("table", cfg.PostgresTable))
		return b, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

func (a *App) buildPublisher(ctx context.Context) (refresh.Publisher, error) {
	cfg := a.cfg.Publisher
	switch cfg.Backend {
	case "", config.PublisherNone:
		return nil, nil
	case config.PublisherMemory:
		return memorypublisher.New(), nil
	case config.PublisherPubSub:
		client, err := gpubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		p, err := pubsubpublisher.NewFromClient(client, cfg.Topic)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.closers = append(a.closers, func() {
			p.Stop()
			if err := client.Close(); err != nil {
				a.logger.Warn("close pubsub client", zap.Error(err))
			}
		})
		a.logger.Info("publishing refresh summaries to pubsub", zap.String("topic", cfg.Topic))
		return p, nil
	case config.PublisherKafka:
		p, err := kafkapublisher.New(cfg.KafkaBrokers, cfg.Topic)
		if err != nil {
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := p.Close(); err != nil {
				a.logger.Warn("close kafka writer", zap.Error(err))
			}
		})
		a.logger.Info("publishing refresh summaries to kafka", zap.String("topic", cfg.Topic))
		return p, nil
	default:
		return nil, fmt.Errorf("unknown publisher backend: %s", cfg.Backend)
	}
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Registry returns the source registry.
func (a *App) Registry() *source.Registry {
	return a.registry
}

// Store returns the corpus store.
func (a *App) Store() *store.Store {
	return a.store
}

// Runner returns the refresh runner.
func (a *App) Runner() *refresh.Runner {
	return a.runner
}

// Handler builds the HTTP API over the App's services.
func (a *App) Handler() http.Handler {
	return api.NewServer(a.store, a.runner, api.Config{
		APIKey:         a.cfg.Auth.APIKey,
		Sources:        a.registry.Len(),
		RequestTimeout: time.Duration(a.cfg.Server.RequestTimeoutSeconds) * time.Second,
		RefreshTimeout: time.Duration(a.cfg.Server.RefreshTimeoutSeconds) * time.Second,
	}, a.logger).Handler()
}

// Close releases backend connections in reverse order of creation.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
