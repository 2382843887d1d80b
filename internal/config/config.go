// Package config loads service configuration from YAML files and CONTESTS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreLocal    = "local"
	StoreGCS      = "gcs"
	StorePostgres = "postgres"
)

// Publisher backends.
const (
	PublisherNone   = "none"
	PublisherMemory = "memory"
	PublisherPubSub = "pubsub"
	PublisherKafka  = "kafka"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Fetcher    FetcherConfig    `mapstructure:"fetcher"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Merge      MergeConfig      `mapstructure:"merge"`
	Store      StoreConfig      `mapstructure:"store"`
	Publisher  PublisherConfig  `mapstructure:"publisher"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	RefreshTimeoutSeconds int `mapstructure:"refresh_timeout_seconds"`
}

// AuthConfig guards the refresh endpoint.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig selects the zap preset.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// FetcherConfig tunes plain HTTP fetching.
type FetcherConfig struct {
	UserAgent      string  `mapstructure:"user_agent"`
	AcceptLanguage string  `mapstructure:"accept_language"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxAttempts    int     `mapstructure:"max_attempts"`
	BackoffMS      int     `mapstructure:"backoff_ms"`
	RespectRobots  bool    `mapstructure:"respect_robots"`
	HostRPS        float64 `mapstructure:"host_rps"`
	HostBurst      int     `mapstructure:"host_burst"`
}

// HeadlessConfig enables Chrome rendering for sources that need it.
type HeadlessConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	MaxParallel       int  `mapstructure:"max_parallel"`
	NavTimeoutSeconds int  `mapstructure:"nav_timeout_seconds"`
	SettleDelayMS     int  `mapstructure:"settle_delay_ms"`
}

// AggregatorConfig paces and deduplicates a run.
type AggregatorConfig struct {
	SourceDelayMS int `mapstructure:"source_delay_ms"`
	DedupPrefix   int `mapstructure:"dedup_prefix"`
}

// MergeConfig selects the merge key.
type MergeConfig struct {
	Key string `mapstructure:"key"`
}

// StoreConfig selects and configures the corpus backend.
type StoreConfig struct {
	Backend       string `mapstructure:"backend"`
	MaxAgeHours   int    `mapstructure:"max_age_hours"`
	LocalPath     string `mapstructure:"local_path"`
	GCSBucket     string `mapstructure:"gcs_bucket"`
	GCSObject     string `mapstructure:"gcs_object"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	PostgresTable string `mapstructure:"postgres_table"`
}

// PublisherConfig selects where run summaries are announced.
type PublisherConfig struct {
	Backend      string   `mapstructure:"backend"`
	ProjectID    string   `mapstructure:"project_id"`
	Topic        string   `mapstructure:"topic"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
}

// ScheduleConfig drives periodic refreshes in serve mode. Zero disables it.
type ScheduleConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONTESTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("server.refresh_timeout_seconds", 300)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("fetcher.user_agent", "")
	v.SetDefault("fetcher.accept_language", "")
	v.SetDefault("fetcher.timeout_seconds", 15)
	v.SetDefault("fetcher.max_attempts", 3)
	v.SetDefault("fetcher.backoff_ms", 1000)
	v.SetDefault("fetcher.respect_robots", false)
	v.SetDefault("fetcher.host_rps", 0)
	v.SetDefault("fetcher.host_burst", 1)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.settle_delay_ms", 500)
	v.SetDefault("aggregator.source_delay_ms", 1000)
	v.SetDefault("aggregator.dedup_prefix", 30)
	v.SetDefault("merge.key", "identity")
	v.SetDefault("store.backend", StoreLocal)
	v.SetDefault("store.max_age_hours", 24)
	v.SetDefault("store.local_path", "data/contests.json")
	v.SetDefault("store.gcs_bucket", "")
	v.SetDefault("store.gcs_object", "contests/corpus.json")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.postgres_table", "contest_snapshots")
	v.SetDefault("publisher.backend", PublisherNone)
	v.SetDefault("publisher.project_id", "")
	v.SetDefault("publisher.topic", "contests-refreshed")
	v.SetDefault("publisher.kafka_brokers", []string{})
	v.SetDefault("schedule.interval_minutes", 0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}
	check(c.Server.Port > 0, "server.port must be > 0")
	check(c.Fetcher.TimeoutSeconds > 0, "fetcher.timeout_seconds must be > 0")
	check(c.Fetcher.MaxAttempts > 0, "fetcher.max_attempts must be > 0")
	check(c.Fetcher.BackoffMS >= 0, "fetcher.backoff_ms must be >= 0")
	check(c.Fetcher.HostRPS >= 0, "fetcher.host_rps must be >= 0")
	check(!c.Headless.Enabled || c.Headless.MaxParallel > 0,
		"headless.max_parallel must be > 0 when headless is enabled")
	check(c.Aggregator.SourceDelayMS >= 0, "aggregator.source_delay_ms must be >= 0")
	check(c.Aggregator.DedupPrefix > 0, "aggregator.dedup_prefix must be > 0")
	check(c.Merge.Key == "identity" || c.Merge.Key == "fuzzy_title",
		"merge.key must be identity or fuzzy_title")
	check(c.Store.MaxAgeHours > 0, "store.max_age_hours must be > 0")
	check(c.Schedule.IntervalMinutes >= 0, "schedule.interval_minutes must be >= 0")

	switch c.Store.Backend {
	case StoreMemory:
	case StoreLocal:
		check(c.Store.LocalPath != "", "store.local_path must be set for the local backend")
	case StoreGCS:
		check(c.Store.GCSBucket != "", "store.gcs_bucket must be set for the gcs backend")
	case StorePostgres:
		check(c.Store.PostgresDSN != "", "store.postgres_dsn must be set for the postgres backend")
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not supported", c.Store.Backend))
	}

	switch c.Publisher.Backend {
	case PublisherNone, PublisherMemory:
	case PublisherPubSub:
		check(c.Publisher.ProjectID != "", "publisher.project_id must be set for pubsub")
		check(c.Publisher.Topic != "", "publisher.topic must be set for pubsub")
	case PublisherKafka:
		check(len(c.Publisher.KafkaBrokers) > 0, "publisher.kafka_brokers must be set for kafka")
		check(c.Publisher.Topic != "", "publisher.topic must be set for kafka")
	default:
		errs = append(errs, fmt.Errorf("publisher.backend %q is not supported", c.Publisher.Backend))
	}
	return errors.Join(errs...)
}

// FetchTimeout is the per-attempt fetch timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetcher.TimeoutSeconds) * time.Second
}

// FetchBackoff is the base retry backoff.
func (c Config) FetchBackoff() time.Duration {
	return time.Duration(c.Fetcher.BackoffMS) * time.Millisecond
}

// SourceDelay is the pause between sources.
func (c Config) SourceDelay() time.Duration {
	return time.Duration(c.Aggregator.SourceDelayMS) * time.Millisecond
}

// MaxAge is how long a persisted corpus stays fresh.
func (c Config) MaxAge() time.Duration {
	return time.Duration(c.Store.MaxAgeHours) * time.Hour
}

// ScheduleInterval is the serve-mode refresh period.
func (c Config) ScheduleInterval() time.Duration {
	return time.Duration(c.Schedule.IntervalMinutes) * time.Minute
}
