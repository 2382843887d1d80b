// Package postgres persists corpus snapshots in a Postgres table.
//
// Every Write appends a row; Read returns the newest one. Older snapshots are
// kept as scrape history.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/contest-crawler/internal/contest"
	"github.com/JakeFAU/contest-crawler/internal/store"
)

// DefaultTable is used when no table name is configured.
const DefaultTable = "contest_snapshots"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Backend stores corpus snapshots as jsonb rows.
type Backend struct {
	pool  pool
	table string
}

// New connects to Postgres using cfg.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres_dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Backend{pool: p, table: table}, nil
}

// NewWithPool constructs a backend from an existing pool.
func NewWithPool(p pool, table string) (*Backend, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Backend{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (b *Backend) Close() {
	if b == nil || b.pool == nil {
		return
	}
	b.pool.Close()
}

// EnsureSchema creates the snapshot table when it does not exist.
func (b *Backend) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id          BIGSERIAL PRIMARY KEY,
	scraped_at  TIMESTAMPTZ NOT NULL,
	total       INTEGER NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`, b.table)
	if _, err := b.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", b.table, err)
	}
	return nil
}

// Read implements store.Backend.
func (b *Backend) Read(ctx context.Context) (contest.Corpus, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s ORDER BY id DESC LIMIT 1`, b.table)
	var payload []byte
	if err := b.pool.QueryRow(ctx, query).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contest.Corpus{}, store.ErrNotFound
		}
		return contest.Corpus{}, fmt.Errorf("select snapshot: %w", err)
	}
	return store.Decode(payload)
}

// Write implements store.Backend.
func (b *Backend) Write(ctx context.Context, corpus contest.Corpus) error {
	payload, err := store.Encode(corpus)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (scraped_at, total, payload) VALUES ($1, $2, $3)`, b.table)
	if _, err := b.pool.Exec(ctx, query, corpus.ScrapedAt, corpus.Total, payload); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}
