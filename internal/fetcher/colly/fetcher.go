// Package collyfetcher implements page fetching with gocolly.
package collyfetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Browser request signature defaults.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	DefaultAcceptLanguage = "fr-FR,fr;q=0.9,en;q=0.8"
	acceptEncoding        = "gzip, deflate, br"
)

// Fetch outcomes reported to the Recorder.
const (
	OutcomeOK     = "ok"
	OutcomeStatus = "status"
	OutcomeError  = "error"
)

// Config controls collector behavior.
type Config struct {
	UserAgent      string
	AcceptLanguage string
	RespectRobots  bool
	Timeout        time.Duration
	MaxAttempts    int
	Backoff        time.Duration
}

// Recorder receives one outcome per fetch attempt.
type Recorder interface {
	ObserveFetch(outcome string)
}

// Limiter paces requests before each attempt.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Fetcher retrieves page bodies through a Colly collector with bounded retries.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
	recorder      Recorder
	limiter       Limiter
	sleep         func(context.Context, time.Duration) error
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithRecorder reports attempt outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(f *Fetcher) {
		f.recorder = r
	}
}

// WithLimiter waits on l before every attempt.
func WithLimiter(l Limiter) Option {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		if rt != nil {
			f.baseCollector.WithTransport(rt)
		}
	}
}

// New builds a Fetcher.
func New(cfg Config, opts ...Option) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = DefaultAcceptLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}

	c := colly.NewCollector(colly.Async(false))
	c.UserAgent = cfg.UserAgent
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true

	f := &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        zap.NewNop(),
		sleep:         sleepWithContext,
	}
	c.WithTransport(newRobotsTransport(newHTTPTransport(), f.robotsFallback))
	for _, opt := range opts {
		opt(f)
	}
	c.SetRequestTimeout(cfg.Timeout)
	return f
}

// Fetch returns the body of rawURL. A non-2xx response yields (nil, nil) and is not
// retried. Transport failures are retried up to MaxAttempts with a linear backoff.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, rawURL); err != nil {
				return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
			}
		}
		body, status, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			if status < 200 || status > 299 {
				f.observe(OutcomeStatus)
				f.logger.Debug("non-success status", zap.String("url", rawURL), zap.Int("status", status))
				return nil, nil
			}
			f.observe(OutcomeOK)
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
		}
		if errors.Is(err, colly.ErrRobotsTxtBlocked) {
			f.observe(OutcomeStatus)
			f.logger.Info("blocked by robots.txt", zap.String("url", rawURL))
			return nil, nil
		}
		f.observe(OutcomeError)
		lastErr = err
		f.logger.Warn("fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == f.cfg.MaxAttempts {
			break
		}
		if err := f.sleep(ctx, f.cfg.Backoff*time.Duration(attempt)); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
		}
	}
	return nil, fmt.Errorf("fetch %s after %d attempts: %w", rawURL, f.cfg.MaxAttempts, lastErr)
}

type result struct {
	status int
	body   []byte
	err    error
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, int, error) {
	var res result
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, &res)
	if err := f.runCollector(ctx, collector, rawURL, &res); err != nil {
		return nil, 0, err
	}
	return res.body, res.status, nil
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, res *result) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", f.cfg.UserAgent)
		r.Headers.Set("Accept", DefaultAccept)
		r.Headers.Set("Accept-Language", f.cfg.AcceptLanguage)
		r.Headers.Set("Accept-Encoding", acceptEncoding)
	})

	hooks.OnResponse(func(r *colly.Response) {
		res.status = r.StatusCode
		body, err := decodeBody(r)
		if err != nil {
			res.err = err
			return
		}
		res.body = body
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		res.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, rawURL string, res *result) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if res.err != nil {
			return fmt.Errorf("colly response failed: %w", res.err)
		}
		return nil
	}
}

func (f *Fetcher) observe(outcome string) {
	if f.recorder != nil {
		f.recorder.ObserveFetch(outcome)
	}
}

func (f *Fetcher) robotsFallback(host string, err error) {
	f.logger.Warn("robots.txt unreachable, allowing crawl", zap.String("host", host), zap.Error(err))
}

// decodeBody undoes brotli encoding. Colly already handles gzip.
func decodeBody(r *colly.Response) ([]byte, error) {
	if r.Headers == nil || r.Headers.Get("Content-Encoding") != "br" {
		return append([]byte(nil), r.Body...), nil
	}
	body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(r.Body)))
	if err != nil {
		return nil, fmt.Errorf("decode brotli body: %w", err)
	}
	return body, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff sleep: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
