package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/contest-crawler/internal/contest"
	"github.com/JakeFAU/contest-crawler/internal/metrics"
	"github.com/JakeFAU/contest-crawler/internal/query"
	"github.com/JakeFAU/contest-crawler/internal/refresh"
)

// Version is reported by /v1/health.
const Version = "1.0.0"

// RefreshPreviewSize caps the contests returned by /v1/refresh.
const RefreshPreviewSize = 20

// CorpusLoader reads the current corpus.
type CorpusLoader interface {
	Load(ctx context.Context) contest.Corpus
}

// Refresher triggers a scrape.
type Refresher interface {
	Run(ctx context.Context) (refresh.Result, error)
}

// Config controls the server.
type Config struct {
	// APIKey guards /v1/refresh when non-empty.
	APIKey         string
	Sources        int
	RequestTimeout time.Duration
	RefreshTimeout time.Duration
}

// Server wires HTTP handlers to the corpus store and refresh runner.
type Server struct {
	router    chi.Router
	loader    CorpusLoader
	refresher Refresher
	cfg       Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(loader CorpusLoader, refresher Refresher, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 5 * time.Minute
	}
	s := &Server{
		loader:    loader,
		refresher: refresher,
		cfg:       cfg,
		logger:    logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(timeoutMiddleware(cfg.RequestTimeout))
			r.Get("/contests", s.listContests)
			r.Get("/health", s.health)
		})
		r.Group(func(r chi.Router) {
			if cfg.APIKey != "" {
				r.Use(apiKeyMiddleware(cfg.APIKey))
			}
			r.Post("/refresh", s.triggerRefresh)
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.loader == nil || s.refresher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type contestsData struct {
	Contests   []contest.Contest `json:"contests"`
	Stats      query.Stats       `json:"stats"`
	ScrapedAt  time.Time         `json:"scrapedAt"`
	IsFallback bool              `json:"isFallback"`
}

type contestsResponse struct {
	Success bool         `json:"success"`
	Data    contestsData `json:"data"`
}

func (s *Server) listContests(w http.ResponseWriter, r *http.Request) {
	filter, err := query.ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	corpus := s.loader.Load(r.Context())
	contests := query.Apply(corpus.Contests, filter)
	writeJSON(w, http.StatusOK, contestsResponse{
		Success: true,
		Data: contestsData{
			Contests:   contests,
			Stats:      query.Summarize(contests),
			ScrapedAt:  corpus.ScrapedAt,
			IsFallback: corpus.IsFallback,
		},
	})
}

type refreshStats struct {
	Duration int64 `json:"duration"`
	Found    int   `json:"found"`
	Total    int   `json:"total"`
	Errors   int   `json:"errors"`
}

type refreshData struct {
	Contests  []contest.Contest `json:"contests"`
	ScrapedAt time.Time         `json:"scrapedAt"`
}

type refreshResponse struct {
	Success bool         `json:"success"`
	RunID   string       `json:"runId,omitempty"`
	Stats   refreshStats `json:"stats"`
	Data    refreshData  `json:"data"`
}

func (s *Server) triggerRefresh(w http.ResponseWriter, r *http.Request) {
	// The run outlives a disconnecting client so a shared in-flight refresh is not aborted.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.RefreshTimeout)
	defer cancel()

	res, err := s.refresher.Run(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		s.logger.Error("manual refresh failed", zap.Error(err))
		writeError(w, status, err.Error())
		return
	}
	preview := res.Corpus.Contests
	if len(preview) > RefreshPreviewSize {
		preview = preview[:RefreshPreviewSize]
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Success: true,
		RunID:   res.Stats.RunID,
		Stats: refreshStats{
			Duration: res.Stats.Duration,
			Found:    res.Stats.Found,
			Total:    res.Corpus.Total,
			Errors:   res.Stats.Errors,
		},
		Data: refreshData{Contests: preview, ScrapedAt: res.Corpus.ScrapedAt},
	})
}

type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Sources    int               `json:"sources"`
	Contests   int               `json:"contests"`
	LastScrape *time.Time        `json:"lastScrape"`
	LastRun    *contest.RunStats `json:"lastRun,omitempty"`
	IsFallback bool              `json:"isFallback"`
	Endpoints  map[string]string `json:"endpoints"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	corpus := s.loader.Load(r.Context())
	resp := healthResponse{
		Status:     "ok",
		Version:    Version,
		Sources:    s.cfg.Sources,
		Contests:   corpus.Total,
		LastRun:    corpus.LastScrape,
		IsFallback: corpus.IsFallback,
		Endpoints: map[string]string{
			"contests": "/v1/contests",
			"refresh":  "/v1/refresh (POST)",
			"health":   "/v1/health",
		},
	}
	if !corpus.ScrapedAt.IsZero() {
		at := corpus.ScrapedAt
		resp.LastScrape = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec), zap.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (rw *statusWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}
