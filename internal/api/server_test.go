package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contest-crawler/internal/contest"
	"github.com/JakeFAU/contest-crawler/internal/refresh"
)

var scrapedAt = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

type fakeLoader struct {
	corpus contest.Corpus
}

func (f fakeLoader) Load(context.Context) contest.Corpus { return f.corpus }

type fakeRefresher struct {
	calls  atomic.Int32
	result refresh.Result
	err    error
}

func (f *fakeRefresher) Run(ctx context.Context) (refresh.Result, error) {
	f.calls.Add(1)
	if ctx.Err() != nil {
		return refresh.Result{}, ctx.Err()
	}
	return f.result, f.err
}

func sampleCorpus() contest.Corpus {
	return contest.Corpus{
		Contests: []contest.Contest{
			{ID: "a", Title: "Voyage Tokyo", Value: 5000, Country: contest.CountryFR, Category: contest.CategoryVoyage},
			{ID: "b", Title: "RTX 5090", Value: 1999, Country: contest.CountryINT, Category: contest.CategoryHighTech},
			{ID: "c", Title: "Casque", Value: 300, Country: contest.CountryFR, Category: contest.CategoryHighTech},
		},
		ScrapedAt:  scrapedAt,
		Total:      3,
		LastScrape: &contest.RunStats{RunID: "run-1", Duration: 1200, Found: 3},
	}
}

func newTestServer(cfg Config) (*Server, *fakeRefresher) {
	ref := &fakeRefresher{}
	return NewServer(fakeLoader{corpus: sampleCorpus()}, ref, cfg, nil), ref
}

func serve(t *testing.T, s *Server, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestProbes(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(Config{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := serve(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
}

func TestReadyzWithoutDependencies(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, nil, Config{}, nil)
	rec := serve(t, s, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(Config{})
	serve(t, s, http.MethodGet, "/healthz", nil)
	rec := serve(t, s, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestListContests(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(Config{})
	rec := serve(t, s, http.MethodGet, "/v1/contests?country=fr&category=all&minValue=200", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[contestsResponse](t, rec)
	assert.True(t, body.Success)
	require.Len(t, body.Data.Contests, 2)
	assert.Equal(t, "a", body.Data.Contests[0].ID)
	assert.Equal(t, 2, body.Data.Stats.Total)
	assert.Equal(t, 5300, body.Data.Stats.TotalValue)
	assert.Equal(t, 2, body.Data.Stats.ByCountry.FR)
	assert.True(t, body.Data.ScrapedAt.Equal(scrapedAt))
	assert.False(t, body.Data.IsFallback)
}

func TestListContestsLimit(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(Config{})
	rec := serve(t, s, http.MethodGet, "/v1/contests?limit=1", nil)
	body := decode[contestsResponse](t, rec)
	require.Len(t, body.Data.Contests, 1)
	assert.Equal(t, 1, body.Data.Stats.Total)
}

func TestListContestsRejectsBadParams(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(Config{})
	rec := serve(t, s, http.MethodGet, "/v1/contests?minValue=abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[errorResponse](t, rec)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "minValue")
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	contests := make([]contest.Contest, 25)
	for i := range contests {
		contests[i] = contest.Contest{ID: fmt.Sprintf("c-%d", i), Value: 100 - i}
	}
	s, ref := newTestServer(Config{})
	ref.result = refresh.Result{
		Corpus: contest.Corpus{Contests: contests, ScrapedAt: scrapedAt, Total: 25},
		Stats:  contest.RunStats{RunID: "run-9", Duration: 800, Found: 7, Errors: 1},
	}

	rec := serve(t, s, http.MethodPost, "/v1/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[refreshResponse](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, "run-9", body.RunID)
	assert.Equal(t, refreshStats{Duration: 800, Found: 7, Total: 25, Errors: 1}, body.Stats)
	assert.Len(t, body.Data.Contests, RefreshPreviewSize)
	assert.Equal(t, int32(1), ref.calls.Load())
}

func TestRefreshMethodNotAllowed(t *testing.T) {
	t.Parallel()

	s, ref := newTestServer(Config{})
	rec := serve(t, s, http.MethodGet, "/v1/refresh", nil)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", decode[errorResponse](t, rec).Error)
	assert.Zero(t, ref.calls.Load())
}

func TestRefreshFailure(t *testing.T) {
	t.Parallel()

	s, ref := newTestServer(Config{})
	ref.err = errors.New("aggregate: boom")

	rec := serve(t, s, http.MethodPost, "/v1/refresh", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "aggregate: boom", body.Error)
}

func TestRefreshAPIKey(t *testing.T) {
	t.Parallel()

	s, ref := newTestServer(Config{APIKey: "secret"})

	rec := serve(t, s, http.MethodPost, "/v1/refresh", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, ref.calls.Load())

	rec = serve(t, s, http.MethodPost, "/v1/refresh", http.Header{"X-Api-Key": {"secret"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, s, http.MethodPost, "/v1/refresh?api_key=secret", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, s, http.MethodGet, "/v1/contests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(Config{Sources: 6})
	rec := serve(t, s, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, Version, body.Version)
	assert.Equal(t, 6, body.Sources)
	assert.Equal(t, 3, body.Contests)
	require.NotNil(t, body.LastScrape)
	assert.True(t, body.LastScrape.Equal(scrapedAt))
	require.NotNil(t, body.LastRun)
	assert.Equal(t, "run-1", body.LastRun.RunID)
	assert.Contains(t, body.Endpoints, "refresh")
}

func TestHealthNeverScraped(t *testing.T) {
	t.Parallel()

	s := NewServer(fakeLoader{}, &fakeRefresher{}, Config{}, nil)
	rec := serve(t, s, http.MethodGet, "/v1/health", nil)

	assert.Contains(t, rec.Body.String(), `"lastScrape":null`)
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(Config{})
	h := s.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(Config{})
	rec := serve(t, s, http.MethodGet, "/v2/nothing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
