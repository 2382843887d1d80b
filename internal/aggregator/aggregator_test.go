package aggregator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contest-crawler/internal/contest"
	"github.com/JakeFAU/contest-crawler/internal/parser"
	"github.com/JakeFAU/contest-crawler/internal/source"
)

var runAt = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, nil
	}
	return []byte(body), nil
}

type panicAdapter struct{}

func (panicAdapter) Name() string                          { return "panic" }
func (panicAdapter) Extract(parser.Page) parser.Extraction { panic("bad markup") }

type recorded struct {
	source         string
	found, skipped int
	failed         bool
}

type fakeRecorder struct{ events []recorded }

func (r *fakeRecorder) ObserveSource(source string, found, skipped int, failed bool) {
	r.events = append(r.events, recorded{source, found, skipped, failed})
}

func block(title string, value int) string {
	return fmt.Sprintf(`<article><h2>%s</h2><p>%d €</p><a href="/c">x</a></article>`, title, value)
}

func newRegistry(t *testing.T, srcs ...contest.Source) *source.Registry {
	t.Helper()
	reg := source.New(parser.NewGeneric(nil))
	for _, s := range srcs {
		require.NoError(t, reg.Register(s, nil))
	}
	return reg
}

func src(id string, urls ...string) contest.Source {
	return contest.Source{ID: id, Name: id + " name", Icon: "*", Color: "#000", Country: contest.CountryFR, URLs: urls}
}

func newTestAggregator(reg Registry, f Fetcher, opts ...Option) (*Aggregator, *[]time.Duration) {
	a := New(Config{SourceDelay: time.Second}, reg, f, append([]Option{WithClock(func() time.Time { return runAt })}, opts...)...)
	var delays []time.Duration
	a.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return a, &delays
}

func TestRunAllIsolatesSourceFailures(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t,
		src("a", "https://a.test/1"),
		src("b", "https://b.test/1"),
		src("c", "https://c.test/1"),
	)
	f := &fakeFetcher{
		pages: map[string]string{
			"https://a.test/1": block("Thermomix TM6 cuisine", 1499),
			"https://c.test/1": block("Séjour Thalasso Pornic", 1324),
		},
		errs: map[string]error{"https://b.test/1": errors.New("dial tcp: timeout")},
	}
	rec := &fakeRecorder{}
	a, delays := newTestAggregator(reg, f, WithRecorder(rec))

	batch, err := a.RunAll(context.Background())

	require.NoError(t, err)
	require.Len(t, batch.Contests, 2)
	assert.Equal(t, 2, batch.Total)
	assert.Equal(t, 3, batch.Sources)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, "b", batch.Errors[0].Source)
	assert.Contains(t, batch.Errors[0].Message, "timeout")
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *delays)
	assert.Equal(t, runAt, batch.ScrapedAt)

	assert.Equal(t, "a", batch.Contests[0].Source)
	assert.Equal(t, "a name", batch.Contests[0].SourceName)
	assert.Equal(t, contest.CountryFR, batch.Contests[0].Country)
	assert.Equal(t, contest.CategoryMaison, batch.Contests[0].Category)
	assert.Equal(t, "https://a.test/c", batch.Contests[0].URL)

	require.Len(t, rec.events, 3)
	assert.True(t, rec.events[1].failed)
	assert.Equal(t, 1, rec.events[2].found)
}

func TestRunAllPartialURLFailureIsNotSourceError(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, src("a", "https://a.test/1", "https://a.test/2"))
	f := &fakeFetcher{
		pages: map[string]string{"https://a.test/2": block("PlayStation 5 Pro", 799)},
		errs:  map[string]error{"https://a.test/1": errors.New("reset")},
	}
	a, _ := newTestAggregator(reg, f)

	batch, err := a.RunAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, batch.Errors)
	require.Len(t, batch.Contests, 1)
	require.Len(t, batch.Reports, 1)
	assert.Equal(t, contest.SourceReport{Source: "a", Attempted: 2, Failed: 1, Found: 1}, batch.Reports[0])
}

func TestRunAllNoContentIsNotAnError(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, src("a", "https://a.test/missing"))
	a, _ := newTestAggregator(reg, &fakeFetcher{})

	batch, err := a.RunAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, batch.Errors)
	assert.Empty(t, batch.Contests)
	assert.NotNil(t, batch.Errors)
}

func TestRunAllAdapterPanicIsSourceError(t *testing.T) {
	t.Parallel()

	reg := source.New(parser.NewGeneric(nil))
	require.NoError(t, reg.Register(src("boom", "https://boom.test/"), panicAdapter{}))
	require.NoError(t, reg.Register(src("ok", "https://ok.test/"), nil))
	f := &fakeFetcher{pages: map[string]string{
		"https://boom.test/": "<html></html>",
		"https://ok.test/":   block("Steam Deck OLED", 549),
	}}
	a, _ := newTestAggregator(reg, f)

	batch, err := a.RunAll(context.Background())

	require.NoError(t, err)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, "boom", batch.Errors[0].Source)
	assert.Contains(t, batch.Errors[0].Message, "bad markup")
	require.Len(t, batch.Contests, 1)
	assert.Equal(t, "ok", batch.Contests[0].Source)
}

func TestRunAllDedupsAndSorts(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, src("a", "https://a.test/"), src("b", "https://b.test/"))
	f := &fakeFetcher{pages: map[string]string{
		"https://a.test/": block("RTX 5090 Founders Edition Giveaway Europe", 1999) + block("Canon EOS 2000D", 400),
		"https://b.test/": block("RTX 5090 Founders Edition Giveaway USA", 2100) + block("Galaxy Book 5 Pro", 1800),
	}}
	a, _ := newTestAggregator(reg, f)

	batch, err := a.RunAll(context.Background())

	require.NoError(t, err)
	titles := make([]string, 0, len(batch.Contests))
	for _, c := range batch.Contests {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"RTX 5090 Founders Edition Giveaway Europe", "Galaxy Book 5 Pro", "Canon EOS 2000D"}, titles)
	for i := 1; i < len(batch.Contests); i++ {
		assert.GreaterOrEqual(t, batch.Contests[i-1].Value, batch.Contests[i].Value)
	}
}

func TestRunAllStampsUniqueIDs(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, src("a", "https://a.test/1", "https://a.test/2"))
	f := &fakeFetcher{pages: map[string]string{
		"https://a.test/1": block("Thermomix TM6", 1499),
		"https://a.test/2": block("Four AEG encastrable", 799),
	}}
	a, _ := newTestAggregator(reg, f)

	batch, err := a.RunAll(context.Background())

	require.NoError(t, err)
	require.Len(t, batch.Contests, 2)
	ids := map[string]bool{}
	for _, c := range batch.Contests {
		ids[c.ID] = true
	}
	assert.Len(t, ids, 2)
	assert.True(t, ids[contest.NewID("a", runAt, 0)])
	assert.True(t, ids[contest.NewID("a", runAt, 1)])
}

func TestRunAllUsesRendererForRenderSources(t *testing.T) {
	t.Parallel()

	rendered := src("js", "https://js.test/")
	rendered.Render = true
	reg := newRegistry(t, rendered, src("plain", "https://plain.test/"))
	plain := &fakeFetcher{pages: map[string]string{"https://plain.test/": block("Casque Bose QuietComfort", 330)}}
	browser := &fakeFetcher{pages: map[string]string{"https://js.test/": block("MacBook Air gaming", 1299)}}
	a, _ := newTestAggregator(reg, plain, WithRenderer(browser))

	batch, err := a.RunAll(context.Background())

	require.NoError(t, err)
	assert.Len(t, batch.Contests, 2)
	assert.Equal(t, []string{"https://js.test/"}, browser.calls)
	assert.Equal(t, []string{"https://plain.test/"}, plain.calls)
}

func TestRunAllCanceled(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, src("a", "https://a.test/"))
	a, _ := newTestAggregator(reg, &fakeFetcher{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.RunAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDedupIdempotent(t *testing.T) {
	t.Parallel()

	in := []contest.Contest{
		{ID: "1", Title: "RTX 5090 Founders Edition Giveaway"},
		{ID: "2", Title: "RTX 5090 Founders Edition Now Open"},
		{ID: "3", Title: "rtx 5090 founders edition giveaway!"},
		{ID: "4", Title: "Thermomix"},
	}
	once := Dedup(in, DefaultDedupPrefix)
	require.Len(t, once, 3)
	assert.Equal(t, []string{"1", "2", "4"}, []string{once[0].ID, once[1].ID, once[2].ID})
	assert.Equal(t, once, Dedup(once, DefaultDedupPrefix))
}

func TestDedupSharedPrefixKeepsFirst(t *testing.T) {
	t.Parallel()

	// The two titles agree on their first 26 runes ("rtx 5090 founders edition ").
	in := []contest.Contest{
		{ID: "first", Title: "RTX 5090 Founders Edition Giveaway"},
		{ID: "second", Title: "RTX 5090 Founders Edition Now Open"},
	}
	out := Dedup(in, 26)
	require.Len(t, out, 1)
	assert.Equal(t, "first", out[0].ID)

	long := []contest.Contest{
		{ID: "first", Title: "RTX 5090 Founders Edition Giveaway Europe"},
		{ID: "second", Title: "RTX 5090 Founders Edition Giveaway USA"},
	}
	out = Dedup(long, DefaultDedupPrefix)
	require.Len(t, out, 1)
	assert.Equal(t, "first", out[0].ID)
}

func TestSortByValueStable(t *testing.T) {
	t.Parallel()

	recs := []contest.Contest{{ID: "a", Value: 10}, {ID: "b", Value: 30}, {ID: "c", Value: 10}, {ID: "d", Value: 30}}
	SortByValue(recs)
	got := []string{recs[0].ID, recs[1].ID, recs[2].ID, recs[3].ID}
	assert.Equal(t, []string{"b", "d", "a", "c"}, got)
}
