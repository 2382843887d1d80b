package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contest-crawler/internal/contest"
	"github.com/JakeFAU/contest-crawler/internal/refresh"
)

func TestSourcesCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"sources"})

	require.NoError(t, root.ExecuteContext(context.Background()))

	text := out.String()
	assert.Contains(t, text, "jeu-concours-biz")
	assert.Contains(t, text, "gleam")
	assert.Contains(t, text, "generic")
}

func TestScrapeFailsOnMissingConfig(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"scrape", "--config", filepath.Join(t.TempDir(), "absent.yaml")})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestResolveAppWithoutApp(t *testing.T) {
	_, err := resolveApp(context.Background())
	assert.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	err := printResult(&out, refresh.Result{
		Corpus: contest.Corpus{Total: 12},
		Stats:  contest.RunStats{RunID: "run-1", Duration: 1500, Found: 4},
		Batch: contest.Batch{Reports: []contest.SourceReport{
			{Source: "gleam", Attempted: 1, Failed: 1, Error: "fetch failed"},
			{Source: "ledemondujeu", Attempted: 1, Found: 4, Skipped: 2},
		}},
		Saved: true,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "run-1")
	assert.Contains(t, text, "1500ms")
	assert.Contains(t, text, "fetch failed")
	assert.Contains(t, text, "1/1")
}
