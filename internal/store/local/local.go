// Package local persists the corpus as a JSON file on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/contest-crawler/internal/contest"
	"github.com/JakeFAU/contest-crawler/internal/store"
)

// Config captures the parameters for the file backend.
type Config struct {
	// Path is the JSON file holding the corpus.
	Path string `mapstructure:"path" yaml:"path"`
}

// Backend reads and writes a single corpus file.
type Backend struct {
	path string
}

// New creates a file backend, creating and probing the parent directory.
func New(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	dir := filepath.Dir(cfg.Path)

	info, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat directory: %w", err)
		}
		if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("parent path is not a directory")
	}

	testFile := filepath.Join(dir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &Backend{path: cfg.Path}, nil
}

// Read implements store.Backend.
func (b *Backend) Read(_ context.Context) (contest.Corpus, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return contest.Corpus{}, store.ErrNotFound
	}
	if err != nil {
		return contest.Corpus{}, fmt.Errorf("read corpus file: %w", err)
	}
	return store.Decode(data)
}

// Write implements store.Backend. The file is replaced atomically.
func (b *Backend) Write(_ context.Context, corpus contest.Corpus) error {
	data, err := store.Encode(corpus)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".corpus-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("replace corpus file: %w", err)
	}
	return nil
}
