// Package memory keeps the corpus in process memory for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/contest-crawler/internal/contest"
	"github.com/JakeFAU/contest-crawler/internal/store"
)

// Backend stores an encoded snapshot so callers never share slices with it.
type Backend struct {
	mu   sync.RWMutex
	data []byte
}

// New creates an empty Backend.
func New() *Backend {
	return &Backend{}
}

// Read implements store.Backend.
func (b *Backend) Read(_ context.Context) (contest.Corpus, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return contest.Corpus{}, store.ErrNotFound
	}
	return store.Decode(b.data)
}

// Write implements store.Backend.
func (b *Backend) Write(_ context.Context, corpus contest.Corpus) error {
	data, err := store.Encode(corpus)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.data = data
	b.mu.Unlock()
	return nil
}
