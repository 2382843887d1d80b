// Package gcs persists the corpus as a JSON object in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/contest-crawler/internal/contest"
	"github.com/JakeFAU/contest-crawler/internal/store"
)

// DefaultObject is the object name used when none is configured.
const DefaultObject = "contests/corpus.json"

// Config captures the parameters required to locate the corpus object.
type Config struct {
	Bucket string
	Object string
}

// Backend reads and writes the corpus object.
type Backend struct {
	client *storage.Client
	bucket string
	object string
}

// New creates a GCS-backed store backend.
func New(client *storage.Client, cfg Config) (*Backend, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	object := strings.TrimSpace(cfg.Object)
	if object == "" {
		object = DefaultObject
	}
	return &Backend{
		client: client,
		bucket: cfg.Bucket,
		object: object,
	}, nil
}

// URI returns the gs:// location of the corpus.
func (b *Backend) URI() string {
	return fmt.Sprintf("gs://%s/%s", b.bucket, b.object)
}

// Read implements store.Backend.
func (b *Backend) Read(ctx context.Context) (contest.Corpus, error) {
	reader, err := b.client.Bucket(b.bucket).Object(b.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return contest.Corpus{}, store.ErrNotFound
	}
	if err != nil {
		return contest.Corpus{}, fmt.Errorf("open %s: %w", b.URI(), err)
	}
	defer reader.Close() //nolint:errcheck // read-only
	data, err := io.ReadAll(reader)
	if err != nil {
		return contest.Corpus{}, fmt.Errorf("read %s: %w", b.URI(), err)
	}
	return store.Decode(data)
}

// Write implements store.Backend.
func (b *Backend) Write(ctx context.Context, corpus contest.Corpus) error {
	data, err := store.Encode(corpus)
	if err != nil {
		return err
	}
	writer := b.client.Bucket(b.bucket).Object(b.object).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}
