// Package gcsstore publishes reports to Google Cloud Storage.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/discochess/gameweek/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is a Google Cloud Storage backend.
type Store struct {
	client      *storage.Client
	ownsClient  bool
	bucket      *storage.BucketHandle
	prefix      string
	contentType string
	clientOpts  []option.ClientOption
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = store.JoinPrefix(prefix) }
}

// WithContentType sets the Content-Type of written objects.
func WithContentType(ct string) Option {
	return func(s *Store) { s.contentType = ct }
}

// WithClientOptions passes options to the client New creates. Ignored by
// NewWithClient.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(s *Store) { s.clientOpts = append(s.clientOpts, opts...) }
}

// New creates a GCS store with application default credentials unless
// client options say otherwise. The bucket must already exist.
func New(ctx context.Context, bucketName string, opts ...Option) (*Store, error) {
	s := configure(opts)
	client, err := storage.NewClient(ctx, s.clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}
	s.client = client
	s.bucket = client.Bucket(bucketName)
	s.ownsClient = true
	return s, nil
}

// NewWithClient wraps an existing client. Close leaves the client open.
func NewWithClient(client *storage.Client, bucketName string, opts ...Option) *Store {
	s := configure(opts)
	s.client = client
	s.bucket = client.Bucket(bucketName)
	return s
}

func configure(opts []Option) *Store {
	s := &Store{contentType: "application/octet-stream"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put uploads data to key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	name, err := s.objectName(key)
	if err != nil {
		return err
	}

	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = s.contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("uploading %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", name, err)
	}
	return nil
}

// Get downloads the object at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	name, err := s.objectName(key)
	if err != nil {
		return nil, err
	}

	r, err := s.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// Close closes the client if New created it.
func (s *Store) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.client.Close()
}

func (s *Store) objectName(key string) (string, error) {
	key, err := store.CleanKey(key)
	if err != nil {
		return "", err
	}
	return s.prefix + key, nil
}
