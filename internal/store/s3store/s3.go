// Package s3store publishes reports to AWS S3 or an S3-compatible service.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/discochess/gameweek/internal/store"
)

var _ store.Store = (*Store)(nil)

// API is the subset of *s3.Client the store calls.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ API = (*s3.Client)(nil)

// Store is an S3 backend.
type Store struct {
	client      API
	bucket      string
	prefix      string
	contentType string
}

type settings struct {
	prefix      string
	region      string
	endpoint    string
	contentType string
}

// Option configures a Store.
type Option func(*settings)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *settings) { s.prefix = store.JoinPrefix(prefix) }
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(s *settings) { s.region = region }
}

// WithEndpoint sets a custom endpoint (MinIO and friends) and switches to
// path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) { s.endpoint = endpoint }
}

// WithContentType sets the Content-Type of written objects.
func WithContentType(ct string) Option {
	return func(s *settings) { s.contentType = ct }
}

// New creates an S3 store from the default AWS configuration chain.
// The bucket must already exist.
func New(ctx context.Context, bucketName string, opts ...Option) (*Store, error) {
	st := apply(opts)

	var loadOpts []func(*config.LoadOptions) error
	if st.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(st.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if st.endpoint != "" {
			o.BaseEndpoint = aws.String(st.endpoint)
			o.UsePathStyle = true
		}
	})
	return newStore(client, bucketName, st), nil
}

// NewWithClient wraps an existing client. Region and endpoint options are
// ignored.
func NewWithClient(client API, bucketName string, opts ...Option) *Store {
	return newStore(client, bucketName, apply(opts))
}

func apply(opts []Option) settings {
	st := settings{contentType: "application/octet-stream"}
	for _, opt := range opts {
		opt(&st)
	}
	return st
}

func newStore(client API, bucket string, st settings) *Store {
	return &Store{
		client:      client,
		bucket:      bucket,
		prefix:      st.prefix,
		contentType: st.contentType,
	}
}

// Put uploads data to key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	k, err := s.objectKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(k),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(s.contentType),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", k, err)
	}
	return nil
}

// Get downloads the object at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("downloading %s: %w", k, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", k, err)
	}
	return data, nil
}

// Close is a no-op; the S3 client holds no resources.
func (s *Store) Close() error {
	return nil
}

func (s *Store) objectKey(key string) (string, error) {
	key, err := store.CleanKey(key)
	if err != nil {
		return "", err
	}
	return s.prefix + key, nil
}
