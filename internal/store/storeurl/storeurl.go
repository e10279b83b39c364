// Package storeurl opens a store from a location string: a local
// directory, gs://bucket/prefix, s3://bucket/prefix or mem://name.
//
// mem:// stores live for the life of the process and are shared by name,
// so a tracker and a report reader in one process can meet there.
//
// S3 locations accept "region" and "endpoint" query parameters; otherwise
// the AWS default configuration chain applies.
package storeurl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"google.golang.org/api/option"

	"github.com/discochess/gameweek/internal/store"
	"github.com/discochess/gameweek/internal/store/diskstore"
	"github.com/discochess/gameweek/internal/store/gcsstore"
	"github.com/discochess/gameweek/internal/store/memstore"
	"github.com/discochess/gameweek/internal/store/s3store"
)

// Schemes.
const (
	Disk = "file"
	GCS  = "gs"
	S3   = "s3"
	Mem  = "mem"
)

var (
	// ErrScheme is returned for a URL whose scheme names no backend.
	ErrScheme = errors.New("storeurl: unsupported scheme")

	// ErrBucket is returned for a bucket URL without a bucket.
	ErrBucket = errors.New("storeurl: missing bucket")
)

// Location is a parsed store location.
type Location struct {
	Scheme string

	// Path is the directory of a disk location.
	Path string

	Bucket string
	Prefix string

	Region   string
	Endpoint string
}

// Parse splits location into its backend and coordinates. Anything
// without "://" is a directory path.
func Parse(location string) (Location, error) {
	if location == "" {
		return Location{}, errors.New("storeurl: empty location")
	}
	if !strings.Contains(location, "://") {
		return Location{Scheme: Disk, Path: location}, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return Location{}, fmt.Errorf("storeurl: parsing %q: %w", location, err)
	}

	switch scheme := strings.ToLower(u.Scheme); scheme {
	case Disk:
		if u.Path == "" {
			return Location{}, fmt.Errorf("storeurl: %q has no path", location)
		}
		return Location{Scheme: Disk, Path: u.Path}, nil
	case GCS, "gcs", S3:
		if u.Host == "" {
			return Location{}, fmt.Errorf("%w: %q", ErrBucket, location)
		}
		loc := Location{
			Scheme: scheme,
			Bucket: u.Host,
			Prefix: strings.Trim(u.Path, "/"),
		}
		if scheme == "gcs" {
			loc.Scheme = GCS
		}
		if loc.Scheme == S3 {
			q := u.Query()
			loc.Region = q.Get("region")
			loc.Endpoint = q.Get("endpoint")
		}
		return loc, nil
	case Mem:
		if u.Host == "" {
			return Location{}, fmt.Errorf("%w: %q", ErrBucket, location)
		}
		if strings.Trim(u.Path, "/") != "" {
			return Location{}, fmt.Errorf("storeurl: %q: memory stores take no prefix", location)
		}
		return Location{Scheme: Mem, Bucket: u.Host}, nil
	default:
		return Location{}, fmt.Errorf("%w %q", ErrScheme, u.Scheme)
	}
}

// String renders the location back to its URL form.
func (l Location) String() string {
	if l.Scheme == Disk {
		return l.Path
	}
	s := l.Scheme + "://" + l.Bucket
	if l.Prefix != "" {
		s += "/" + l.Prefix
	}
	return s
}

var (
	memMu    sync.Mutex
	memByKey = map[string]*memstore.Store{}
)

func memStore(name string) *memstore.Store {
	memMu.Lock()
	defer memMu.Unlock()
	s, ok := memByKey[name]
	if !ok {
		s = memstore.New()
		memByKey[name] = s
	}
	return s
}

type config struct {
	gcsOpts []option.ClientOption
}

// Option configures Open.
type Option func(*config)

// WithGCSClientOptions passes client options to GCS locations.
func WithGCSClientOptions(opts ...option.ClientOption) Option {
	return func(c *config) { c.gcsOpts = append(c.gcsOpts, opts...) }
}

// Open parses location and builds the matching store.
func Open(ctx context.Context, location string, opts ...Option) (store.Store, error) {
	loc, err := Parse(location)
	if err != nil {
		return nil, err
	}
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	var st store.Store
	switch loc.Scheme {
	case GCS:
		st, err = gcsstore.New(ctx, loc.Bucket,
			gcsstore.WithPrefix(loc.Prefix),
			gcsstore.WithClientOptions(cfg.gcsOpts...),
		)
	case S3:
		s3opts := []s3store.Option{s3store.WithPrefix(loc.Prefix)}
		if loc.Region != "" {
			s3opts = append(s3opts, s3store.WithRegion(loc.Region))
		}
		if loc.Endpoint != "" {
			s3opts = append(s3opts, s3store.WithEndpoint(loc.Endpoint))
		}
		st, err = s3store.New(ctx, loc.Bucket, s3opts...)
	case Mem:
		st = memStore(loc.Bucket)
	default:
		st, err = diskstore.New(loc.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", loc, err)
	}
	return st, nil
}
