// Package diskstore writes reports under a local directory.
package diskstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/discochess/gameweek/internal/store"
)

var _ store.Store = (*Store)(nil)

const (
	lockName       = ".gameweek.lock"
	lockRetryDelay = 50 * time.Millisecond
)

// Store is a directory-backed store. Writes are atomic (temp file plus
// rename) and serialized across processes by a lock file in the root, so
// two exporters sharing a directory never interleave a manifest update.
type Store struct {
	root string

	// mu serializes writers in this process; lock covers other processes.
	mu   sync.Mutex
	lock *flock.Flock
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating root directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return &Store{
		root: dir,
		lock: flock.New(filepath.Join(dir, lockName)),
	}, nil
}

// Root returns the store's directory.
func (s *Store) Root() string { return s.root }

// Put atomically replaces the file at key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("locking %s: %w", s.root, err)
	}
	if !locked {
		return fmt.Errorf("locking %s: %w", s.root, ctx.Err())
	}
	defer s.lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("renaming %s: %w", key, err)
	}
	return nil
}

// Get reads the file at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Close releases the lock file handle.
func (s *Store) Close() error {
	return s.lock.Close()
}

func (s *Store) path(key string) (string, error) {
	key, err := store.CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}
