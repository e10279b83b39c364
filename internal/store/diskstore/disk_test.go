package diskstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/discochess/gameweek/internal/store"
)

func TestStore_PutGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Put(ctx, "2024-W23/alice.json", []byte("v1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "2024-W23/alice.json", []byte("v2")); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}

	got, err := s.Get(ctx, "2024-W23/alice.json")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Get() = %q, want %q", got, "v2")
	}

	onDisk, err := os.ReadFile(filepath.Join(dir, "2024-W23", "alice.json"))
	if err != nil || string(onDisk) != "v2" {
		t.Errorf("file content = %q, %v", onDisk, err)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "2024-W23"))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, temp files left behind", len(entries))
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if _, err := s.Get(context.Background(), "missing.json"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_RejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	for _, key := range []string{"../x", "/abs", ""} {
		if err := s.Put(ctx, key, []byte("x")); !errors.Is(err, store.ErrInvalidKey) {
			t.Errorf("Put(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestStore_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(file); err == nil {
		t.Error("New() on a regular file should fail")
	}
}

func TestStore_ConcurrentPuts(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Put(ctx, "manifest.json", []byte{byte('a' + i)}); err != nil {
				t.Errorf("Put() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "manifest.json")
	if err != nil || len(got) != 1 {
		t.Errorf("Get() = %q, %v", got, err)
	}
}

func TestStore_GetCanceled(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Get(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}
