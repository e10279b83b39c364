package storeurl

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"google.golang.org/api/option"

	"github.com/discochess/gameweek/internal/store/diskstore"
	"github.com/discochess/gameweek/internal/store/gcsstore"
	"github.com/discochess/gameweek/internal/store/memstore"
	"github.com/discochess/gameweek/internal/store/s3store"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Location
	}{
		{"reports", Location{Scheme: Disk, Path: "reports"}},
		{"/var/lib/gameweek", Location{Scheme: Disk, Path: "/var/lib/gameweek"}},
		{"file:///var/lib/gameweek", Location{Scheme: Disk, Path: "/var/lib/gameweek"}},
		{"gs://reports", Location{Scheme: GCS, Bucket: "reports"}},
		{"gs://reports/gameweek/weekly/", Location{Scheme: GCS, Bucket: "reports", Prefix: "gameweek/weekly"}},
		{"gcs://reports/gameweek", Location{Scheme: GCS, Bucket: "reports", Prefix: "gameweek"}},
		{"s3://reports/gameweek", Location{Scheme: S3, Bucket: "reports", Prefix: "gameweek"}},
		{"mem://reports", Location{Scheme: Mem, Bucket: "reports"}},
		{
			"s3://reports/evals?region=eu-west-1&endpoint=http://localhost:9000",
			Location{Scheme: S3, Bucket: "reports", Prefix: "evals", Region: "eu-west-1", Endpoint: "http://localhost:9000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"ftp://host/dir", ErrScheme},
		{"azblob://container/prefix", ErrScheme},
		{"gs:///prefix", ErrBucket},
		{"s3://", ErrBucket},
		{"mem://", ErrBucket},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if _, err := Parse(tt.input); !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Parse(""); err == nil {
		t.Error("Parse(\"\") should fail")
	}
}

func TestLocation_String(t *testing.T) {
	for _, in := range []string{"reports", "gs://reports/gameweek", "s3://reports"} {
		loc, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", in, err)
		}
		if got := loc.String(); got != in {
			t.Errorf("String() = %q, want %q", got, in)
		}
	}
}

func TestOpen_Disk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	st, err := Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer st.Close()

	if _, ok := st.(*diskstore.Store); !ok {
		t.Fatalf("Open() = %T, want *diskstore.Store", st)
	}
	ctx := context.Background()
	if err := st.Put(ctx, "2024-W23/alice.json", []byte("{}")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if got, err := st.Get(ctx, "2024-W23/alice.json"); err != nil || string(got) != "{}" {
		t.Errorf("Get() = %q, %v", got, err)
	}
}

func TestOpen_Buckets(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	tests := []struct {
		location string
		check    func(any) bool
	}{
		{"gs://reports/gameweek", func(v any) bool { _, ok := v.(*gcsstore.Store); return ok }},
		{"s3://reports/gameweek?region=us-east-1", func(v any) bool { _, ok := v.(*s3store.Store); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			st, err := Open(context.Background(), tt.location,
				WithGCSClientOptions(option.WithoutAuthentication()))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer st.Close()
			if !tt.check(st) {
				t.Errorf("Open() = %T", st)
			}
		})
	}
}

func TestOpen_MemSharedByName(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, "mem://shared-reports")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, ok := a.(*memstore.Store); !ok {
		t.Fatalf("Open() = %T, want *memstore.Store", a)
	}
	if err := a.Put(ctx, "manifest.json", []byte("{}")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	_ = a.Close()

	b, _ := Open(ctx, "mem://shared-reports")
	if got, err := b.Get(ctx, "manifest.json"); err != nil || string(got) != "{}" {
		t.Errorf("second Open() Get() = %q, %v", got, err)
	}
	other, _ := Open(ctx, "mem://other-reports")
	if _, err := other.Get(ctx, "manifest.json"); err == nil {
		t.Error("distinct names should not share objects")
	}

	if _, err := Open(ctx, "mem://shared-reports/prefix"); err == nil {
		t.Error("Open() should reject a memory location with a prefix")
	}
}

func TestOpen_BadScheme(t *testing.T) {
	st, err := Open(context.Background(), "ftp://host/dir")
	if !errors.Is(err, ErrScheme) {
		t.Errorf("Open() error = %v, want ErrScheme", err)
	}
	if st != nil {
		t.Errorf("Open() = %v, want nil store", st)
	}
}
