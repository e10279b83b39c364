package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/discochess/gameweek/internal/store"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestStore_PutGet(t *testing.T) {
	fake := newFakeS3()
	s := NewWithClient(fake, "reports", WithPrefix("/gameweek/"), WithContentType("application/zstd"))
	ctx := context.Background()

	if err := s.Put(ctx, "2024-W23/alice.json.zst", []byte("payload")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, ok := fake.objects["reports/gameweek/2024-W23/alice.json.zst"]; !ok {
		t.Errorf("objects = %v, want prefixed key", fake.objects)
	}
	if ct := fake.types["reports/gameweek/2024-W23/alice.json.zst"]; ct != "application/zstd" {
		t.Errorf("content type = %q", ct)
	}

	got, err := s.Get(ctx, "2024-W23/alice.json.zst")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Get() = %q", got)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s := NewWithClient(newFakeS3(), "reports")
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_PutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	s := NewWithClient(fake, "reports")

	err := s.Put(context.Background(), "manifest.json", nil)
	if err == nil || !errors.Is(err, fake.putErr) {
		t.Errorf("Put() error = %v, want wrapped access denied", err)
	}
	if err := s.Put(context.Background(), "../x", nil); !errors.Is(err, store.ErrInvalidKey) {
		t.Errorf("Put(../x) error = %v, want ErrInvalidKey", err)
	}
}
