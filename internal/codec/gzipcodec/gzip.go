// Package gzipcodec provides a gzip codec.
package gzipcodec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/discochess/gameweek/internal/codec"
)

var _ codec.Codec = (*Codec)(nil)

// Codec implements gzip compression.
type Codec struct {
	level int
}

// New returns a gzip codec at the given level. Levels outside
// gzip.HuffmanOnly..gzip.BestCompression fall back to the default.
func New(level int) *Codec {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	return &Codec{level: level}
}

// Encode compresses data.
func (c *Codec) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip: writing: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip: closing: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses data.
func (c *Codec) Decode(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip: reading: %w", err)
	}
	return out, nil
}

// Name returns "gzip".
func (c *Codec) Name() string { return "gzip" }

// Extension returns "gz".
func (c *Codec) Extension() string { return "gz" }
