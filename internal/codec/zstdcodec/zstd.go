// Package zstdcodec provides a zstd codec.
package zstdcodec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/discochess/gameweek/internal/codec"
)

var _ codec.Codec = (*Codec)(nil)

// Codec implements zstd compression. It is safe for concurrent use.
type Codec struct {
	level zstd.EncoderLevel

	once    sync.Once
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	initErr error
}

// Option configures a Codec.
type Option func(*Codec)

// WithLevel sets the encoder level. Default is zstd.SpeedDefault.
func WithLevel(level zstd.EncoderLevel) Option {
	return func(c *Codec) { c.level = level }
}

// New returns a zstd codec.
func New(opts ...Option) *Codec {
	c := &Codec{level: zstd.SpeedDefault}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Codec) init() error {
	c.once.Do(func() {
		c.enc, c.initErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(c.level))
		if c.initErr != nil {
			return
		}
		c.dec, c.initErr = zstd.NewReader(nil)
	})
	return c.initErr
}

// Encode compresses data.
func (c *Codec) Encode(data []byte) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return c.enc.EncodeAll(data, nil), nil
}

// Decode decompresses data.
func (c *Codec) Decode(data []byte) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	out, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: decoding: %w", err)
	}
	return out, nil
}

// Name returns "zstd".
func (c *Codec) Name() string { return "zstd" }

// Extension returns "zst".
func (c *Codec) Extension() string { return "zst" }
