// Package noopcodec stores reports uncompressed.
package noopcodec

import "github.com/discochess/gameweek/internal/codec"

var _ codec.Codec = Codec{}

// Codec passes data through unchanged.
type Codec struct{}

// New returns the pass-through codec.
func New() Codec { return Codec{} }

// Encode returns data as is.
func (Codec) Encode(data []byte) ([]byte, error) { return data, nil }

// Decode returns data as is.
func (Codec) Decode(data []byte) ([]byte, error) { return data, nil }

// Name returns "none".
func (Codec) Name() string { return "none" }

// Extension returns "".
func (Codec) Extension() string { return "" }
