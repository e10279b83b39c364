// Package codec compresses exported reports.
package codec

// Codec encodes and decodes whole report payloads.
type Codec interface {
	// Encode returns the compressed form of data.
	Encode(data []byte) ([]byte, error)
	// Decode reverses Encode.
	Decode(data []byte) ([]byte, error)
	// Name identifies the codec in manifests and flags ("zstd", "gzip", "none").
	Name() string
	// Extension returns the file extension without dot, or "" for none.
	Extension() string
}
