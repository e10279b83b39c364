// Package codecs resolves a codec from its configured name.
package codecs

import (
	"errors"
	"fmt"

	"github.com/discochess/gameweek/internal/codec"
	"github.com/discochess/gameweek/internal/codec/gzipcodec"
	"github.com/discochess/gameweek/internal/codec/noopcodec"
	"github.com/discochess/gameweek/internal/codec/zstdcodec"
)

// ErrUnknown indicates a compression name with no codec.
var ErrUnknown = errors.New("codecs: unknown compression")

// ByName returns the codec for a --compression flag value. Both the codec
// name and its file extension are accepted.
func ByName(name string) (codec.Codec, error) {
	switch name {
	case "zstd", "zst":
		return zstdcodec.New(), nil
	case "gzip", "gz":
		return gzipcodec.New(-1), nil
	case "none", "":
		return noopcodec.New(), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknown, name)
	}
}
