// Package codec selects and applies value compression for termkv Set
// records, deciding per record whether a value is worth running through
// one of the internal/compression codecs.
package codec

import "github.com/termkv/termkv/internal/compression"

// Type is the compression algorithm recorded per-record so that values
// written under a different Options.ValueCompression remain readable
// after the option changes.
type Type = compression.Type

// Supported value-compression algorithms.
const (
	None   = compression.NoCompression
	Snappy = compression.SnappyCompression
	LZ4    = compression.LZ4Compression
	Zstd   = compression.ZstdCompression
)

// MinSize is the smallest value length worth compressing. Shorter values
// are stored as None regardless of the preferred codec: the per-record
// codec byte plus JSON base64 overhead would outweigh any savings.
const MinSize = 256

// Encode compresses value with prefer if it is long enough and prefer is
// supported, returning the payload to embed on disk and the codec that
// was actually used (None for short or incompressible values).
func Encode(prefer Type, value []byte) (payload []byte, used Type, err error) {
	if prefer == compression.NoCompression || len(value) < MinSize || !prefer.IsSupported() {
		return value, compression.NoCompression, nil
	}
	out, err := compression.Compress(prefer, value)
	if err != nil {
		return nil, 0, err
	}
	// Incompressible input: lz4 signals this with an empty block, and any
	// codec can come back bigger than it went in. Store raw.
	if len(out) == 0 || len(out) >= len(value) {
		return value, compression.NoCompression, nil
	}
	return out, prefer, nil
}

// Decode reverses Encode given the codec recorded alongside the payload.
func Decode(used Type, payload []byte) ([]byte, error) {
	if used == compression.NoCompression {
		return payload, nil
	}
	return compression.Decompress(used, payload)
}
