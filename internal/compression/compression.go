// Package compression provides the codecs termkv can store Set values
// under. internal/codec chooses one per record and records the choice
// alongside the value, so every codec here must stay decodable no matter
// what the engine's current compression option says.
package compression

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type tags the compression algorithm a stored value was encoded with.
// The numeric values are persisted in record envelopes and must not be
// reassigned.
type Type uint8

const (
	// NoCompression stores the value raw.
	NoCompression Type = 0

	// SnappyCompression uses Google Snappy.
	SnappyCompression Type = 1

	// LZ4Compression uses LZ4 raw block format.
	LZ4Compression Type = 2

	// ZstdCompression uses Zstandard.
	ZstdCompression Type = 3
)

// String returns the human-readable name of the compression type.
func (t Type) String() string {
	switch t {
	case NoCompression:
		return "NoCompression"
	case SnappyCompression:
		return "Snappy"
	case LZ4Compression:
		return "LZ4"
	case ZstdCompression:
		return "ZSTD"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// IsSupported returns true if this build can encode and decode t.
func (t Type) IsSupported() bool {
	switch t {
	case NoCompression, SnappyCompression, LZ4Compression, ZstdCompression:
		return true
	default:
		return false
	}
}

// Compress compresses data using the specified compression type. An
// empty result with a nil error means the input was incompressible and
// the caller should store it raw.
func Compress(t Type, data []byte) ([]byte, error) {
	switch t {
	case NoCompression:
		return data, nil

	case SnappyCompression:
		return snappy.Encode(nil, data), nil

	case LZ4Compression:
		return compressLZ4(data)

	case ZstdCompression:
		return compressZstd(data)

	default:
		return nil, fmt.Errorf("unsupported compression type: %s", t)
	}
}

// compressLZ4 uses the raw block format. The frame format's magic bytes
// and headers would be pure overhead inside an already-framed record.
func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	var ht [1 << 16]int
	n, err := lz4.CompressBlock(data, dst, ht[:])
	if err != nil {
		return nil, fmt.Errorf("lz4 compress block: %w", err)
	}
	if n == 0 || n >= len(data) {
		// Incompressible input: with a bound-sized dst lz4 emits a
		// literal-only block that is longer than the input.
		return nil, nil
	}
	return dst[:n], nil
}

// compressZstd compresses data using Zstandard.
func compressZstd(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return encoder.EncodeAll(data, nil), nil
}

// Decompress decompresses data using the specified compression type.
func Decompress(t Type, data []byte) ([]byte, error) {
	switch t {
	case NoCompression:
		return data, nil

	case SnappyCompression:
		return snappy.Decode(nil, data)

	case LZ4Compression:
		return decompressLZ4(data)

	case ZstdCompression:
		return decompressZstd(data)

	default:
		return nil, fmt.Errorf("unsupported compression type: %s", t)
	}
}

// decompressLZ4 decompresses LZ4 raw block data. The block format does
// not record the uncompressed size and neither does the record envelope,
// so retry with a growing buffer.
func decompressLZ4(data []byte) ([]byte, error) {
	bufSize := max(len(data)*4, 256)

	for i := 0; i < 10; i++ {
		dst := make([]byte, bufSize)
		n, err := lz4.UncompressBlock(data, dst)
		if err == nil {
			return dst[:n], nil
		}
		bufSize *= 2
	}

	return nil, fmt.Errorf("lz4 uncompress block: buffer too small after retries")
}

// decompressZstd decompresses Zstandard data.
func decompressZstd(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer decoder.Close()
	return decoder.DecodeAll(data, nil)
}
