package engine

import (
	"github.com/termkv/termkv/internal/codec"
	"github.com/termkv/termkv/internal/logging"
	"github.com/termkv/termkv/internal/vfs"
)

// Logger is an alias for the logging.Logger interface, so callers can
// plug in their own implementation without importing internal/logging.
type Logger = logging.Logger

// Compression is an alias for the value-compression codec type.
type Compression = codec.Type

// Supported value-compression algorithms.
const (
	CompressionNone   = codec.None
	CompressionSnappy = codec.Snappy
	CompressionLZ4    = codec.LZ4
	CompressionZstd   = codec.Zstd
)

// Options configures an Engine.
type Options struct {
	// FS is the filesystem implementation to use. If nil, the OS
	// filesystem is used.
	FS vfs.FS

	// Logger receives the engine's compaction diagnostics. If nil, a
	// WARN-level logger writing to stderr is used (logging.OrDefault).
	Logger Logger

	// CompactionThreshold is the uncompacted-bytes watermark that
	// triggers compaction after a successful set/remove.
	CompactionThreshold uint64

	// ValueCompression is the codec preferred for new Set values. Values
	// already on disk under a different codec remain readable; the codec
	// used is recorded per-record.
	ValueCompression Compression

	// Variant is recorded in D/engine on first Open and compared on every
	// subsequent Open; a mismatch is ErrEngineMismatch.
	Variant string
}

// DefaultOptions returns the Options termkv uses unless overridden.
func DefaultOptions() *Options {
	return &Options{
		FS:                  nil,     // vfs.Default() at Open
		Logger:              nil,     // logging.OrDefault at Open
		CompactionThreshold: 1 << 20, // 1 MiB
		ValueCompression:    CompressionSnappy,
		Variant:             "kvs",
	}
}
