// Package termkv is a persistent, networked key/value store for string
// keys and string values, built on a log-structured storage engine: an
// append-only command log partitioned by term, an in-memory index over
// log positions with lock-free reads, and online compaction that
// rewrites live records into a new term without blocking readers.
package termkv

import (
	"github.com/termkv/termkv/internal/engine"
)

// KvsEngine is the capability set every storage engine variant exposes
// to the network server: thread-safe set/get/remove, plus cheap cloning
// so each connection's goroutine can hold an independent reader view
// over shared state.
type KvsEngine interface {
	// Set inserts or overwrites key's value.
	Set(key, value string) error

	// Get returns key's current value, or found=false if it is absent.
	Get(key string) (value string, found bool, err error)

	// Remove deletes key, failing with ErrKeyNotFound if it is absent.
	Remove(key string) error

	// Clone returns an engine view sharing all durable state but with an
	// independent file-handle cache, safe for use from one goroutine.
	Clone() KvsEngine

	// Close releases this view's resources. Closing the view returned by
	// Open additionally flushes and closes the writer.
	Close() error
}

// Engine is the log-structured storage engine. The zero value is not
// usable; construct with Open.
type Engine struct {
	*engine.Engine
}

var _ KvsEngine = Engine{}

// Options configures an Engine. See DefaultOptions for the defaults.
type Options = engine.Options

// DefaultOptions returns the Options termkv uses unless overridden.
func DefaultOptions() *Options { return engine.DefaultOptions() }

// Logger is the leveled logging interface the engine and server report
// diagnostics through.
type Logger = engine.Logger

// Value-compression codecs selectable via Options.ValueCompression.
const (
	CompressionNone   = engine.CompressionNone
	CompressionSnappy = engine.CompressionSnappy
	CompressionLZ4    = engine.CompressionLZ4
	CompressionZstd   = engine.CompressionZstd
)

// Errors surfaced by the engine.
var (
	ErrKeyNotFound           = engine.ErrKeyNotFound
	ErrUnexpectedCommandType = engine.ErrUnexpectedCommandType
	ErrRecordCorrupt         = engine.ErrRecordCorrupt
	ErrEngineMismatch        = engine.ErrEngineMismatch
	ErrEngineClosed          = engine.ErrEngineClosed
)

// Open recovers the log directory dir (creating it if needed) and
// returns an Engine ready to serve set/get/remove. opts may be nil to
// accept DefaultOptions.
func Open(dir string, opts *Options) (Engine, error) {
	e, err := engine.Open(dir, opts)
	if err != nil {
		return Engine{}, err
	}
	return Engine{e}, nil
}

// Clone returns an engine view sharing the index, writer, and safe-point
// with this one, but with its own reader-handle cache.
func (e Engine) Clone() KvsEngine {
	return Engine{e.Engine.Clone()}
}
