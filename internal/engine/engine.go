// Package engine implements termkv's storage core: the engine facade,
// the single writer and its compaction, over the log segment store and
// key index from sibling internal packages.
package engine

import (
	"sync/atomic"

	"github.com/termkv/termkv/internal/index"
	"github.com/termkv/termkv/internal/logging"
	"github.com/termkv/termkv/internal/logstore"
	"github.com/termkv/termkv/internal/record"
	"github.com/termkv/termkv/internal/vfs"
)

// shared is the state an Engine and all of its clones hold in common:
// the Key Index, the writer (guarded by its own mutex), and the
// safe-point. Cloning an Engine shares this pointer but gives the clone
// an independent ReaderPool.
type shared struct {
	dir    string
	fsys   vfs.FS
	logger Logger

	idx       *index.Index
	safePoint *atomic.Uint64
	w         *writer
}

// Engine is the capability set {set, get, remove}: freely
// clonable across goroutines, with get requiring no exclusive lock.
type Engine struct {
	sh     *shared
	rp     *logstore.ReaderPool
	root   bool
	closed atomic.Bool
}

// Open recovers dir (creating it if needed) and returns an Engine ready
// to serve set/get/remove. opts may be nil to accept DefaultOptions().
func Open(dir string, opts *Options) (*Engine, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = vfs.Default()
	}
	logger := logging.OrDefault(opts.Logger)
	variant := opts.Variant
	if variant == "" {
		variant = "kvs"
	}

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := checkOrWriteMarker(fsys, dir, variant); err != nil {
		return nil, err
	}

	idx := index.New()
	terms, err := logstore.ListTerms(fsys, dir)
	if err != nil {
		return nil, err
	}

	var uncompacted uint64
	for _, term := range terms {
		u, err := recoverTerm(fsys, dir, term, idx)
		if err != nil {
			return nil, err
		}
		uncompacted += u
	}

	currentTerm := uint64(1)
	if len(terms) > 0 {
		currentTerm = terms[len(terms)-1] + 1
	}

	seg, err := logstore.CreateSegment(fsys, dir, currentTerm)
	if err != nil {
		return nil, err
	}

	safePoint := new(atomic.Uint64)
	threshold := opts.CompactionThreshold
	if threshold == 0 {
		threshold = DefaultOptions().CompactionThreshold
	}

	w := &writer{
		fsys:        fsys,
		dir:         dir,
		logger:      logger,
		idx:         idx,
		safePoint:   safePoint,
		threshold:   threshold,
		uncompacted: uncompacted,
		seg:         seg,
		rp:          logstore.NewReaderPool(fsys, dir, safePoint),
		compression: opts.ValueCompression,
	}

	sh := &shared{dir: dir, fsys: fsys, logger: logger, idx: idx, safePoint: safePoint, w: w}
	return &Engine{sh: sh, rp: logstore.NewReaderPool(fsys, dir, safePoint), root: true}, nil
}

// Clone returns a new Engine sharing the Key Index, writer, and
// safe-point, but with its own reader-pool handle cache — the pattern
// the worker pool uses to hand each accepted connection's goroutine an
// independent reader view.
func (e *Engine) Clone() *Engine {
	return &Engine{sh: e.sh, rp: e.rp.Clone(), root: false}
}

// Set inserts or overwrites key's value.
func (e *Engine) Set(key, value string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if key == "" {
		return ErrEmptyKey
	}
	if value == "" {
		return ErrEmptyValue
	}
	return e.sh.w.set(key, value)
}

// Get returns key's current value, or found=false if it is absent. Get
// never blocks on the writer: it reads the Key Index (lock-free) and then
// this clone's own ReaderPool.
func (e *Engine) Get(key string) (value string, found bool, err error) {
	if e.closed.Load() {
		return "", false, ErrEngineClosed
	}
	if key == "" {
		return "", false, ErrEmptyKey
	}

	pos, ok := e.sh.idx.Get(key)
	if !ok {
		return "", false, nil
	}
	raw, err := e.rp.Read(pos)
	if err != nil {
		return "", false, err
	}
	cmd, err := record.DecodeBytes(raw)
	if err != nil {
		return "", false, err
	}
	if cmd.Kind != record.KindSet {
		return "", false, ErrUnexpectedCommandType
	}
	return cmd.Value, true, nil
}

// Remove deletes key, failing with ErrKeyNotFound if it is absent.
func (e *Engine) Remove(key string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if key == "" {
		return ErrEmptyKey
	}
	return e.sh.w.remove(key)
}

// Close releases this clone's reader-pool handles. The root Engine
// returned by Open additionally flushes and closes the writer's append
// file; clones should be closed independently as their owning goroutines
// finish (e.g. when a connection closes).
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if cerr := e.rp.Close(); cerr != nil {
		err = cerr
	}
	if e.root {
		if werr := e.sh.w.close(); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}
