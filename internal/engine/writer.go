package engine

import (
	"sync"
	"sync/atomic"

	"github.com/termkv/termkv/internal/codec"
	"github.com/termkv/termkv/internal/index"
	"github.com/termkv/termkv/internal/logging"
	"github.com/termkv/termkv/internal/logstore"
	"github.com/termkv/termkv/internal/record"
	"github.com/termkv/termkv/internal/vfs"
)

// writer owns the active-term append file and serializes all mutations.
// Its mutex is the single point of write/write and
// write/compaction exclusion; reads never take it.
type writer struct {
	mu sync.Mutex

	fsys   vfs.FS
	dir    string
	logger logging.Logger

	idx       *index.Index
	safePoint *atomic.Uint64

	threshold   uint64
	uncompacted uint64

	seg         *logstore.SegmentWriter
	rp          *logstore.ReaderPool // writer's own reader view, reused by compaction
	compression codec.Type
}

func (w *writer) set(key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := record.EncodeSet(key, value, w.compression)
	if err != nil {
		return err
	}
	pos, err := w.seg.Append(data)
	if err != nil {
		return err
	}
	if err := w.seg.Flush(); err != nil {
		return err
	}

	prev, had := w.idx.Set(key, pos)
	if had {
		w.uncompacted += prev.Len
	}

	if w.uncompacted > w.threshold {
		return w.compact()
	}
	return nil
}

func (w *writer) remove(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	prev, had := w.idx.Get(key)
	if !had {
		return ErrKeyNotFound
	}

	data, err := record.EncodeRemove(key)
	if err != nil {
		return err
	}
	if _, err := w.seg.Append(data); err != nil {
		return err
	}
	if err := w.seg.Flush(); err != nil {
		return err
	}

	w.idx.Remove(key)
	w.uncompacted += prev.Len + uint64(len(data))

	if w.uncompacted > w.threshold {
		return w.compact()
	}
	return nil
}

func (w *writer) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.seg.Flush(); err != nil {
		return err
	}
	if err := w.seg.Close(); err != nil {
		return err
	}
	return w.rp.Close()
}
