// Package logstore implements the Log Segment Store and Reader Pool: one
// append-only file per term, and a per-clone cache of open read handles
// bounded by a shared safe-point.
package logstore

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/termkv/termkv/internal/record"
	"github.com/termkv/termkv/internal/vfs"
)

// TermPath returns the path of term's log file within dir.
func TermPath(dir string, term uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.log", term))
}

// ListTerms enumerates dir for "<term>.log" files, parsing each stem as
// an unsigned integer; non-matching entries (including the "engine"
// marker file) are silently skipped. Terms are returned in ascending
// order, respecting the temporal order of writes during recovery.
func ListTerms(fsys vfs.FS, dir string) ([]uint64, error) {
	names, err := fsys.ListDir(dir)
	if err != nil {
		return nil, err
	}
	terms := make([]uint64, 0, len(names))
	for _, name := range names {
		stem, ok := strings.CutSuffix(name, ".log")
		if !ok {
			continue
		}
		term, err := strconv.ParseUint(stem, 10, 64)
		if err != nil {
			continue
		}
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i] < terms[j] })
	return terms, nil
}

// SegmentWriter is the Writer's exclusive append handle onto one term
// file.
type SegmentWriter struct {
	fsys   vfs.FS
	dir    string
	term   uint64
	f      vfs.WritableFile
	offset uint64
}

// CreateSegment opens a fresh term file for append, truncating if it
// somehow already exists.
func CreateSegment(fsys vfs.FS, dir string, term uint64) (*SegmentWriter, error) {
	f, err := fsys.Create(TermPath(dir, term))
	if err != nil {
		return nil, err
	}
	return &SegmentWriter{fsys: fsys, dir: dir, term: term, f: f}, nil
}

// Term reports which term this writer is appending to.
func (w *SegmentWriter) Term() uint64 { return w.term }

// Append writes data at the current offset, returning the Position it now
// occupies. It does not flush; call Flush to make the write durable.
func (w *SegmentWriter) Append(data []byte) (record.Position, error) {
	pos := record.Position{Term: w.term, Offset: w.offset, Len: uint64(len(data))}
	if err := w.f.Append(data); err != nil {
		return record.Position{}, err
	}
	w.offset += uint64(len(data))
	return pos, nil
}

// Flush makes all writes since the last Flush durable.
func (w *SegmentWriter) Flush() error {
	return w.f.Sync()
}

// Close releases the underlying file handle without deleting the file.
func (w *SegmentWriter) Close() error {
	return w.f.Close()
}

// ReaderPool is one reader view's thread-local cache of open term file
// handles. It is not safe for concurrent use by multiple
// goroutines — Engine.Clone hands each caller its own ReaderPool.
type ReaderPool struct {
	fsys      vfs.FS
	dir       string
	safePoint *atomic.Uint64
	handles   map[uint64]vfs.RandomAccessFile
}

// NewReaderPool constructs a reader view sharing safePoint with the
// writer and every other clone.
func NewReaderPool(fsys vfs.FS, dir string, safePoint *atomic.Uint64) *ReaderPool {
	return &ReaderPool{
		fsys:      fsys,
		dir:       dir,
		safePoint: safePoint,
		handles:   make(map[uint64]vfs.RandomAccessFile),
	}
}

// Clone returns a new reader view over the same directory and safe-point,
// with an independent, empty handle cache.
func (p *ReaderPool) Clone() *ReaderPool {
	return NewReaderPool(p.fsys, p.dir, p.safePoint)
}

// evictStale closes and drops every cached handle whose term is strictly
// less than the current safe-point: compaction
// only deletes files after raising the safe-point, so a handle opened for
// term >= safe-point is always either still linked or held open by us.
func (p *ReaderPool) evictStale() {
	sp := p.safePoint.Load()
	for term, h := range p.handles {
		if term < sp {
			_ = h.Close()
			delete(p.handles, term)
		}
	}
}

func (p *ReaderPool) handle(term uint64) (vfs.RandomAccessFile, error) {
	if h, ok := p.handles[term]; ok {
		return h, nil
	}
	h, err := p.fsys.OpenRandomAccess(TermPath(p.dir, term))
	if err != nil {
		return nil, err
	}
	p.handles[term] = h
	return h, nil
}

// Read fetches exactly the bytes pos spans, opening and caching a handle
// for pos.Term if needed.
func (p *ReaderPool) Read(pos record.Position) ([]byte, error) {
	p.evictStale()
	h, err := p.handle(pos.Term)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, pos.Len)
	if _, err := h.ReadAt(buf, int64(pos.Offset)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close releases every cached handle. Safe to call once a ReaderPool is
// no longer in use (e.g. when its owning Engine clone is closed).
func (p *ReaderPool) Close() error {
	var first error
	for term, h := range p.handles {
		if err := h.Close(); err != nil && first == nil {
			first = err
		}
		delete(p.handles, term)
	}
	return first
}
