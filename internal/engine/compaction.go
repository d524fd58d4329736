package engine

import (
	"github.com/termkv/termkv/internal/logging"
	"github.com/termkv/termkv/internal/logstore"
	"github.com/termkv/termkv/internal/record"
)

// compact rewrites every live record into a fresh term and retires the
// terms before it, reclaiming the dead weight counted in uncompacted. It
// must be
// called with w.mu held: readers proceed concurrently throughout, but no
// other writer mutation may interleave.
func (w *writer) compact() error {
	compactTerm := w.seg.Term() + 1
	nextTerm := w.seg.Term() + 2

	if err := w.seg.Close(); err != nil {
		w.logger.Warnf("%sclose retiring segment: %v", logging.NSCompact, err)
	}

	out, err := logstore.CreateSegment(w.fsys, w.dir, compactTerm)
	if err != nil {
		return err
	}
	next, err := logstore.CreateSegment(w.fsys, w.dir, nextTerm)
	if err != nil {
		return err
	}

	// Walk the index in its stable order, re-reading each live record
	// through the writer's own reader view, verifying its checksum, and
	// copying the exact bytes into the compaction output. Each per-key
	// index update is a single
	// atomic Set, so a concurrent Get observes either the old Position
	// (old term, still an open or still-linked file) or the new one
	// (compactTerm, guaranteed not yet deleted).
	for _, e := range w.idx.All() {
		raw, err := w.rp.Read(e.Pos)
		if err != nil {
			return err
		}
		if _, err := record.DecodeBytes(raw); err != nil {
			return err
		}
		newPos, err := out.Append(raw)
		if err != nil {
			return err
		}
		w.idx.Set(e.Key, newPos)
	}

	if err := out.Flush(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		w.logger.Warnf("%sclose compaction output: %v", logging.NSCompact, err)
	}

	// Release semantics: every reader that loads the safe-point after
	// this Store, and opens compactTerm, is guaranteed compactTerm still
	// exists (deletion happens only after this point).
	w.safePoint.Store(compactTerm)

	terms, err := logstore.ListTerms(w.fsys, w.dir)
	if err != nil {
		w.logger.Errorf("%slist terms after compaction: %v", logging.NSCompact, err)
	} else {
		for _, t := range terms {
			if t >= compactTerm {
				continue
			}
			if err := w.fsys.Remove(logstore.TermPath(w.dir, t)); err != nil {
				// Deletion errors are logged and not fatal; the OS will
				// reclaim the space once the last open handle closes.
				w.logger.Warnf("%sremove stale term %d: %v", logging.NSCompact, t, err)
			}
		}
	}

	w.seg = next
	w.uncompacted = 0
	return nil
}
