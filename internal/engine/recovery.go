package engine

import (
	"errors"
	"fmt"
	"io"

	"github.com/termkv/termkv/internal/index"
	"github.com/termkv/termkv/internal/logstore"
	"github.com/termkv/termkv/internal/record"
	"github.com/termkv/termkv/internal/vfs"
)

// recoverTerm scans one term file sequentially, applying each Set/Remove
// to idx in order, and returns the dead-weight bytes it contributed to
// the uncompacted counter.
func recoverTerm(fsys vfs.FS, dir string, term uint64, idx *index.Index) (uint64, error) {
	f, err := fsys.Open(logstore.TermPath(dir, term))
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	scanner := record.NewScanner(f)
	var uncompacted uint64
	for {
		cmd, pos, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("termkv: corrupt tail in term %d: %w", term, err)
		}
		pos.Term = term

		switch cmd.Kind {
		case record.KindSet:
			prev, had := idx.Set(cmd.Key, pos)
			if had {
				uncompacted += prev.Len
			}
		case record.KindRemove:
			prev, had := idx.Remove(cmd.Key)
			if had {
				uncompacted += prev.Len
			}
			// The Remove record itself is also dead weight.
			uncompacted += pos.Len
		}
	}
	return uncompacted, nil
}
