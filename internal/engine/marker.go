package engine

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	natomic "github.com/natefinch/atomic"

	"github.com/termkv/termkv/internal/vfs"
)

// markerFile is the process-wide configuration file recording which
// engine variant created a directory.
const markerFile = "engine"

// checkOrWriteMarker writes D/engine atomically on first Open, or
// verifies the recorded variant matches on subsequent opens.
func checkOrWriteMarker(fsys vfs.FS, dir, variant string) error {
	path := filepath.Join(dir, markerFile)
	if !fsys.Exists(path) {
		return natomic.WriteFile(path, strings.NewReader(variant))
	}

	f, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	recorded := strings.TrimSpace(string(raw))
	if recorded != variant {
		return fmt.Errorf("%w: %s was initialized as %q, requested %q", ErrEngineMismatch, dir, recorded, variant)
	}
	return nil
}
