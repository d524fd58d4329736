package engine

import (
	"errors"

	"github.com/termkv/termkv/internal/record"
)

// Sentinel errors. Error kinds are values, not distinct types; callers
// classify with errors.Is.
var (
	// ErrKeyNotFound is returned by Remove for an absent key.
	ErrKeyNotFound = errors.New("termkv: key not found")

	// ErrUnexpectedCommandType is an I1 invariant violation: the index
	// pointed at a record that was not a Set.
	ErrUnexpectedCommandType = errors.New("termkv: index position does not reference a Set record")

	// ErrRecordCorrupt indicates a record's embedded checksum did not
	// verify.
	ErrRecordCorrupt = record.ErrRecordCorrupt

	// ErrEngineMismatch is returned by Open when D/engine names a
	// different variant than requested.
	ErrEngineMismatch = errors.New("termkv: engine variant mismatch")

	// ErrEngineClosed is returned by any operation on a closed Engine.
	ErrEngineClosed = errors.New("termkv: engine is closed")

	// ErrEmptyKey and ErrEmptyValue guard the nonempty-input constraints
	// on set/get/remove.
	ErrEmptyKey   = errors.New("termkv: key must be non-empty")
	ErrEmptyValue = errors.New("termkv: value must be non-empty")
)
