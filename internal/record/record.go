// Package record implements the on-disk command envelope for termkv's
// log segments: a self-delimiting, checksummed JSON encoding of Set and
// Remove commands.
//
// Records carry no length prefix: encoding/json.Decoder.InputOffset
// supplies the exact byte span of each decoded record, which is all the
// index needs to serve point reads later.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/xxh3"

	"github.com/termkv/termkv/internal/codec"
)

// ErrRecordCorrupt indicates a record's embedded checksum does not match
// its body. Raised at get, compaction-copy and recovery-scan time, never
// as a panic.
var ErrRecordCorrupt = errors.New("termkv: record checksum mismatch")

// Kind tags which command a record holds.
type Kind uint8

const (
	// KindSet is a Set{key, value} command.
	KindSet Kind = 1
	// KindRemove is a Remove{key} command.
	KindRemove Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "Set"
	case KindRemove:
		return "Remove"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Position locates a single Set record in the log: which term file, at
// what byte offset, spanning how many bytes.
type Position struct {
	Term   uint64
	Offset uint64
	Len    uint64
}

// Command is the decoded, already-decompressed form of a log record.
type Command struct {
	Kind  Kind
	Key   string
	Value string
}

// body is the on-disk JSON shape. Field order is fixed by this struct
// definition, which is what makes the two-pass checksum deterministic.
type body struct {
	Op    Kind   `json:"op"`
	Key   string `json:"key"`
	Value []byte `json:"value,omitempty"`
	Codec uint8  `json:"codec,omitempty"`
	Sum   uint64 `json:"sum"`
}

func sum(b body) (uint64, error) {
	b.Sum = 0
	unsummed, err := json.Marshal(b)
	if err != nil {
		return 0, err
	}
	return xxh3.Hash(unsummed), nil
}

func marshal(b body) ([]byte, error) {
	want, err := sum(b)
	if err != nil {
		return nil, err
	}
	b.Sum = want
	return json.Marshal(b)
}

func verify(b body) (bool, error) {
	want, err := sum(b)
	if err != nil {
		return false, err
	}
	return want == b.Sum, nil
}

func toCommand(b body) (Command, error) {
	switch b.Op {
	case KindSet:
		value, err := codec.Decode(codec.Type(b.Codec), b.Value)
		if err != nil {
			return Command{}, fmt.Errorf("termkv: decode value: %w", err)
		}
		return Command{Kind: KindSet, Key: b.Key, Value: string(value)}, nil
	case KindRemove:
		return Command{Kind: KindRemove, Key: b.Key}, nil
	default:
		return Command{}, fmt.Errorf("termkv: unknown command kind %d", b.Op)
	}
}

// EncodeSet produces the on-disk envelope for Set{key, value}, compressing
// value per prefer if it is worth compressing.
func EncodeSet(key, value string, prefer codec.Type) ([]byte, error) {
	payload, used, err := codec.Encode(prefer, []byte(value))
	if err != nil {
		return nil, err
	}
	return marshal(body{Op: KindSet, Key: key, Value: payload, Codec: uint8(used)})
}

// EncodeRemove produces the on-disk envelope for Remove{key}.
func EncodeRemove(key string) ([]byte, error) {
	return marshal(body{Op: KindRemove, Key: key})
}

// DecodeBytes decodes exactly one record from a byte slice spanning a
// known Position (the get/compaction path, where offset and length are
// already known from the index).
func DecodeBytes(buf []byte) (Command, error) {
	var b body
	if err := json.Unmarshal(buf, &b); err != nil {
		return Command{}, fmt.Errorf("termkv: decode record: %w", err)
	}
	ok, err := verify(b)
	if err != nil {
		return Command{}, err
	}
	if !ok {
		return Command{}, ErrRecordCorrupt
	}
	return toCommand(b)
}

// Scanner decodes a sequential run of records from a single io.Reader,
// recovering exact byte offsets without a length prefix. A term file is
// scanned start to end with exactly one Scanner.
type Scanner struct {
	dec *json.Decoder
	off int64
}

// NewScanner wraps r for sequential record recovery.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{dec: json.NewDecoder(r)}
}

// Next decodes the next record, returning its Command along with the
// Position it occupied (term is left zero; callers that know the term
// fill it in). Returns io.EOF when the reader is exhausted at a record
// boundary. A corrupt tail — a short or partial record — surfaces as a
// decoding error, per the recovery contract's "does not require automatic
// truncation" clause.
func (s *Scanner) Next() (Command, Position, error) {
	start := s.off
	var b body
	if err := s.dec.Decode(&b); err != nil {
		return Command{}, Position{}, err
	}
	end := s.dec.InputOffset()
	s.off = end
	ok, err := verify(b)
	if err != nil {
		return Command{}, Position{}, err
	}
	if !ok {
		return Command{}, Position{}, ErrRecordCorrupt
	}
	cmd, err := toCommand(b)
	if err != nil {
		return Command{}, Position{}, err
	}
	return cmd, Position{Offset: uint64(start), Len: uint64(end - start)}, nil
}
