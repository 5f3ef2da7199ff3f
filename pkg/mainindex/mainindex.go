// Package mainindex implements the master-column main index: the external
// collaborator spec.md treats as a minimum contract (min/max key, point
// find, find-next-key, erase, preallocate) keyed by a big-endian 8-byte
// TRID and valued by a master-column record address. Only this linear
// index is backed by a real implementation; B+Tree and Hash variants are
// reserved at the catalog level (types.IndexTypeBTree, types.IndexTypeHash)
// and stubbed here per Open Question (a).
package mainindex

import (
	"encoding/binary"
	"errors"

	"github.com/siodb/siodb/pkg/types"
)

// ErrNotImplemented is returned by index variants that are reserved but not
// backed by a real implementation (B+Tree, Hash).
var ErrNotImplemented = errors.New("mainindex: index type not implemented")

// Address locates a master-column record on disk: the block holding it and
// the byte offset within that block's data area.
type Address struct {
	BlockID uint64
	Offset  uint32
}

const addressSize = 8 + 4

// MarshalAddress encodes an Address as a fixed-size payload.
func MarshalAddress(a Address) []byte {
	buf := make([]byte, addressSize)
	binary.BigEndian.PutUint64(buf[0:8], a.BlockID)
	binary.BigEndian.PutUint32(buf[8:12], a.Offset)
	return buf
}

// UnmarshalAddress decodes a payload produced by MarshalAddress.
func UnmarshalAddress(buf []byte) (Address, error) {
	if len(buf) != addressSize {
		return Address{}, errors.New("mainindex: invalid address payload size")
	}
	return Address{
		BlockID: binary.BigEndian.Uint64(buf[0:8]),
		Offset:  binary.BigEndian.Uint32(buf[8:12]),
	}, nil
}

func encodeKey(key types.TRID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(key))
	return buf
}

func decodeKey(buf []byte) types.TRID {
	return types.TRID(binary.BigEndian.Uint64(buf))
}

// Index is the master-column main index contract. Implementations are not
// required to be safe for concurrent point operations: per spec.md, the
// storage engine serializes access to a given index externally (the
// owning column's lock).
type Index interface {
	// MinKey returns the smallest key present, or ok=false if the index is
	// empty.
	MinKey() (key types.TRID, ok bool, err error)

	// MaxKey returns the largest key present, or ok=false if the index is
	// empty.
	MaxKey() (key types.TRID, ok bool, err error)

	// Find looks up the address stored under key.
	Find(key types.TRID) (addr Address, ok bool, err error)

	// FindNextKey returns the smallest key strictly greater than cur, or
	// ok=false if none exists.
	FindNextKey(cur types.TRID) (next types.TRID, ok bool, err error)

	// Erase removes key. Erasing an absent key is not an error.
	Erase(key types.TRID) error

	// Preallocate reserves key with a zero-value address, so writers can
	// later overwrite it without changing the index's key set. Used during
	// system bootstrap and CreateUserTable to seed the first slot.
	Preallocate(key types.TRID) error

	// Put stores addr under key, overwriting any existing entry.
	Put(key types.TRID, addr Address) error

	// Close releases any resources held by the index.
	Close() error
}

// UnimplementedIndex satisfies Index for index types the storage core
// declares but does not back with real storage (B+Tree, Hash). Every
// operation fails with ErrNotImplemented so callers see a clear error
// instead of silent data loss.
type UnimplementedIndex struct {
	Type types.IndexType
}

func (u UnimplementedIndex) MinKey() (types.TRID, bool, error)               { return 0, false, ErrNotImplemented }
func (u UnimplementedIndex) MaxKey() (types.TRID, bool, error)               { return 0, false, ErrNotImplemented }
func (u UnimplementedIndex) Find(types.TRID) (Address, bool, error)          { return Address{}, false, ErrNotImplemented }
func (u UnimplementedIndex) FindNextKey(types.TRID) (types.TRID, bool, error) { return 0, false, ErrNotImplemented }
func (u UnimplementedIndex) Erase(types.TRID) error                          { return ErrNotImplemented }
func (u UnimplementedIndex) Preallocate(types.TRID) error                    { return ErrNotImplemented }
func (u UnimplementedIndex) Put(types.TRID, Address) error                   { return ErrNotImplemented }
func (u UnimplementedIndex) Close() error                                   { return nil }

var _ Index = UnimplementedIndex{}
