package catalog

import (
	"fmt"

	"github.com/google/uuid"
)

// ClassHeader precedes a standalone catalog record on disk: a class UUID
// identifying the record type, and a class version governing how its
// fields are laid out. Records that live as elements of a parent registry
// (e.g. a ColumnRecord inside a ColumnRegistry) don't carry their own
// header; only records persisted to their own file do (e.g. CipherKeyRecord).
type ClassHeader struct {
	ClassUUID uuid.UUID
	Version   uint32
}

// Marshal appends the header to buf.
func (h ClassHeader) Marshal(buf []byte) []byte {
	buf = append(buf, h.ClassUUID[:]...)
	return EncodeVarint(buf, uint64(h.Version))
}

// Size reports the header's encoded size.
func (h ClassHeader) Size() int {
	return 16 + VarintSize(uint64(h.Version))
}

// DecodeClassHeader reads a ClassHeader from buf and checks it against the
// expected class UUID and maximum supported version.
func DecodeClassHeader(buf []byte, wantClass uuid.UUID, maxVersion uint32) (ClassHeader, int, error) {
	if len(buf) < 16 {
		return ClassHeader{}, 0, fmt.Errorf("catalog: truncated class header")
	}
	var got uuid.UUID
	copy(got[:], buf[:16])
	if got != wantClass {
		return ClassHeader{}, 0, fmt.Errorf("catalog: class UUID mismatch: got %s, want %s", got, wantClass)
	}
	version, n, err := DecodeVarint(buf[16:])
	if err != nil {
		return ClassHeader{}, 0, fmt.Errorf("catalog: class version: %w", err)
	}
	if uint32(version) > maxVersion {
		return ClassHeader{}, 0, fmt.Errorf("catalog: class version %d newer than supported %d", version, maxVersion)
	}
	return ClassHeader{ClassUUID: got, Version: uint32(version)}, 16 + n, nil
}
