package blockstore

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/siodb/siodb/pkg/types"
)

// HeaderAreaSize is the fixed size of a column data block's header area,
// in bytes. The data area begins immediately after it.
const HeaderAreaSize = 1024

// HeaderSerializedSize is the number of bytes the Header fields actually
// occupy; the rest of HeaderAreaSize is zero padding.
const HeaderSerializedSize = 16 + 4 + 4 + 8 + 4 + 8 + 4 + 32

// CurrentHeaderVersion is the only header version this implementation
// writes or accepts.
const CurrentHeaderVersion uint32 = 1

// DigestSize is the length of a block digest (SHA-256).
const DigestSize = 32

// Digest is a block digest in the SHA-256 chain.
type Digest [DigestSize]byte

// GenesisDigest is the published constant standing in for digest(-1), the
// "previous digest" of every column's first block.
var GenesisDigest Digest

// Header is the on-disk header area of a column data block, per spec.md's
// byte layout: database UUID, table id, column id, block id, version, fill
// timestamp, next-data offset, digest, all little-endian, zero-padded to
// HeaderAreaSize.
type Header struct {
	DatabaseUUID    uuid.UUID
	TableID         types.TableID
	ColumnID        types.ColumnID
	BlockID         uint64
	Version         uint32
	FillTimestamp   int64
	NextDataOffset  uint32
	Digest          Digest
}

// IdentityFields returns the four fields that identify a block: database
// UUID, table id, column id and block id.
func (h Header) IdentityFields() (uuid.UUID, types.TableID, types.ColumnID, uint64) {
	return h.DatabaseUUID, h.TableID, h.ColumnID, h.BlockID
}

// Marshal serializes h into a HeaderSerializedSize-byte buffer. The on-disk
// column id field is 4 bytes; types.ColumnID is wider to match the other
// catalog ids, so this truncates, which is fine since a single table never
// has anywhere near 2^32 columns.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderSerializedSize)
	copy(buf[0:16], h.DatabaseUUID[:])
	binary.LittleEndian.PutUint32(buf[16:20], uint32(h.TableID))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(h.ColumnID))
	binary.LittleEndian.PutUint64(buf[24:32], h.BlockID)
	binary.LittleEndian.PutUint32(buf[32:36], h.Version)
	binary.LittleEndian.PutUint64(buf[36:44], uint64(h.FillTimestamp))
	binary.LittleEndian.PutUint32(buf[44:48], h.NextDataOffset)
	copy(buf[48:80], h.Digest[:])
	return buf
}

// MarshalPadded serializes h into a zero-padded HeaderAreaSize-byte buffer.
func (h Header) MarshalPadded() []byte {
	buf := make([]byte, HeaderAreaSize)
	copy(buf, h.Marshal())
	return buf
}

// UnmarshalHeader parses a header area buffer (at least HeaderSerializedSize
// bytes) into a Header.
func UnmarshalHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSerializedSize {
		return Header{}, fmt.Errorf("blockstore: header buffer too short: %d bytes", len(buf))
	}
	var h Header
	copy(h.DatabaseUUID[:], buf[0:16])
	h.TableID = types.TableID(binary.LittleEndian.Uint32(buf[16:20]))
	h.ColumnID = types.ColumnID(binary.LittleEndian.Uint32(buf[20:24]))
	h.BlockID = binary.LittleEndian.Uint64(buf[24:32])
	h.Version = binary.LittleEndian.Uint32(buf[32:36])
	h.FillTimestamp = int64(binary.LittleEndian.Uint64(buf[36:44]))
	h.NextDataOffset = binary.LittleEndian.Uint32(buf[44:48])
	copy(h.Digest[:], buf[48:80])
	return h, nil
}

// sameIdentity reports whether two headers name the same (database, table,
// column, block) quadruple, the check Open performs against the caller's
// expected identity.
func sameIdentity(a, b Header) bool {
	au, at, ac, ab := a.IdentityFields()
	bu, bt, bc, bb := b.IdentityFields()
	return au == bu && at == bt && ac == bc && ab == bb
}
