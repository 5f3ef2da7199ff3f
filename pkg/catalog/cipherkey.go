package catalog

import "github.com/google/uuid"

// CipherKeyClassUUID is carried over verbatim from
// original_source/iomgr/lib/dbengine/reg/CipherKeyRecord.cpp so that any
// catalog file written by this implementation stays byte-compatible with
// the record format the class UUID identifies.
var CipherKeyClassUUID = uuid.MustParse("dffb2d5a-a781-428b-bdb5-54633e3ab8dd")

// CipherKeyClassVersion is the only CipherKeyRecord wire version this
// implementation writes or accepts.
const CipherKeyClassVersion = 0

// CipherKeyRecord is a database's envelope-encrypted symmetric key: which
// built-in cipher it's for, and the (master-cipher-encrypted) key bytes
// themselves. It is the one catalog record persisted to its own file
// (rather than as an element of a parent registry), so it carries a full
// ClassHeader.
type CipherKeyRecord struct {
	ID       uint64
	CipherID string
	Key      []byte
}

func (r CipherKeyRecord) fieldsSize() int {
	return VarintSize(r.ID) + StringSize(r.CipherID) + BytesSize(r.Key)
}

// Size reports the record's total encoded size, header included.
func (r CipherKeyRecord) Size() int {
	h := ClassHeader{ClassUUID: CipherKeyClassUUID, Version: CipherKeyClassVersion}
	return h.Size() + r.fieldsSize()
}

// Marshal serializes r with its class header.
func (r CipherKeyRecord) Marshal() []byte {
	h := ClassHeader{ClassUUID: CipherKeyClassUUID, Version: CipherKeyClassVersion}
	buf := make([]byte, 0, r.Size())
	buf = h.Marshal(buf)
	buf = EncodeVarint(buf, r.ID)
	buf = EncodeString(buf, r.CipherID)
	buf = EncodeBytes(buf, r.Key)
	return buf
}

// UnmarshalCipherKeyRecord parses a CipherKeyRecord previously written by
// Marshal, validating its class header.
func UnmarshalCipherKeyRecord(buf []byte) (CipherKeyRecord, error) {
	_, n, err := DecodeClassHeader(buf, CipherKeyClassUUID, CipherKeyClassVersion)
	if err != nil {
		return CipherKeyRecord{}, err
	}
	buf = buf[n:]

	var r CipherKeyRecord
	id, n, err := DecodeVarint(buf)
	if err != nil {
		return CipherKeyRecord{}, err
	}
	r.ID = id
	buf = buf[n:]

	cipherID, n, err := DecodeString(buf)
	if err != nil {
		return CipherKeyRecord{}, err
	}
	r.CipherID = cipherID
	buf = buf[n:]

	key, _, err := DecodeBytes(buf)
	if err != nil {
		return CipherKeyRecord{}, err
	}
	r.Key = key

	return r, nil
}
