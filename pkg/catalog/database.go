package catalog

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/siodb/siodb/pkg/types"
)

// DatabaseRecord is a database's entry in the system database's
// SYS_DATABASES table: identity, which cipher secures its columns, and
// the quota/description fields an administrator can set at creation.
// The cipher key itself is never stored here; it lives in its own
// CipherKeyRecord file alongside the database's directory.
type DatabaseRecord struct {
	ID            types.DatabaseID
	UUID          uuid.UUID
	Name          string
	CipherID      string
	MaxTableCount uint32
	Description   *string
	CreatedAt     int64
}

func (r DatabaseRecord) fieldsSize() int {
	return VarintSize(uint64(r.ID)) + 16 + StringSize(r.Name) + StringSize(r.CipherID) +
		VarintSize(uint64(r.MaxTableCount)) + OptionalStringSize(r.Description) +
		VarintSize(uint64(r.CreatedAt))
}

// Marshal appends r's fields (no class header: DatabaseRecord only ever
// appears as an element of a DatabaseRegistry) to buf.
func (r DatabaseRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, uint64(r.ID))
	idBytes, _ := r.UUID.MarshalBinary()
	buf = append(buf, idBytes...)
	buf = EncodeString(buf, r.Name)
	buf = EncodeString(buf, r.CipherID)
	buf = EncodeVarint(buf, uint64(r.MaxTableCount))
	buf = EncodeOptionalString(buf, r.Description)
	buf = EncodeVarint(buf, uint64(r.CreatedAt))
	return buf
}

// DecodeDatabaseRecord reads a DatabaseRecord from the front of buf,
// returning the record and the number of bytes consumed.
func DecodeDatabaseRecord(buf []byte) (DatabaseRecord, int, error) {
	var r DatabaseRecord
	total := 0

	id, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return DatabaseRecord{}, 0, err
	}
	r.ID = types.DatabaseID(id)
	total += n

	if len(buf[total:]) < 16 {
		return DatabaseRecord{}, 0, fmt.Errorf("catalog: truncated DatabaseRecord.UUID")
	}
	if err := r.UUID.UnmarshalBinary(buf[total : total+16]); err != nil {
		return DatabaseRecord{}, 0, err
	}
	total += 16

	name, n, err := DecodeString(buf[total:])
	if err != nil {
		return DatabaseRecord{}, 0, err
	}
	r.Name = name
	total += n

	cipherID, n, err := DecodeString(buf[total:])
	if err != nil {
		return DatabaseRecord{}, 0, err
	}
	r.CipherID = cipherID
	total += n

	maxTables, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return DatabaseRecord{}, 0, err
	}
	r.MaxTableCount = uint32(maxTables)
	total += n

	desc, n, err := DecodeOptionalString(buf[total:])
	if err != nil {
		return DatabaseRecord{}, 0, err
	}
	r.Description = desc
	total += n

	createdAt, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return DatabaseRecord{}, 0, err
	}
	r.CreatedAt = int64(createdAt)
	total += n

	return r, total, nil
}

// DatabaseRegistry indexes DatabaseRecords by id, by name, and by UUID,
// the three ways the instance ever looks a database up.
type DatabaseRegistry struct {
	*Registry[types.DatabaseID, DatabaseRecord]
	byName map[string]types.DatabaseID
	byUUID map[uuid.UUID]types.DatabaseID
}

// NewDatabaseRegistry returns an empty DatabaseRegistry.
func NewDatabaseRegistry() *DatabaseRegistry {
	return &DatabaseRegistry{
		Registry: NewRegistry[types.DatabaseID, DatabaseRecord](),
		byName:   make(map[string]types.DatabaseID),
		byUUID:   make(map[uuid.UUID]types.DatabaseID),
	}
}

// Put inserts or replaces rec, keeping the name and UUID indices in sync.
func (dr *DatabaseRegistry) Put(rec DatabaseRecord) {
	dr.Registry.Put(rec.ID, &rec)
	dr.byName[rec.Name] = rec.ID
	dr.byUUID[rec.UUID] = rec.ID
}

// FindByName looks up a database by its unique name.
func (dr *DatabaseRegistry) FindByName(name string) (*DatabaseRecord, bool) {
	id, ok := dr.byName[name]
	if !ok {
		return nil, false
	}
	return dr.Get(id)
}

// FindByUUID looks up a database by its UUID, the key its on-disk
// directory is named after.
func (dr *DatabaseRegistry) FindByUUID(id uuid.UUID) (*DatabaseRecord, bool) {
	dbID, ok := dr.byUUID[id]
	if !ok {
		return nil, false
	}
	return dr.Get(dbID)
}

// Delete removes id, keeping the name and UUID indices in sync.
func (dr *DatabaseRegistry) Delete(id types.DatabaseID) {
	if rec, ok := dr.Get(id); ok {
		delete(dr.byName, rec.Name)
		delete(dr.byUUID, rec.UUID)
	}
	dr.Registry.Delete(id)
}
