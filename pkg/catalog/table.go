package catalog

import "github.com/siodb/siodb/pkg/types"

// TableRecord is a table's catalog entry: identity, the first TRID
// available to user rows, and which column set is currently active.
type TableRecord struct {
	ID               types.TableID
	Type             types.TableType
	Name             string
	FirstUserTRID    types.TRID
	CurrentColumnSet types.ColumnSetID
}

func (r TableRecord) fieldsSize() int {
	return VarintSize(uint64(r.ID)) + VarintSize(uint64(r.Type)) + StringSize(r.Name) +
		VarintSize(uint64(r.FirstUserTRID)) + VarintSize(uint64(r.CurrentColumnSet))
}

// Marshal appends r's fields (no class header: TableRecord only ever
// appears as an element of a TableRegistry) to buf.
func (r TableRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, uint64(r.ID))
	buf = EncodeVarint(buf, uint64(r.Type))
	buf = EncodeString(buf, r.Name)
	buf = EncodeVarint(buf, uint64(r.FirstUserTRID))
	buf = EncodeVarint(buf, uint64(r.CurrentColumnSet))
	return buf
}

// DecodeTableRecord reads a TableRecord from the front of buf, returning
// the record and the number of bytes consumed.
func DecodeTableRecord(buf []byte) (TableRecord, int, error) {
	var r TableRecord
	total := 0

	id, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return TableRecord{}, 0, err
	}
	r.ID = types.TableID(id)
	total += n

	typ, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return TableRecord{}, 0, err
	}
	r.Type = types.TableType(typ)
	total += n

	name, n, err := DecodeString(buf[total:])
	if err != nil {
		return TableRecord{}, 0, err
	}
	r.Name = name
	total += n

	firstTRID, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return TableRecord{}, 0, err
	}
	r.FirstUserTRID = types.TRID(firstTRID)
	total += n

	columnSet, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return TableRecord{}, 0, err
	}
	r.CurrentColumnSet = types.ColumnSetID(columnSet)
	total += n

	return r, total, nil
}

// TableRegistry indexes TableRecords by id and by name, the two ways the
// catalog ever looks a table up.
type TableRegistry struct {
	*Registry[types.TableID, TableRecord]
	byName map[string]types.TableID
}

// NewTableRegistry returns an empty TableRegistry.
func NewTableRegistry() *TableRegistry {
	return &TableRegistry{
		Registry: NewRegistry[types.TableID, TableRecord](),
		byName:   make(map[string]types.TableID),
	}
}

// Put inserts or replaces rec, keeping the name index in sync.
func (tr *TableRegistry) Put(rec TableRecord) {
	tr.Registry.Put(rec.ID, &rec)
	tr.byName[rec.Name] = rec.ID
}

// FindByName looks up a table by its unique name.
func (tr *TableRegistry) FindByName(name string) (*TableRecord, bool) {
	id, ok := tr.byName[name]
	if !ok {
		return nil, false
	}
	return tr.Get(id)
}

// Delete removes id, keeping the name index in sync.
func (tr *TableRegistry) Delete(id types.TableID) {
	if rec, ok := tr.Get(id); ok {
		delete(tr.byName, rec.Name)
	}
	tr.Registry.Delete(id)
}
