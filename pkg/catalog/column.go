package catalog

import (
	"fmt"

	"github.com/siodb/siodb/pkg/types"
)

// ColumnRecord is a column's catalog entry.
type ColumnRecord struct {
	ID                 types.ColumnID
	Name               string
	DataType           types.ColumnDataType
	TableID            types.TableID
	State              types.ColumnState
	DataBlockAreaSize  uint32
}

func (r ColumnRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, uint64(r.ID))
	buf = EncodeString(buf, r.Name)
	buf = EncodeVarint(buf, uint64(r.DataType))
	buf = EncodeVarint(buf, uint64(r.TableID))
	buf = EncodeVarint(buf, uint64(r.State))
	buf = EncodeVarint(buf, uint64(r.DataBlockAreaSize))
	return buf
}

func DecodeColumnRecord(buf []byte) (ColumnRecord, int, error) {
	var r ColumnRecord
	total := 0
	next := func(name string) (uint64, error) {
		v, n, err := DecodeVarint(buf[total:])
		if err != nil {
			return 0, fmt.Errorf("catalog: ColumnRecord.%s: %w", name, err)
		}
		total += n
		return v, nil
	}

	id, err := next("id")
	if err != nil {
		return ColumnRecord{}, 0, err
	}
	r.ID = types.ColumnID(id)

	name, n, err := DecodeString(buf[total:])
	if err != nil {
		return ColumnRecord{}, 0, fmt.Errorf("catalog: ColumnRecord.name: %w", err)
	}
	r.Name = name
	total += n

	dataType, err := next("dataType")
	if err != nil {
		return ColumnRecord{}, 0, err
	}
	r.DataType = types.ColumnDataType(dataType)

	tableID, err := next("tableId")
	if err != nil {
		return ColumnRecord{}, 0, err
	}
	r.TableID = types.TableID(tableID)

	state, err := next("state")
	if err != nil {
		return ColumnRecord{}, 0, err
	}
	r.State = types.ColumnState(state)

	areaSize, err := next("dataBlockAreaSize")
	if err != nil {
		return ColumnRecord{}, 0, err
	}
	r.DataBlockAreaSize = uint32(areaSize)

	return r, total, nil
}

// columnKey is the secondary-index key for looking a column up by the
// table it belongs to and its name.
type columnKey struct {
	tableID types.TableID
	name    string
}

// ColumnRegistry indexes ColumnRecords by id and by (table, name).
type ColumnRegistry struct {
	*Registry[types.ColumnID, ColumnRecord]
	byTableAndName map[columnKey]types.ColumnID
}

func NewColumnRegistry() *ColumnRegistry {
	return &ColumnRegistry{
		Registry:       NewRegistry[types.ColumnID, ColumnRecord](),
		byTableAndName: make(map[columnKey]types.ColumnID),
	}
}

func (cr *ColumnRegistry) Put(rec ColumnRecord) {
	cr.Registry.Put(rec.ID, &rec)
	cr.byTableAndName[columnKey{rec.TableID, rec.Name}] = rec.ID
}

func (cr *ColumnRegistry) FindByTableAndName(tableID types.TableID, name string) (*ColumnRecord, bool) {
	id, ok := cr.byTableAndName[columnKey{tableID, name}]
	if !ok {
		return nil, false
	}
	return cr.Get(id)
}

func (cr *ColumnRegistry) Delete(id types.ColumnID) {
	if rec, ok := cr.Get(id); ok {
		delete(cr.byTableAndName, columnKey{rec.TableID, rec.Name})
	}
	cr.Registry.Delete(id)
}
