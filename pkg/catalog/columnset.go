package catalog

import (
	"fmt"

	"github.com/siodb/siodb/pkg/types"
)

// ColumnSetColumnRecord maps one column (by its current column definition)
// into a column set.
type ColumnSetColumnRecord struct {
	ID                 uint64
	ColumnSetID        types.ColumnSetID
	ColumnDefinitionID types.ColumnDefinitionID
	ColumnID           types.ColumnID
}

func (r ColumnSetColumnRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, r.ID)
	buf = EncodeVarint(buf, uint64(r.ColumnSetID))
	buf = EncodeVarint(buf, uint64(r.ColumnDefinitionID))
	buf = EncodeVarint(buf, uint64(r.ColumnID))
	return buf
}

func DecodeColumnSetColumnRecord(buf []byte) (ColumnSetColumnRecord, int, error) {
	var r ColumnSetColumnRecord
	total := 0
	next := func(name string) (uint64, error) {
		v, n, err := DecodeVarint(buf[total:])
		if err != nil {
			return 0, fmt.Errorf("catalog: ColumnSetColumnRecord.%s: %w", name, err)
		}
		total += n
		return v, nil
	}
	id, err := next("id")
	if err != nil {
		return ColumnSetColumnRecord{}, 0, err
	}
	r.ID = id
	columnSetID, err := next("columnSetId")
	if err != nil {
		return ColumnSetColumnRecord{}, 0, err
	}
	r.ColumnSetID = types.ColumnSetID(columnSetID)
	columnDefID, err := next("columnDefinitionId")
	if err != nil {
		return ColumnSetColumnRecord{}, 0, err
	}
	r.ColumnDefinitionID = types.ColumnDefinitionID(columnDefID)
	columnID, err := next("columnId")
	if err != nil {
		return ColumnSetColumnRecord{}, 0, err
	}
	r.ColumnID = types.ColumnID(columnID)
	return r, total, nil
}

// ColumnSetColumnRegistry indexes ColumnSetColumnRecords by id and by the
// column they describe, so a column set can be asked "what definition of
// column X does this set use" in one lookup.
type ColumnSetColumnRegistry struct {
	*Registry[uint64, ColumnSetColumnRecord]
	byColumnID map[types.ColumnID]uint64
}

func NewColumnSetColumnRegistry() *ColumnSetColumnRegistry {
	return &ColumnSetColumnRegistry{
		Registry:   NewRegistry[uint64, ColumnSetColumnRecord](),
		byColumnID: make(map[types.ColumnID]uint64),
	}
}

func (r *ColumnSetColumnRegistry) Put(rec ColumnSetColumnRecord) {
	r.Registry.Put(rec.ID, &rec)
	r.byColumnID[rec.ColumnID] = rec.ID
}

func (r *ColumnSetColumnRegistry) FindByColumnID(columnID types.ColumnID) (*ColumnSetColumnRecord, bool) {
	id, ok := r.byColumnID[columnID]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// ColumnSetRecord is a named snapshot of which column definitions make up a
// table's current row layout.
type ColumnSetRecord struct {
	ID      types.ColumnSetID
	TableID types.TableID
	Columns *ColumnSetColumnRegistry
}

func (r ColumnSetRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, uint64(r.ID))
	buf = EncodeVarint(buf, uint64(r.TableID))
	cols := r.Columns.All()
	buf = EncodeVarint(buf, uint64(len(cols)))
	for _, c := range cols {
		buf = c.Marshal(buf)
	}
	return buf
}

func DecodeColumnSetRecord(buf []byte) (ColumnSetRecord, int, error) {
	var r ColumnSetRecord
	r.Columns = NewColumnSetColumnRegistry()
	total := 0

	id, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ColumnSetRecord{}, 0, fmt.Errorf("catalog: ColumnSetRecord.id: %w", err)
	}
	r.ID = types.ColumnSetID(id)
	total += n

	tableID, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ColumnSetRecord{}, 0, fmt.Errorf("catalog: ColumnSetRecord.tableId: %w", err)
	}
	r.TableID = types.TableID(tableID)
	total += n

	count, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ColumnSetRecord{}, 0, fmt.Errorf("catalog: ColumnSetRecord.columns count: %w", err)
	}
	total += n

	for i := uint64(0); i < count; i++ {
		col, n, err := DecodeColumnSetColumnRecord(buf[total:])
		if err != nil {
			return ColumnSetRecord{}, 0, fmt.Errorf("catalog: ColumnSetRecord.columns[%d]: %w", i, err)
		}
		r.Columns.Put(col)
		total += n
	}

	return r, total, nil
}

// ColumnSetRegistry indexes ColumnSetRecords by id.
type ColumnSetRegistry struct {
	*Registry[types.ColumnSetID, ColumnSetRecord]
}

func NewColumnSetRegistry() *ColumnSetRegistry {
	return &ColumnSetRegistry{Registry: NewRegistry[types.ColumnSetID, ColumnSetRecord]()}
}

func (r *ColumnSetRegistry) Put(rec ColumnSetRecord) {
	r.Registry.Put(rec.ID, &rec)
}
