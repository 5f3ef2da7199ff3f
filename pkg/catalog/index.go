package catalog

import (
	"fmt"

	"github.com/siodb/siodb/pkg/types"
)

// IndexColumnRecord is one column participating in an index, in sort
// order.
type IndexColumnRecord struct {
	ID                 uint64
	IndexID            types.IndexID
	ColumnDefinitionID types.ColumnDefinitionID
	SortDescending     bool
}

func (r IndexColumnRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, r.ID)
	buf = EncodeVarint(buf, uint64(r.IndexID))
	buf = EncodeVarint(buf, uint64(r.ColumnDefinitionID))
	buf = EncodeBool(buf, r.SortDescending)
	return buf
}

func DecodeIndexColumnRecord(buf []byte) (IndexColumnRecord, int, error) {
	var r IndexColumnRecord
	total := 0

	id, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return IndexColumnRecord{}, 0, fmt.Errorf("catalog: IndexColumnRecord.id: %w", err)
	}
	r.ID = id
	total += n

	indexID, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return IndexColumnRecord{}, 0, fmt.Errorf("catalog: IndexColumnRecord.indexId: %w", err)
	}
	r.IndexID = types.IndexID(indexID)
	total += n

	colDefID, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return IndexColumnRecord{}, 0, fmt.Errorf("catalog: IndexColumnRecord.columnDefinitionId: %w", err)
	}
	r.ColumnDefinitionID = types.ColumnDefinitionID(colDefID)
	total += n

	desc, n, err := DecodeBool(buf[total:])
	if err != nil {
		return IndexColumnRecord{}, 0, fmt.Errorf("catalog: IndexColumnRecord.sortDescending: %w", err)
	}
	r.SortDescending = desc
	total += n

	return r, total, nil
}

// IndexColumnRegistry indexes IndexColumnRecords by id, in the order
// they're added (index column sort order).
type IndexColumnRegistry struct {
	*Registry[uint64, IndexColumnRecord]
}

func NewIndexColumnRegistry() *IndexColumnRegistry {
	return &IndexColumnRegistry{Registry: NewRegistry[uint64, IndexColumnRecord]()}
}

func (r *IndexColumnRegistry) Put(rec IndexColumnRecord) {
	r.Registry.Put(rec.ID, &rec)
}

// IndexRecord is an index's catalog entry: which table it indexes, whether
// it enforces uniqueness, and the ordered columns it's built over.
type IndexRecord struct {
	ID           types.IndexID
	Type         types.IndexType
	TableID      types.TableID
	Unique       bool
	Name         string
	Columns      *IndexColumnRegistry
	DataFileSize uint32
}

func (r IndexRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, uint64(r.ID))
	buf = EncodeVarint(buf, uint64(r.Type))
	buf = EncodeVarint(buf, uint64(r.TableID))
	buf = EncodeBool(buf, r.Unique)
	buf = EncodeString(buf, r.Name)
	cols := r.Columns.All()
	buf = EncodeVarint(buf, uint64(len(cols)))
	for _, c := range cols {
		buf = c.Marshal(buf)
	}
	buf = EncodeVarint(buf, uint64(r.DataFileSize))
	return buf
}

func DecodeIndexRecord(buf []byte) (IndexRecord, int, error) {
	var r IndexRecord
	r.Columns = NewIndexColumnRegistry()
	total := 0

	id, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return IndexRecord{}, 0, fmt.Errorf("catalog: IndexRecord.id: %w", err)
	}
	r.ID = types.IndexID(id)
	total += n

	typ, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return IndexRecord{}, 0, fmt.Errorf("catalog: IndexRecord.type: %w", err)
	}
	r.Type = types.IndexType(typ)
	total += n

	tableID, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return IndexRecord{}, 0, fmt.Errorf("catalog: IndexRecord.tableId: %w", err)
	}
	r.TableID = types.TableID(tableID)
	total += n

	unique, n, err := DecodeBool(buf[total:])
	if err != nil {
		return IndexRecord{}, 0, fmt.Errorf("catalog: IndexRecord.unique: %w", err)
	}
	r.Unique = unique
	total += n

	name, n, err := DecodeString(buf[total:])
	if err != nil {
		return IndexRecord{}, 0, fmt.Errorf("catalog: IndexRecord.name: %w", err)
	}
	r.Name = name
	total += n

	count, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return IndexRecord{}, 0, fmt.Errorf("catalog: IndexRecord.columns count: %w", err)
	}
	total += n

	for i := uint64(0); i < count; i++ {
		c, n, err := DecodeIndexColumnRecord(buf[total:])
		if err != nil {
			return IndexRecord{}, 0, fmt.Errorf("catalog: IndexRecord.columns[%d]: %w", i, err)
		}
		r.Columns.Put(c)
		total += n
	}

	dataFileSize, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return IndexRecord{}, 0, fmt.Errorf("catalog: IndexRecord.dataFileSize: %w", err)
	}
	r.DataFileSize = uint32(dataFileSize)
	total += n

	return r, total, nil
}

// IndexRegistry indexes IndexRecords by id and by (table, name).
type IndexRegistry struct {
	*Registry[types.IndexID, IndexRecord]
	byTableAndName map[columnKey]types.IndexID
}

func NewIndexRegistry() *IndexRegistry {
	return &IndexRegistry{
		Registry:       NewRegistry[types.IndexID, IndexRecord](),
		byTableAndName: make(map[columnKey]types.IndexID),
	}
}

func (r *IndexRegistry) Put(rec IndexRecord) {
	r.Registry.Put(rec.ID, &rec)
	r.byTableAndName[columnKey{rec.TableID, rec.Name}] = rec.ID
}

func (r *IndexRegistry) FindByTableAndName(tableID types.TableID, name string) (*IndexRecord, bool) {
	id, ok := r.byTableAndName[columnKey{tableID, name}]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}
