package catalog

import (
	"fmt"

	"github.com/siodb/siodb/pkg/types"
)

// ColumnDefinitionConstraintRecord links a constraint into a column
// definition's constraint set.
type ColumnDefinitionConstraintRecord struct {
	ID                 uint64
	ColumnDefinitionID types.ColumnDefinitionID
	ConstraintID       types.ConstraintID
}

func (r ColumnDefinitionConstraintRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, r.ID)
	buf = EncodeVarint(buf, uint64(r.ColumnDefinitionID))
	buf = EncodeVarint(buf, uint64(r.ConstraintID))
	return buf
}

func DecodeColumnDefinitionConstraintRecord(buf []byte) (ColumnDefinitionConstraintRecord, int, error) {
	var r ColumnDefinitionConstraintRecord
	total := 0
	next := func(name string) (uint64, error) {
		v, n, err := DecodeVarint(buf[total:])
		if err != nil {
			return 0, fmt.Errorf("catalog: ColumnDefinitionConstraintRecord.%s: %w", name, err)
		}
		total += n
		return v, nil
	}
	id, err := next("id")
	if err != nil {
		return ColumnDefinitionConstraintRecord{}, 0, err
	}
	r.ID = id
	colDefID, err := next("columnDefinitionId")
	if err != nil {
		return ColumnDefinitionConstraintRecord{}, 0, err
	}
	r.ColumnDefinitionID = types.ColumnDefinitionID(colDefID)
	constraintID, err := next("constraintId")
	if err != nil {
		return ColumnDefinitionConstraintRecord{}, 0, err
	}
	r.ConstraintID = types.ConstraintID(constraintID)
	return r, total, nil
}

// ColumnDefinitionConstraintRegistry indexes ColumnDefinitionConstraintRecords
// by id and by the constraint they refer to.
type ColumnDefinitionConstraintRegistry struct {
	*Registry[uint64, ColumnDefinitionConstraintRecord]
	byConstraintID map[types.ConstraintID]uint64
}

func NewColumnDefinitionConstraintRegistry() *ColumnDefinitionConstraintRegistry {
	return &ColumnDefinitionConstraintRegistry{
		Registry:       NewRegistry[uint64, ColumnDefinitionConstraintRecord](),
		byConstraintID: make(map[types.ConstraintID]uint64),
	}
}

func (r *ColumnDefinitionConstraintRegistry) Put(rec ColumnDefinitionConstraintRecord) {
	r.Registry.Put(rec.ID, &rec)
	r.byConstraintID[rec.ConstraintID] = rec.ID
}

// ColumnDefinitionRecord is one evolution of a column's storage definition;
// columns gain a new definition whenever their constraint set changes.
type ColumnDefinitionRecord struct {
	ID          types.ColumnDefinitionID
	ColumnID    types.ColumnID
	Constraints *ColumnDefinitionConstraintRegistry
}

func (r ColumnDefinitionRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, uint64(r.ID))
	buf = EncodeVarint(buf, uint64(r.ColumnID))
	constraints := r.Constraints.All()
	buf = EncodeVarint(buf, uint64(len(constraints)))
	for _, c := range constraints {
		buf = c.Marshal(buf)
	}
	return buf
}

func DecodeColumnDefinitionRecord(buf []byte) (ColumnDefinitionRecord, int, error) {
	var r ColumnDefinitionRecord
	r.Constraints = NewColumnDefinitionConstraintRegistry()
	total := 0

	id, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ColumnDefinitionRecord{}, 0, fmt.Errorf("catalog: ColumnDefinitionRecord.id: %w", err)
	}
	r.ID = types.ColumnDefinitionID(id)
	total += n

	columnID, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ColumnDefinitionRecord{}, 0, fmt.Errorf("catalog: ColumnDefinitionRecord.columnId: %w", err)
	}
	r.ColumnID = types.ColumnID(columnID)
	total += n

	count, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ColumnDefinitionRecord{}, 0, fmt.Errorf("catalog: ColumnDefinitionRecord.constraints count: %w", err)
	}
	total += n

	for i := uint64(0); i < count; i++ {
		c, n, err := DecodeColumnDefinitionConstraintRecord(buf[total:])
		if err != nil {
			return ColumnDefinitionRecord{}, 0, fmt.Errorf("catalog: ColumnDefinitionRecord.constraints[%d]: %w", i, err)
		}
		r.Constraints.Put(c)
		total += n
	}

	return r, total, nil
}

// ColumnDefinitionRegistry indexes ColumnDefinitionRecords by id and by the
// column they belong to.
type ColumnDefinitionRegistry struct {
	*Registry[types.ColumnDefinitionID, ColumnDefinitionRecord]
	byColumnID map[types.ColumnID][]types.ColumnDefinitionID
}

func NewColumnDefinitionRegistry() *ColumnDefinitionRegistry {
	return &ColumnDefinitionRegistry{
		Registry:   NewRegistry[types.ColumnDefinitionID, ColumnDefinitionRecord](),
		byColumnID: make(map[types.ColumnID][]types.ColumnDefinitionID),
	}
}

func (r *ColumnDefinitionRegistry) Put(rec ColumnDefinitionRecord) {
	r.Registry.Put(rec.ID, &rec)
	r.byColumnID[rec.ColumnID] = append(r.byColumnID[rec.ColumnID], rec.ID)
}

// FindByColumnID returns every definition a column has had, oldest first.
func (r *ColumnDefinitionRegistry) FindByColumnID(columnID types.ColumnID) []*ColumnDefinitionRecord {
	ids := r.byColumnID[columnID]
	out := make([]*ColumnDefinitionRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := r.Get(id); ok {
			out = append(out, rec)
		}
	}
	return out
}
