package catalog

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/siodb/siodb/pkg/types"
)

// ConstraintRecord is a named constraint applied to a table or one of its
// columns (column id 0 means table-level).
type ConstraintRecord struct {
	ID                   types.ConstraintID
	Name                 string
	State                types.ConstraintState
	TableID              types.TableID
	ColumnID             types.ColumnID
	ConstraintDefinition types.ConstraintDefinitionID
}

func (r ConstraintRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, uint64(r.ID))
	buf = EncodeString(buf, r.Name)
	buf = EncodeVarint(buf, uint64(r.State))
	buf = EncodeVarint(buf, uint64(r.TableID))
	buf = EncodeVarint(buf, uint64(r.ColumnID))
	buf = EncodeVarint(buf, uint64(r.ConstraintDefinition))
	return buf
}

func DecodeConstraintRecord(buf []byte) (ConstraintRecord, int, error) {
	var r ConstraintRecord
	total := 0

	id, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ConstraintRecord{}, 0, fmt.Errorf("catalog: ConstraintRecord.id: %w", err)
	}
	r.ID = types.ConstraintID(id)
	total += n

	name, n, err := DecodeString(buf[total:])
	if err != nil {
		return ConstraintRecord{}, 0, fmt.Errorf("catalog: ConstraintRecord.name: %w", err)
	}
	r.Name = name
	total += n

	state, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ConstraintRecord{}, 0, fmt.Errorf("catalog: ConstraintRecord.state: %w", err)
	}
	r.State = types.ConstraintState(state)
	total += n

	tableID, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ConstraintRecord{}, 0, fmt.Errorf("catalog: ConstraintRecord.tableId: %w", err)
	}
	r.TableID = types.TableID(tableID)
	total += n

	columnID, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ConstraintRecord{}, 0, fmt.Errorf("catalog: ConstraintRecord.columnId: %w", err)
	}
	r.ColumnID = types.ColumnID(columnID)
	total += n

	defID, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ConstraintRecord{}, 0, fmt.Errorf("catalog: ConstraintRecord.constraintDefinitionId: %w", err)
	}
	r.ConstraintDefinition = types.ConstraintDefinitionID(defID)
	total += n

	return r, total, nil
}

// ConstraintRegistry indexes ConstraintRecords by id and by (table, name).
type ConstraintRegistry struct {
	*Registry[types.ConstraintID, ConstraintRecord]
	byTableAndName map[columnKey]types.ConstraintID
}

func NewConstraintRegistry() *ConstraintRegistry {
	return &ConstraintRegistry{
		Registry:       NewRegistry[types.ConstraintID, ConstraintRecord](),
		byTableAndName: make(map[columnKey]types.ConstraintID),
	}
}

func (r *ConstraintRegistry) Put(rec ConstraintRecord) {
	r.Registry.Put(rec.ID, &rec)
	r.byTableAndName[columnKey{rec.TableID, rec.Name}] = rec.ID
}

func (r *ConstraintRegistry) FindByTableAndName(tableID types.TableID, name string) (*ConstraintRecord, bool) {
	id, ok := r.byTableAndName[columnKey{tableID, name}]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// ConstraintDefinitionRecord is the shared, deduplicated body of a
// constraint (its type and expression); multiple ConstraintRecords across
// different tables can point at the same definition. Hash is an xxhash64
// of Expression, used to find an existing identical definition without a
// full-expression comparison against every candidate.
type ConstraintDefinitionRecord struct {
	ID         types.ConstraintDefinitionID
	Type       types.ConstraintType
	Expression []byte
	Hash       uint64
}

// NewConstraintDefinitionRecord builds a record, computing Hash from
// expression the same way the catalog does when deduplicating definitions.
func NewConstraintDefinitionRecord(id types.ConstraintDefinitionID, typ types.ConstraintType, expression []byte) ConstraintDefinitionRecord {
	return ConstraintDefinitionRecord{
		ID:         id,
		Type:       typ,
		Expression: expression,
		Hash:       xxhash.Sum64(expression),
	}
}

func (r ConstraintDefinitionRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, uint64(r.ID))
	buf = EncodeVarint(buf, uint64(r.Type))
	buf = EncodeBytes(buf, r.Expression)
	buf = EncodeVarint(buf, r.Hash)
	return buf
}

func DecodeConstraintDefinitionRecord(buf []byte) (ConstraintDefinitionRecord, int, error) {
	var r ConstraintDefinitionRecord
	total := 0

	id, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ConstraintDefinitionRecord{}, 0, fmt.Errorf("catalog: ConstraintDefinitionRecord.id: %w", err)
	}
	r.ID = types.ConstraintDefinitionID(id)
	total += n

	typ, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ConstraintDefinitionRecord{}, 0, fmt.Errorf("catalog: ConstraintDefinitionRecord.type: %w", err)
	}
	r.Type = types.ConstraintType(typ)
	total += n

	expr, n, err := DecodeBytes(buf[total:])
	if err != nil {
		return ConstraintDefinitionRecord{}, 0, fmt.Errorf("catalog: ConstraintDefinitionRecord.expression: %w", err)
	}
	r.Expression = expr
	total += n

	hash, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return ConstraintDefinitionRecord{}, 0, fmt.Errorf("catalog: ConstraintDefinitionRecord.hash: %w", err)
	}
	r.Hash = hash
	total += n

	return r, total, nil
}

// ConstraintDefinitionRegistry indexes ConstraintDefinitionRecords by id
// and by content hash, so CreateUserTable's constraint deduplication is an
// O(1) hash lookup rather than a scan.
type ConstraintDefinitionRegistry struct {
	*Registry[types.ConstraintDefinitionID, ConstraintDefinitionRecord]
	byHash map[uint64][]types.ConstraintDefinitionID
}

func NewConstraintDefinitionRegistry() *ConstraintDefinitionRegistry {
	return &ConstraintDefinitionRegistry{
		Registry: NewRegistry[types.ConstraintDefinitionID, ConstraintDefinitionRecord](),
		byHash:   make(map[uint64][]types.ConstraintDefinitionID),
	}
}

func (r *ConstraintDefinitionRegistry) Put(rec ConstraintDefinitionRecord) {
	r.Registry.Put(rec.ID, &rec)
	r.byHash[rec.Hash] = append(r.byHash[rec.Hash], rec.ID)
}

// FindEquivalent returns an existing definition with the same type and
// expression bytes as (typ, expression), if one has already been recorded.
func (r *ConstraintDefinitionRegistry) FindEquivalent(typ types.ConstraintType, expression []byte) (*ConstraintDefinitionRecord, bool) {
	hash := xxhash.Sum64(expression)
	for _, id := range r.byHash[hash] {
		rec, ok := r.Get(id)
		if ok && rec.Type == typ && string(rec.Expression) == string(expression) {
			return rec, true
		}
	}
	return nil, false
}
