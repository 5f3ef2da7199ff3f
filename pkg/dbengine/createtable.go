package dbengine

import (
	"fmt"

	"github.com/siodb/siodb/pkg/catalog"
	"github.com/siodb/siodb/pkg/dberr"
	"github.com/siodb/siodb/pkg/metrics"
	"github.com/siodb/siodb/pkg/types"
)

// ColumnSpec describes one column of a table being created.
type ColumnSpec struct {
	Name              string
	DataType          types.ColumnDataType
	DataBlockAreaSize uint32
	NotNull           bool
	// Constraints beyond NOT NULL; NOT NULL is handled separately because
	// every column specifies it directly rather than through an expression.
	Constraints []ColumnConstraintSpec
}

// ColumnConstraintSpec is one named constraint attached to a column.
type ColumnConstraintSpec struct {
	Name       string
	Type       types.ConstraintType
	Expression string
}

// masterColumnName is the name of a table's always-present master
// column, the TRID-addressed backbone every other column and the main
// index hang off of.
const masterColumnName = "TRID"

// CreateUserTable validates name and spec.columns are well-formed and
// then creates name as a new table: a master column, one column per
// spec entry, a column set binding them together, and each column's
// data directory and main index. Of the pre-allocation the original
// engine performs up front, only the master column's first main-index
// key is reserved; no data block exists until a row is first stored.
//
// Validation runs to completion before any mutation, collecting every
// problem into one CompoundError rather than stopping at the first.
func (db *Database) CreateUserTable(name string, columns []ColumnSpec) (*catalog.TableRecord, error) {
	if err := validateCreateTable(db, name, columns); err != nil {
		metrics.CreateTableValidationErrorsTotal.Inc()
		return nil, err
	}

	tableID := db.nextTableID
	db.nextTableID++

	masterColumnID := db.nextColumnID
	db.nextColumnID++

	columnSet := catalog.ColumnSetRecord{ID: types.ColumnSetID(tableID), TableID: tableID, Columns: catalog.NewColumnSetColumnRegistry()}

	masterColumn := catalog.ColumnRecord{
		ID:                masterColumnID,
		Name:              masterColumnName,
		DataType:          types.DataTypeUInt64,
		TableID:           tableID,
		State:             types.ColumnStateActive,
		DataBlockAreaSize: defaultDataAreaSize,
	}
	masterColumnDef := catalog.ColumnDefinitionRecord{
		ID:          types.ColumnDefinitionID(masterColumnID),
		ColumnID:    masterColumnID,
		Constraints: catalog.NewColumnDefinitionConstraintRegistry(),
	}
	if err := db.addColumnToTable(masterColumn, masterColumnDef, &columnSet); err != nil {
		return nil, fmt.Errorf("dbengine: create master column for table %q: %w", name, err)
	}
	db.ColumnDefinitions.Put(masterColumnDef)

	columnIDs := make([]types.ColumnID, 0, len(columns))
	for _, spec := range columns {
		columnID := db.nextColumnID
		db.nextColumnID++
		columnIDs = append(columnIDs, columnID)

		column := catalog.ColumnRecord{
			ID:                columnID,
			Name:              spec.Name,
			DataType:          spec.DataType,
			TableID:           tableID,
			State:             types.ColumnStateActive,
			DataBlockAreaSize: areaSizeOrDefault(spec.DataBlockAreaSize),
		}
		columnDef := catalog.ColumnDefinitionRecord{
			ID:          types.ColumnDefinitionID(columnID),
			ColumnID:    columnID,
			Constraints: catalog.NewColumnDefinitionConstraintRegistry(),
		}
		if err := db.addColumnToTable(column, columnDef, &columnSet); err != nil {
			return nil, fmt.Errorf("dbengine: create column %q for table %q: %w", spec.Name, name, err)
		}

		if spec.NotNull {
			if err := db.attachConstraint(tableID, columnID, &columnDef, "", types.ConstraintTypeNotNull, ""); err != nil {
				return nil, err
			}
		}
		for _, c := range spec.Constraints {
			if err := db.attachConstraint(tableID, columnID, &columnDef, c.Name, c.Type, c.Expression); err != nil {
				return nil, err
			}
		}
		db.ColumnDefinitions.Put(columnDef)
	}

	db.ColumnSets.Put(columnSet)
	if err := db.catalogTables[sysColumnSetsTableID].InsertAt(types.TRID(columnSet.ID), columnSet.Marshal(nil)); err != nil {
		return nil, fmt.Errorf("dbengine: write SYS_COLUMN_SETS row for %q: %w", name, err)
	}

	rec := catalog.TableRecord{
		ID:               tableID,
		Type:             types.TableTypeDisk,
		Name:             name,
		FirstUserTRID:    firstOrdinaryTRID,
		CurrentColumnSet: columnSet.ID,
	}
	if err := db.catalogTables[sysTablesTableID].InsertAt(types.TRID(tableID), rec.Marshal(nil)); err != nil {
		return nil, fmt.Errorf("dbengine: write SYS_TABLES row for %q: %w", name, err)
	}
	db.Tables.Put(rec)

	if err := db.preallocateNewTable(tableID, masterColumnID, columnIDs); err != nil {
		return nil, fmt.Errorf("dbengine: preallocate storage for table %q: %w", name, err)
	}

	metrics.TablesCreatedTotal.Inc()
	return &rec, nil
}

// validateCreateTable runs every structural check the original engine's
// createTable performs before touching storage, collecting failures
// into one CompoundError so a caller sees every problem at once instead
// of fixing them one at a time.
func validateCreateTable(db *Database, name string, columns []ColumnSpec) error {
	var errs dberr.CompoundError

	if name == "" {
		errs.Add(dberr.New(dberr.CodeInvalidObjectName, "table name must not be empty"))
	}
	if _, exists := db.Tables.FindByName(name); exists {
		errs.Add(dberr.New(dberr.CodeDuplicateObjectName, fmt.Sprintf("table %q already exists", name)))
	}

	seenColumnNames := make(map[string]bool, len(columns))
	for _, col := range columns {
		if col.Name == "" {
			errs.Add(dberr.New(dberr.CodeInvalidObjectName, "column name must not be empty"))
			continue
		}
		if col.Name == masterColumnName {
			errs.Add(dberr.New(dberr.CodeInvalidObjectName, fmt.Sprintf("column name %q is reserved", masterColumnName)))
		}
		if seenColumnNames[col.Name] {
			errs.Add(dberr.New(dberr.CodeDuplicateObjectName, fmt.Sprintf("duplicate column name %q", col.Name)))
		}
		seenColumnNames[col.Name] = true

		seenConstraintNames := make(map[string]bool, len(col.Constraints))
		seenConstraintTypes := make(map[types.ConstraintType]bool, len(col.Constraints))
		for _, c := range col.Constraints {
			if c.Name != "" {
				if seenConstraintNames[c.Name] {
					errs.Add(dberr.New(dberr.CodeDuplicateObjectName,
						fmt.Sprintf("duplicate constraint name %q on column %q", c.Name, col.Name)))
				}
				seenConstraintNames[c.Name] = true
			}
			if seenConstraintTypes[c.Type] {
				errs.Add(dberr.New(dberr.CodeDuplicateConstraint,
					fmt.Sprintf("column %q already has a constraint of this type", col.Name)))
			}
			seenConstraintTypes[c.Type] = true
		}
	}

	return errs.AsError()
}

// addColumnToTable records column and columnDef in the in-memory
// registries and binds columnDef into columnSet, mirroring
// Table::createColumn followed by closeCurrentColumnSet in the original
// engine. It also writes the column's SYS_COLUMNS, SYS_COLUMN_DEFS and
// SYS_COLUMN_SET_COLUMNS rows; the column's data store is opened later,
// by preallocateNewTable, once every column for the table has been built.
func (db *Database) addColumnToTable(column catalog.ColumnRecord, columnDef catalog.ColumnDefinitionRecord, columnSet *catalog.ColumnSetRecord) error {
	if _, err := db.catalogTables[sysColumnsTableID].Insert(column.Marshal(nil)); err != nil {
		return err
	}
	db.Columns.Put(column)

	if _, err := db.catalogTables[sysColumnDefsTableID].Insert(columnDef.Marshal(nil)); err != nil {
		return err
	}

	setColumn := catalog.ColumnSetColumnRecord{
		ID:                 uint64(column.ID),
		ColumnSetID:        columnSet.ID,
		ColumnDefinitionID: columnDef.ID,
		ColumnID:           column.ID,
	}
	if _, err := db.catalogTables[sysColumnSetColumnsTableID].Insert(setColumn.Marshal(nil)); err != nil {
		return err
	}
	columnSet.Columns.Put(setColumn)
	return nil
}

// attachConstraint records a constraint, de-duplicating its definition
// against any equivalent (type, expression) pair already known, mirroring
// the original engine's constraint-definition sharing.
func (db *Database) attachConstraint(tableID types.TableID, columnID types.ColumnID, columnDef *catalog.ColumnDefinitionRecord, name string, typ types.ConstraintType, expression string) error {
	defRec, ok := db.ConstraintDefinitions.FindEquivalent(typ, []byte(expression))
	if !ok {
		defID := db.nextConstraintDefID
		db.nextConstraintDefID++
		rec := catalog.NewConstraintDefinitionRecord(defID, typ, []byte(expression))
		if _, err := db.catalogTables[sysConstraintDefsTableID].Insert(rec.Marshal(nil)); err != nil {
			return err
		}
		db.ConstraintDefinitions.Put(rec)
		defRec = &rec
	}

	constraintID := db.nextConstraintID
	db.nextConstraintID++
	constraint := catalog.ConstraintRecord{
		ID:                   constraintID,
		Name:                 name,
		State:                types.ConstraintStateActive,
		TableID:              tableID,
		ColumnID:             columnID,
		ConstraintDefinition: defRec.ID,
	}
	if _, err := db.catalogTables[sysConstraintsTableID].Insert(constraint.Marshal(nil)); err != nil {
		return err
	}
	db.Constraints.Put(constraint)

	link := catalog.ColumnDefinitionConstraintRecord{
		ID:                 uint64(constraintID),
		ColumnDefinitionID: columnDef.ID,
		ConstraintID:       constraintID,
	}
	if _, err := db.catalogTables[sysColumnDefConstraintsTableID].Insert(link.Marshal(nil)); err != nil {
		return err
	}
	columnDef.Constraints.Put(link)
	return nil
}

func areaSizeOrDefault(size uint32) uint32 {
	if size == 0 {
		return defaultDataAreaSize
	}
	return size
}
