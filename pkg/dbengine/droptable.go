package dbengine

import (
	"fmt"
	"sort"

	"github.com/siodb/siodb/pkg/logging"
	"github.com/siodb/siodb/pkg/metrics"
	"github.com/siodb/siodb/pkg/types"
)

// staged is one catalog row a drop has decided to remove: which table it
// lives in and under which TRID.
type staged struct {
	tableID types.TableID
	trid    types.TRID
}

// dropPlan is Phase A's output: every row DropTable must remove, already
// in the original engine's inner-to-outer deletion order. Building a plan
// never mutates anything; it is pure registry reads so that nothing about
// a drop becomes irreversible until Phase B actually starts erasing rows.
type dropPlan struct {
	tableID types.TableID

	indexColumns         []staged
	indices              []staged
	columnSetColumns     []staged
	columnSets           []staged
	tableRow             []staged
	constraints          []staged
	columnDefConstraints []staged
	columnDefs           []staged
	columns              []staged
	unreferencedDefs     []staged
}

// orderedGroups lists every staged group in deletion order: index-columns,
// indices, column-set-columns, column-sets, the table's own SYS_TABLES
// row, constraints, column-def-constraints, column-definitions, columns,
// and finally any constraint-definitions the drop leaves unreferenced.
func (p dropPlan) orderedGroups() [][]staged {
	return [][]staged{
		p.indexColumns,
		p.indices,
		p.columnSetColumns,
		p.columnSets,
		p.tableRow,
		p.constraints,
		p.columnDefConstraints,
		p.columnDefs,
		p.columns,
		p.unreferencedDefs,
	}
}

// DropTable removes name and every object that exists only because of it.
//
// Collect, delete, rollback, finalize: collectDropPlan walks the
// in-memory registries to decide what must go, touching nothing; a
// systemTableRowDeleter then erases those rows from storage in dependency
// order, capturing each row's payload before erasing it; if any erase
// fails, every row erased so far is re-inserted in reverse order and the
// in-memory registries are left exactly as they were. Only once every row
// is confirmed gone does DropTable detach the table from the in-memory
// registries and remove its data directory — the point after which the
// drop can no longer be undone, but also the point at which storage
// already reflects "table is gone" even if the process dies before the
// registries or the data directory are cleaned up.
func (db *Database) DropTable(name string) error {
	rec, ok := db.Tables.FindByName(name)
	if !ok {
		return fmt.Errorf("dbengine: table %q does not exist", name)
	}
	tableID := rec.ID

	plan := db.collectDropPlan(tableID)

	deleter := newSystemTableRowDeleter(db)
	if err := deleter.deleteGroups(plan.orderedGroups()); err != nil {
		if rerr := deleter.rollback(); rerr != nil {
			logging.WithComponent("dbengine").Error().Err(rerr).Str("table", name).
				Msg("drop table: rollback failed, catalog may be inconsistent")
			return fmt.Errorf("dbengine: drop table %q: %v, and rollback failed: %w", name, err, rerr)
		}
		metrics.DropTableRollbacksTotal.Inc()
		return fmt.Errorf("dbengine: drop table %q: %w", name, err)
	}

	db.applyDropToRegistries(plan)

	if err := db.removeUserTableData(tableID); err != nil {
		logging.WithComponent("dbengine").Warn().Err(err).Str("table", name).
			Msg("drop table: failed to remove data directory")
	}

	metrics.TablesDroppedTotal.Inc()
	return nil
}

// collectDropPlan gathers every row DropTable will need to remove for
// tableID. It only reads db's registries.
func (db *Database) collectDropPlan(tableID types.TableID) dropPlan {
	indexRows, indexColumnRows := db.collectIndices(tableID)
	columnSetRows, columnSetColumnRows := db.collectColumnSets(tableID)
	columnRows, columnDefRows, columnDefConstraintRows, constraintRows := db.collectColumns(tableID)
	unreferencedDefRows := db.collectUnreferencedConstraintDefinitions(constraintRows)

	return dropPlan{
		tableID:              tableID,
		indexColumns:         indexColumnRows,
		indices:              indexRows,
		columnSetColumns:     columnSetColumnRows,
		columnSets:           columnSetRows,
		tableRow:             []staged{{sysTablesTableID, types.TRID(tableID)}},
		constraints:          constraintRows,
		columnDefConstraints: columnDefConstraintRows,
		columnDefs:           columnDefRows,
		columns:              columnRows,
		unreferencedDefs:     unreferencedDefRows,
	}
}

// collectIndices gathers every index defined on tableID and the
// index-column rows that belong to each. Pure read: nothing is removed
// from db.Indices here.
func (db *Database) collectIndices(tableID types.TableID) (indices, indexColumns []staged) {
	for _, idx := range db.Indices.All() {
		if idx.TableID != tableID {
			continue
		}
		for _, ic := range idx.Columns.All() {
			indexColumns = append(indexColumns, staged{sysIndexColumnsTableID, types.TRID(ic.ID)})
		}
		indices = append(indices, staged{sysIndicesTableID, types.TRID(idx.ID)})
	}
	return indices, indexColumns
}

// collectColumnSets gathers tableID's column sets and their
// column-set-column membership rows. Pure read.
func (db *Database) collectColumnSets(tableID types.TableID) (columnSets, columnSetColumns []staged) {
	for _, cs := range db.ColumnSets.All() {
		if cs.TableID != tableID {
			continue
		}
		for _, cc := range cs.Columns.All() {
			columnSetColumns = append(columnSetColumns, staged{sysColumnSetColumnsTableID, types.TRID(cc.ID)})
		}
		columnSets = append(columnSets, staged{sysColumnSetsTableID, types.TRID(cs.ID)})
	}
	return columnSets, columnSetColumns
}

// collectColumns gathers tableID's columns, their column definitions,
// each definition's constraint links, and the constraints themselves.
// Pure read.
func (db *Database) collectColumns(tableID types.TableID) (columns, columnDefs, columnDefConstraints, constraints []staged) {
	for _, col := range db.Columns.All() {
		if col.TableID != tableID {
			continue
		}
		for _, def := range db.ColumnDefinitions.FindByColumnID(col.ID) {
			for _, link := range def.Constraints.All() {
				columnDefConstraints = append(columnDefConstraints, staged{sysColumnDefConstraintsTableID, types.TRID(link.ID)})
			}
			columnDefs = append(columnDefs, staged{sysColumnDefsTableID, types.TRID(def.ID)})
		}
		columns = append(columns, staged{sysColumnsTableID, types.TRID(col.ID)})
	}

	for _, c := range db.Constraints.All() {
		if c.TableID != tableID {
			continue
		}
		constraints = append(constraints, staged{sysConstraintsTableID, types.TRID(c.ID)})
	}

	return columns, columnDefs, columnDefConstraints, constraints
}

// collectUnreferencedConstraintDefinitions decides which constraint
// definitions become unreferenced once constraintRows are dropped.
// Definitions are shared across constraints by (type, expression), so a
// definition is only staged for removal if no constraint outside the
// dropped set still points at it. The result is sorted by id so Phase C's
// rollback order is reproducible.
func (db *Database) collectUnreferencedConstraintDefinitions(constraintRows []staged) []staged {
	dropped := make(map[types.ConstraintID]bool, len(constraintRows))
	candidates := make(map[types.ConstraintDefinitionID]bool, len(constraintRows))
	for _, row := range constraintRows {
		id := types.ConstraintID(row.trid)
		dropped[id] = true
		if rec, ok := db.Constraints.Get(id); ok {
			candidates[rec.ConstraintDefinition] = true
		}
	}

	for _, rec := range db.Constraints.All() {
		if dropped[rec.ID] {
			continue
		}
		delete(candidates, rec.ConstraintDefinition)
	}

	unreferenced := make([]staged, 0, len(candidates))
	for defID := range candidates {
		unreferenced = append(unreferenced, staged{sysConstraintDefsTableID, types.TRID(defID)})
	}
	sort.Slice(unreferenced, func(i, j int) bool { return unreferenced[i].trid < unreferenced[j].trid })
	return unreferenced
}

// applyDropToRegistries removes every row in plan from its in-memory
// registry. It only ever runs after every row has already been confirmed
// erased from storage, so a registry lookup never disagrees with what is
// actually on disk.
func (db *Database) applyDropToRegistries(plan dropPlan) {
	for _, row := range plan.indices {
		db.Indices.Delete(types.IndexID(row.trid))
	}
	for _, row := range plan.columnSets {
		db.ColumnSets.Delete(types.ColumnSetID(row.trid))
	}
	for _, row := range plan.constraints {
		db.Constraints.Delete(types.ConstraintID(row.trid))
	}
	for _, row := range plan.columnDefs {
		db.ColumnDefinitions.Delete(types.ColumnDefinitionID(row.trid))
	}
	for _, row := range plan.columns {
		db.Columns.Delete(types.ColumnID(row.trid))
	}
	for _, row := range plan.unreferencedDefs {
		db.ConstraintDefinitions.Delete(types.ConstraintDefinitionID(row.trid))
	}
	db.Tables.Delete(plan.tableID)
}

// undoEntry records one row a systemTableRowDeleter has erased: enough to
// put it back exactly as it was.
type undoEntry struct {
	tableID types.TableID
	trid    types.TRID
	payload []byte
}

// systemTableRowDeleter deletes catalog rows one at a time, recording each
// row's payload before erasing it so a failure partway through can be
// undone. This is the closest pkg/rowstore comes to the original engine's
// rollback_to(address, next-block-id) on a master column: there is no
// single call that rewinds a column to an earlier state, so rollback is
// expressed instead as re-inserting every erased row, in reverse order,
// under its original TRID.
type systemTableRowDeleter struct {
	db   *Database
	undo []undoEntry
}

func newSystemTableRowDeleter(db *Database) *systemTableRowDeleter {
	return &systemTableRowDeleter{db: db}
}

// deleteGroups erases every row across groups, in order, stopping at the
// first failure.
func (d *systemTableRowDeleter) deleteGroups(groups [][]staged) error {
	for _, rows := range groups {
		for _, row := range rows {
			if err := d.deleteOne(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *systemTableRowDeleter) deleteOne(row staged) error {
	table, ok := d.db.catalogTables[row.tableID]
	if !ok {
		return fmt.Errorf("unknown catalog table %d", row.tableID)
	}

	payload, found, err := table.Get(row.trid)
	if err != nil {
		return fmt.Errorf("read trid %d from table %d before delete: %w", row.trid, row.tableID, err)
	}
	if !found {
		return fmt.Errorf("trid %d in table %d is already gone", row.trid, row.tableID)
	}

	if err := table.Delete(row.trid); err != nil {
		return fmt.Errorf("erase trid %d from table %d: %w", row.trid, row.tableID, err)
	}
	d.undo = append(d.undo, undoEntry{row.tableID, row.trid, payload})
	return nil
}

// rollback re-inserts every row deleteGroups erased so far, in reverse
// order. A failure here is logged and returned rather than swallowed —
// partial rollback is worse than none, since it hides that the catalog
// needs manual repair.
func (d *systemTableRowDeleter) rollback() error {
	for i := len(d.undo) - 1; i >= 0; i-- {
		e := d.undo[i]
		table, ok := d.db.catalogTables[e.tableID]
		if !ok {
			return fmt.Errorf("unknown catalog table %d during rollback", e.tableID)
		}
		if err := table.InsertAt(e.trid, e.payload); err != nil {
			return fmt.Errorf("restore trid %d in table %d: %w", e.trid, e.tableID, err)
		}
	}
	return nil
}
