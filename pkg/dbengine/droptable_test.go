package dbengine

import (
	"testing"

	"github.com/siodb/siodb/pkg/types"
)

func TestDropTableRemovesCatalogRowsAndData(t *testing.T) {
	db := newTestDatabase(t)

	rec, err := db.CreateUserTable("orders", []ColumnSpec{
		{Name: "customer", DataType: types.DataTypeText, NotNull: true},
	})
	if err != nil {
		t.Fatalf("CreateUserTable: %v", err)
	}
	tableID := rec.ID

	if err := db.DropTable("orders"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}

	if _, ok := db.Tables.FindByName("orders"); ok {
		t.Fatal("expected the table to no longer be in the registry")
	}
	for _, col := range db.Columns.All() {
		if col.TableID == tableID {
			t.Fatalf("expected no columns to remain for dropped table, found %+v", col)
		}
	}
	for _, cs := range db.ColumnSets.All() {
		if cs.TableID == tableID {
			t.Fatalf("expected no column sets to remain for dropped table, found %+v", cs)
		}
	}

	table, err := db.CatalogTable(sysTablesTableID)
	if err != nil {
		t.Fatalf("CatalogTable: %v", err)
	}
	if _, ok, err := table.Get(types.TRID(tableID)); err != nil || ok {
		t.Fatalf("expected the table's SYS_TABLES row to be gone: ok=%v err=%v", ok, err)
	}
}

func TestDropTableRejectsUnknownName(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.DropTable("nosuch"); err == nil {
		t.Fatal("expected dropping an unknown table to fail")
	}
}

func TestDropTableThenCreateSameNameAgain(t *testing.T) {
	db := newTestDatabase(t)

	if _, err := db.CreateUserTable("orders", nil); err != nil {
		t.Fatalf("first CreateUserTable: %v", err)
	}
	if err := db.DropTable("orders"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if _, err := db.CreateUserTable("orders", nil); err != nil {
		t.Fatalf("expected recreating a dropped table's name to succeed: %v", err)
	}
}

// TestDropTableFailureLeavesCatalogUntouched simulates a Phase B failure
// (an unknown catalog table id reached mid-plan) and checks that rollback
// restores every row systemTableRowDeleter had already erased, leaving
// both storage and the in-memory registries exactly as they were.
func TestDropTableFailureLeavesCatalogUntouched(t *testing.T) {
	db := newTestDatabase(t)

	rec, err := db.CreateUserTable("orders", []ColumnSpec{
		{Name: "customer", DataType: types.DataTypeText, NotNull: true},
	})
	if err != nil {
		t.Fatalf("CreateUserTable: %v", err)
	}
	tableID := rec.ID

	plan := db.collectDropPlan(tableID)
	// Poison the plan with a row pointing at a catalog table id that does
	// not exist, forcing deleteGroups to fail partway through a real
	// plan's rows.
	plan.columns = append(plan.columns, staged{types.TableID(9999), types.TRID(0)})

	deleter := newSystemTableRowDeleter(db)
	if err := deleter.deleteGroups(plan.orderedGroups()); err == nil {
		t.Fatal("expected the poisoned plan to fail")
	}
	if err := deleter.rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if _, ok := db.Tables.FindByName("orders"); !ok {
		t.Fatal("expected the table to still be present in the registry after rollback")
	}
	found := false
	for _, col := range db.Columns.All() {
		if col.TableID == tableID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the table's columns to still be present after rollback")
	}

	table, err := db.CatalogTable(sysTablesTableID)
	if err != nil {
		t.Fatalf("CatalogTable: %v", err)
	}
	if _, ok, err := table.Get(types.TRID(tableID)); err != nil || !ok {
		t.Fatalf("expected the SYS_TABLES row to still be on disk after rollback: ok=%v err=%v", ok, err)
	}

	// The table must still drop cleanly afterwards.
	if err := db.DropTable("orders"); err != nil {
		t.Fatalf("DropTable after rollback: %v", err)
	}
}

// TestDropTableSharedConstraintDefinitionSurvives checks that a constraint
// definition shared by two tables is only removed once the last
// referencing table is dropped.
func TestDropTableSharedConstraintDefinitionSurvives(t *testing.T) {
	db := newTestDatabase(t)

	spec := []ColumnSpec{{
		Name:     "amount",
		DataType: types.DataTypeInt32,
		Constraints: []ColumnConstraintSpec{
			{Type: types.ConstraintTypeCheck, Expression: "amount > 0"},
		},
	}}

	if _, err := db.CreateUserTable("orders", spec); err != nil {
		t.Fatalf("CreateUserTable orders: %v", err)
	}
	if _, err := db.CreateUserTable("invoices", spec); err != nil {
		t.Fatalf("CreateUserTable invoices: %v", err)
	}

	defRec, ok := db.ConstraintDefinitions.FindEquivalent(types.ConstraintTypeCheck, []byte("amount > 0"))
	if !ok {
		t.Fatal("expected a shared constraint definition to exist")
	}
	defID := defRec.ID

	if err := db.DropTable("orders"); err != nil {
		t.Fatalf("DropTable orders: %v", err)
	}
	if _, ok := db.ConstraintDefinitions.Get(defID); !ok {
		t.Fatal("expected the shared constraint definition to survive while invoices still references it")
	}

	if err := db.DropTable("invoices"); err != nil {
		t.Fatalf("DropTable invoices: %v", err)
	}
	if _, ok := db.ConstraintDefinitions.Get(defID); ok {
		t.Fatal("expected the constraint definition to be removed once nothing references it")
	}
}
