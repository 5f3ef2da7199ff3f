package dbengine

import (
	"testing"

	"github.com/siodb/siodb/pkg/types"
)

func TestCreateUserTableRecordsColumnsAndColumnSet(t *testing.T) {
	db := newTestDatabase(t)

	rec, err := db.CreateUserTable("orders", []ColumnSpec{
		{Name: "customer", DataType: types.DataTypeText, NotNull: true},
		{Name: "total", DataType: types.DataTypeDouble},
	})
	if err != nil {
		t.Fatalf("CreateUserTable: %v", err)
	}
	if rec.ID != FirstUserTableID {
		t.Fatalf("expected first user table to get id %d, got %d", FirstUserTableID, rec.ID)
	}

	if _, ok := db.Columns.FindByTableAndName(rec.ID, masterColumnName); !ok {
		t.Fatal("expected a master column to be created")
	}
	customer, ok := db.Columns.FindByTableAndName(rec.ID, "customer")
	if !ok {
		t.Fatal("expected customer column to be recorded")
	}
	if _, ok := db.Columns.FindByTableAndName(rec.ID, "total"); !ok {
		t.Fatal("expected total column to be recorded")
	}

	defs := db.ColumnDefinitions.FindByColumnID(customer.ID)
	if len(defs) != 1 || defs[0].Constraints.Len() != 1 {
		t.Fatalf("expected customer's column definition to carry one NOT NULL constraint, got %+v", defs)
	}

	set, ok := db.ColumnSets.Get(rec.CurrentColumnSet)
	if !ok {
		t.Fatal("expected the table's column set to be recorded")
	}
	if set.Columns.Len() != 3 {
		t.Fatalf("expected 3 columns (master + 2) in the column set, got %d", set.Columns.Len())
	}
}

func TestCreateUserTableRejectsDuplicateName(t *testing.T) {
	db := newTestDatabase(t)
	if _, err := db.CreateUserTable("orders", nil); err != nil {
		t.Fatalf("first CreateUserTable: %v", err)
	}
	if _, err := db.CreateUserTable("orders", nil); err == nil {
		t.Fatal("expected creating a second table with the same name to fail")
	}
}

func TestCreateUserTableRejectsReservedAndDuplicateColumnNames(t *testing.T) {
	db := newTestDatabase(t)

	if _, err := db.CreateUserTable("t1", []ColumnSpec{{Name: masterColumnName}}); err == nil {
		t.Fatal("expected reserved column name to be rejected")
	}
	if _, err := db.CreateUserTable("t2", []ColumnSpec{{Name: "a"}, {Name: "a"}}); err == nil {
		t.Fatal("expected duplicate column name to be rejected")
	}
}

func TestCreateUserTableSharesConstraintDefinitions(t *testing.T) {
	db := newTestDatabase(t)

	_, err := db.CreateUserTable("t", []ColumnSpec{
		{Name: "a", Constraints: []ColumnConstraintSpec{{Type: types.ConstraintTypeCheck, Expression: "> 0"}}},
		{Name: "b", Constraints: []ColumnConstraintSpec{{Type: types.ConstraintTypeCheck, Expression: "> 0"}}},
	})
	if err != nil {
		t.Fatalf("CreateUserTable: %v", err)
	}
	if db.ConstraintDefinitions.Len() != 1 {
		t.Fatalf("expected one shared constraint definition, got %d", db.ConstraintDefinitions.Len())
	}
	if db.Constraints.Len() != 2 {
		t.Fatalf("expected two distinct constraints referencing it, got %d", db.Constraints.Len())
	}
}
