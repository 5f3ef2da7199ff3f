package dbengine

import (
	"testing"

	"github.com/google/uuid"

	"github.com/siodb/siodb/pkg/types"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	rec := types.Database{ID: 2, UUID: uuid.New(), Name: "testdb"}
	db, err := Open(dir, rec, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenBootstrapsCatalogTables(t *testing.T) {
	db := newTestDatabase(t)
	for _, ct := range systemCatalogTableOrder {
		table, err := db.CatalogTable(ct.id)
		if err != nil {
			t.Fatalf("CatalogTable(%s): %v", ct.name, err)
		}
		schema, ok, err := table.Get(schemaRowTRID)
		if err != nil || !ok {
			t.Fatalf("missing schema row for %s: ok=%v err=%v", ct.name, ok, err)
		}
		if len(schema) == 0 {
			t.Fatalf("empty schema row for %s", ct.name)
		}
	}
}

func TestOpenReopenRebuildsRegistries(t *testing.T) {
	dir := t.TempDir()
	rec := types.Database{ID: 2, UUID: uuid.New(), Name: "testdb"}

	first, err := Open(dir, rec, nil)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := first.CreateUserTable("widgets", []ColumnSpec{
		{Name: "name", DataType: types.DataTypeText},
	}); err != nil {
		t.Fatalf("CreateUserTable: %v", err)
	}
	first.Close()

	second, err := Open(dir, rec, nil)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer second.Close()

	if _, ok := second.Tables.FindByName("widgets"); !ok {
		t.Fatal("expected widgets table to survive a reopen")
	}
}
