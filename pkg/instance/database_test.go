package instance

import (
	"testing"

	"github.com/siodb/siodb/pkg/types"
)

func TestCreateDatabaseThenFind(t *testing.T) {
	inst, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	rec, err := inst.CreateDatabase(CreateDatabaseOptions{Name: "accounting"})
	if err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	if rec.ID == types.SystemDatabaseID {
		t.Fatalf("expected a fresh database id, got the system database's id")
	}

	db, err := inst.FindDatabase("accounting")
	if err != nil {
		t.Fatalf("FindDatabase: %v", err)
	}
	if db.Record.Name != "accounting" {
		t.Fatalf("unexpected database record: %+v", db.Record)
	}

	if _, err := inst.CreateDatabase(CreateDatabaseOptions{Name: "accounting"}); err == nil {
		t.Fatal("expected creating a duplicate database name to fail")
	}
}

func TestCreateDatabaseRejectsReservedName(t *testing.T) {
	inst, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	if _, err := inst.CreateDatabase(CreateDatabaseOptions{Name: types.SystemDatabaseName}); err == nil {
		t.Fatal("expected creating a database named SYS to fail")
	}
}

func TestFindDatabaseReopensAfterEviction(t *testing.T) {
	inst, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	if _, err := inst.CreateDatabase(CreateDatabaseOptions{Name: "sales"}); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}

	inst.mu.Lock()
	rec, _ := inst.sys.Databases.FindByName("sales")
	if db, ok := inst.databases.Get(rec.ID); ok {
		db.Close()
	}
	inst.databases.Remove(rec.ID)
	inst.mu.Unlock()

	db, err := inst.FindDatabase("sales")
	if err != nil {
		t.Fatalf("FindDatabase after eviction: %v", err)
	}
	if _, err := db.CreateUserTable("orders", nil); err != nil {
		t.Fatalf("CreateUserTable on reopened database: %v", err)
	}
}

func TestDropDatabaseRemovesRecordAndData(t *testing.T) {
	inst, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	if _, err := inst.CreateDatabase(CreateDatabaseOptions{Name: "scratch"}); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	if err := inst.DropDatabase("scratch"); err != nil {
		t.Fatalf("DropDatabase: %v", err)
	}

	if _, exists := inst.sys.Databases.FindByName("scratch"); exists {
		t.Fatal("expected the database's SYS_DATABASES row to be gone")
	}
	if _, err := inst.FindDatabase("scratch"); err == nil {
		t.Fatal("expected finding a dropped database to fail")
	}
}

func TestDropDatabaseRejectsSystemDatabase(t *testing.T) {
	inst, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close()

	if err := inst.DropDatabase(types.SystemDatabaseName); err == nil {
		t.Fatal("expected dropping the system database to fail")
	}
}
