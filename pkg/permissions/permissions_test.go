package permissions

import (
	"testing"

	"github.com/siodb/siodb/pkg/sysdb"
	"github.com/siodb/siodb/pkg/types"
)

func newTestSystemDatabase(t *testing.T) *sysdb.SystemDatabase {
	t.Helper()
	sdb, err := sysdb.Open(sysdb.Options{DataDir: t.TempDir(), InstanceName: "inst1"})
	if err != nil {
		t.Fatalf("sysdb.Open: %v", err)
	}
	t.Cleanup(func() { sdb.Close() })
	return sdb
}

const testUserID types.UserID = 42
const testDatabaseID types.DatabaseID = 2

func TestSuperUserAlwaysHasPermissions(t *testing.T) {
	sys := newTestSystemDatabase(t)
	c := NewChecker(sys)
	if !c.Has(types.SuperUserID, testDatabaseID, types.DatabaseObjectTypeDatabase, AllObjectsID, types.PermissionDrop, true) {
		t.Fatal("expected the super-user to have every permission unconditionally")
	}
}

func TestGrantThenHasPermissions(t *testing.T) {
	sys := newTestSystemDatabase(t)
	c := NewChecker(sys)

	if err := c.Grant(types.SuperUserID, testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionSelect.With(types.PermissionInsert), false); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	if !c.Has(testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionSelect, false) {
		t.Fatal("expected the granted SELECT permission to be present")
	}
	if c.Has(testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionDrop, false) {
		t.Fatal("expected an ungranted permission to be absent")
	}
	if c.Has(testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionSelect, true) {
		t.Fatal("expected SELECT without a grant option to fail a grant-option check")
	}
}

func TestGrantMergesIntoExistingGrant(t *testing.T) {
	sys := newTestSystemDatabase(t)
	c := NewChecker(sys)

	if err := c.Grant(types.SuperUserID, testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionSelect, false); err != nil {
		t.Fatalf("first Grant: %v", err)
	}
	if err := c.Grant(types.SuperUserID, testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionInsert, true); err != nil {
		t.Fatalf("second Grant: %v", err)
	}

	if !c.Has(testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionSelect.With(types.PermissionInsert), false) {
		t.Fatal("expected both grants to be present")
	}
	if !c.Has(testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionInsert, true) {
		t.Fatal("expected the grant option on the second grant to survive the merge")
	}
}

func TestGrantRejectsInvalidPermissionBits(t *testing.T) {
	sys := newTestSystemDatabase(t)
	c := NewChecker(sys)

	if err := c.Grant(types.SuperUserID, testUserID, testDatabaseID, types.DatabaseObjectTypeIndex, 1, types.PermissionSelect, false); err == nil {
		t.Fatal("expected granting any permission on an index object to fail")
	}
}

func TestGrantRejectsGranterWithoutGrantOption(t *testing.T) {
	sys := newTestSystemDatabase(t)
	c := NewChecker(sys)

	if err := c.Grant(testUserID, testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionSelect, false); err == nil {
		t.Fatal("expected an ordinary user with no standing grant to be unable to grant permissions")
	}
}

func TestRevokeRemovesPermission(t *testing.T) {
	sys := newTestSystemDatabase(t)
	c := NewChecker(sys)

	if err := c.Grant(types.SuperUserID, testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionSelect.With(types.PermissionInsert), false); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if err := c.Revoke(types.SuperUserID, testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionInsert); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if c.Has(testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionInsert, false) {
		t.Fatal("expected the revoked permission to be gone")
	}
	if !c.Has(testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionSelect, false) {
		t.Fatal("expected the untouched permission to survive the revoke")
	}
}

func TestRevokeEverythingDeletesTheGrant(t *testing.T) {
	sys := newTestSystemDatabase(t)
	c := NewChecker(sys)

	if err := c.Grant(types.SuperUserID, testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionSelect, false); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if err := c.Revoke(types.SuperUserID, testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7, types.PermissionSelect); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, ok := sys.UserPermissions.Find(testUserID, testDatabaseID, types.DatabaseObjectTypeTable, 7); ok {
		t.Fatal("expected the grant row to be gone entirely once every bit is revoked")
	}
}
