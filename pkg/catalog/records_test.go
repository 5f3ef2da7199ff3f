package catalog

import (
	"testing"

	"github.com/siodb/siodb/pkg/types"
)

func TestCipherKeyRecordRoundTrip(t *testing.T) {
	rec := CipherKeyRecord{ID: 1, CipherID: "aes256", Key: []byte{1, 2, 3, 4}}
	buf := rec.Marshal()
	if len(buf) != rec.Size() {
		t.Fatalf("Size() = %d, Marshal length = %d", rec.Size(), len(buf))
	}

	got, err := UnmarshalCipherKeyRecord(buf)
	if err != nil {
		t.Fatalf("UnmarshalCipherKeyRecord: %v", err)
	}
	if got.ID != rec.ID || got.CipherID != rec.CipherID || string(got.Key) != string(rec.Key) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, rec)
	}
}

func TestCipherKeyRecordRejectsForeignClassUUID(t *testing.T) {
	rec := CipherKeyRecord{ID: 1, CipherID: "none"}
	buf := rec.Marshal()
	buf[0] ^= 0xff // corrupt the class UUID
	if _, err := UnmarshalCipherKeyRecord(buf); err == nil {
		t.Fatal("expected class UUID mismatch to be rejected")
	}
}

func TestTableRecordRoundTrip(t *testing.T) {
	rec := TableRecord{
		ID:               types.TableID(100),
		Type:             types.TableTypeDisk,
		Name:             "EMPLOYEES",
		FirstUserTRID:    types.TRID(1),
		CurrentColumnSet: types.ColumnSetID(5),
	}
	buf := rec.Marshal(nil)
	got, n, err := DecodeTableRecord(buf)
	if err != nil {
		t.Fatalf("DecodeTableRecord: %v", err)
	}
	if n != len(buf) || got != rec {
		t.Fatalf("round trip mismatch: got %+v (%d bytes), want %+v (%d bytes)", got, n, rec, len(buf))
	}
}

func TestTableRegistryLookupByNameAndDelete(t *testing.T) {
	reg := NewTableRegistry()
	reg.Put(TableRecord{ID: 1, Name: "T1"})
	reg.Put(TableRecord{ID: 2, Name: "T2"})

	found, ok := reg.FindByName("T2")
	if !ok || found.ID != 2 {
		t.Fatalf("FindByName(T2) = (%+v, %v)", found, ok)
	}

	reg.Delete(2)
	if _, ok := reg.FindByName("T2"); ok {
		t.Fatal("expected T2 to be gone from the name index after Delete")
	}
	if _, ok := reg.Get(2); ok {
		t.Fatal("expected T2 to be gone from the id index after Delete")
	}
}

func TestColumnSetRecordRoundTripWithColumns(t *testing.T) {
	rec := ColumnSetRecord{ID: 1, TableID: 10, Columns: NewColumnSetColumnRegistry()}
	rec.Columns.Put(ColumnSetColumnRecord{ID: 1, ColumnSetID: 1, ColumnDefinitionID: 1, ColumnID: 1})
	rec.Columns.Put(ColumnSetColumnRecord{ID: 2, ColumnSetID: 1, ColumnDefinitionID: 2, ColumnID: 2})

	buf := rec.Marshal(nil)
	got, n, err := DecodeColumnSetRecord(buf)
	if err != nil {
		t.Fatalf("DecodeColumnSetRecord: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if got.ID != rec.ID || got.TableID != rec.TableID || got.Columns.Len() != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if col, ok := got.Columns.FindByColumnID(2); !ok || col.ColumnDefinitionID != 2 {
		t.Fatalf("FindByColumnID(2) = (%+v, %v)", col, ok)
	}
}

func TestConstraintDefinitionRegistryFindEquivalent(t *testing.T) {
	reg := NewConstraintDefinitionRegistry()
	rec := NewConstraintDefinitionRecord(1, types.ConstraintType(0), []byte("age > 0"))
	reg.Put(rec)

	found, ok := reg.FindEquivalent(types.ConstraintType(0), []byte("age > 0"))
	if !ok || found.ID != rec.ID {
		t.Fatalf("FindEquivalent = (%+v, %v)", found, ok)
	}

	if _, ok := reg.FindEquivalent(types.ConstraintType(0), []byte("age > 1")); ok {
		t.Fatal("expected a different expression not to match")
	}
}

func TestUserPermissionRegistryFind(t *testing.T) {
	reg := NewUserPermissionRegistry()
	reg.Put(UserPermissionRecord{
		ID:          1,
		UserID:      2,
		DatabaseID:  3,
		ObjectType:  types.DatabaseObjectType(0),
		ObjectID:    4,
		Permissions: types.PermissionSelect,
	})

	found, ok := reg.Find(2, 3, types.DatabaseObjectType(0), 4)
	if !ok || found.Permissions != types.PermissionSelect {
		t.Fatalf("Find = (%+v, %v)", found, ok)
	}

	if _, ok := reg.Find(2, 3, types.DatabaseObjectType(0), 999); ok {
		t.Fatal("expected no match for an unrelated object id")
	}
}
