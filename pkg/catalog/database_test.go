package catalog

import (
	"testing"

	"github.com/google/uuid"

	"github.com/siodb/siodb/pkg/types"
)

func TestDatabaseRecordRoundTrip(t *testing.T) {
	desc := "accounting data"
	rec := DatabaseRecord{
		ID:            types.SystemDatabaseID,
		UUID:          uuid.New(),
		Name:          "SYS",
		CipherID:      "aes256",
		MaxTableCount: 1000,
		Description:   &desc,
		CreatedAt:     1234567890,
	}
	buf := rec.Marshal(nil)
	got, n, err := DecodeDatabaseRecord(buf)
	if err != nil {
		t.Fatalf("DecodeDatabaseRecord: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if got.ID != rec.ID || got.UUID != rec.UUID || got.Name != rec.Name ||
		got.CipherID != rec.CipherID || got.MaxTableCount != rec.MaxTableCount ||
		*got.Description != *rec.Description || got.CreatedAt != rec.CreatedAt {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, rec)
	}
}

func TestDatabaseRegistryLookupByNameAndUUID(t *testing.T) {
	reg := NewDatabaseRegistry()
	id := uuid.New()
	reg.Put(DatabaseRecord{ID: 1, UUID: id, Name: "SYS"})
	reg.Put(DatabaseRecord{ID: 2, UUID: uuid.New(), Name: "OTHER"})

	byName, ok := reg.FindByName("SYS")
	if !ok || byName.ID != 1 {
		t.Fatalf("FindByName = (%+v, %v)", byName, ok)
	}
	byUUID, ok := reg.FindByUUID(id)
	if !ok || byUUID.ID != 1 {
		t.Fatalf("FindByUUID = (%+v, %v)", byUUID, ok)
	}

	reg.Delete(1)
	if _, ok := reg.FindByName("SYS"); ok {
		t.Fatal("expected SYS to be gone after Delete")
	}
	if _, ok := reg.FindByUUID(id); ok {
		t.Fatal("expected UUID index entry to be gone after Delete")
	}
}
