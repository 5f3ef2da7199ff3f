package blockstore

import (
	"testing"

	"github.com/google/uuid"

	"github.com/siodb/siodb/pkg/types"
)

func newTestRegistry(t *testing.T, dataAreaSize uint32) *Registry {
	t.Helper()
	r, err := NewRegistry(RegistryParams{
		Dir:          t.TempDir(),
		DatabaseUUID: uuid.New(),
		TableID:      types.TableID(1),
		ColumnID:     types.ColumnID(3),
		DataAreaSize: dataAreaSize,
		Mode:         0600,
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestSelectAvailableBlockCreatesFirstBlock(t *testing.T) {
	r := newTestRegistry(t, 1024)

	b, err := r.SelectAvailableBlock(100)
	if err != nil {
		t.Fatalf("SelectAvailableBlock: %v", err)
	}
	if b.PrevBlockID() != 0 {
		t.Fatalf("first block prev id = %d, want 0", b.PrevBlockID())
	}
	if b.State() != types.ColumnDataBlockStateCurrent {
		t.Fatalf("first block state = %v, want Current", b.State())
	}
}

func TestSelectAvailableBlockReusesBlockWithRoom(t *testing.T) {
	r := newTestRegistry(t, 1024)

	first, err := r.SelectAvailableBlock(100)
	if err != nil {
		t.Fatalf("SelectAvailableBlock: %v", err)
	}
	if err := first.Append(make([]byte, 100)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	r.UpdateAvailableBlock(first)

	second, err := r.SelectAvailableBlock(50)
	if err != nil {
		t.Fatalf("SelectAvailableBlock: %v", err)
	}
	if second.ID() != first.ID() {
		t.Fatalf("expected the same block to be reused, got %d vs %d", second.ID(), first.ID())
	}
}

func TestSelectAvailableBlockChainsWhenFull(t *testing.T) {
	r := newTestRegistry(t, 64)

	first, err := r.SelectAvailableBlock(64)
	if err != nil {
		t.Fatalf("SelectAvailableBlock: %v", err)
	}
	if err := first.Append(make([]byte, 64)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	r.UpdateAvailableBlock(first)

	second, err := r.SelectAvailableBlock(32)
	if err != nil {
		t.Fatalf("SelectAvailableBlock: %v", err)
	}
	if second.ID() == first.ID() {
		t.Fatal("expected a new chained block when the first is full")
	}
	if second.PrevBlockID() != first.ID() {
		t.Fatalf("second.PrevBlockID() = %d, want %d", second.PrevBlockID(), first.ID())
	}
	if first.State() != types.ColumnDataBlockStateClosed {
		t.Fatalf("exhausted block state = %v, want Closed", first.State())
	}
}

func TestFindFirstBlockOnEmptyDirectory(t *testing.T) {
	r := newTestRegistry(t, 1024)
	id, err := r.FindFirstBlock()
	if err != nil {
		t.Fatalf("FindFirstBlock: %v", err)
	}
	if id != 0 {
		t.Fatalf("FindFirstBlock on empty dir = %d, want 0", id)
	}
}

func TestFindFirstBlockReturnsSmallestID(t *testing.T) {
	r := newTestRegistry(t, 1024)
	for i := 0; i < 3; i++ {
		if _, err := r.CreateBlock(0, types.ColumnDataBlockStateAvailable); err != nil {
			t.Fatalf("CreateBlock: %v", err)
		}
	}
	id, err := r.FindFirstBlock()
	if err != nil {
		t.Fatalf("FindFirstBlock: %v", err)
	}
	if id != 1 {
		t.Fatalf("FindFirstBlock = %d, want 1", id)
	}
}

func TestFindExistingBlockMissing(t *testing.T) {
	r := newTestRegistry(t, 1024)
	if _, err := r.FindExistingBlock(999); err == nil {
		t.Fatal("expected error loading a nonexistent block")
	}
}
