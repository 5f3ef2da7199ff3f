package blockstore

import (
	"os"
	"testing"

	"github.com/google/uuid"

	siocipher "github.com/siodb/siodb/pkg/cipher"
	"github.com/siodb/siodb/pkg/types"
)

func testCreateParams(dir string, blockID uint64, ctx *siocipher.Context) CreateParams {
	return CreateParams{
		DatabaseUUID: uuid.New(),
		TableID:      types.TableID(1),
		ColumnID:     types.ColumnID(7),
		BlockID:      blockID,
		DataAreaSize: 4096,
		Mode:         0600,
		Cipher:       ctx,
	}
}

func TestCreateOpenAppendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := testCreateParams(dir, 1, nil)

	b, err := Create(dir, p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	payload := []byte("hello siodb column block")
	if err := b.Append(payload); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if b.NextDataOffset() != uint32(len(payload)) {
		t.Fatalf("next data offset = %d, want %d", b.NextDataOffset(), len(payload))
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b2, err := Open(dir, OpenParams{
		DatabaseUUID: p.DatabaseUUID,
		TableID:      p.TableID,
		ColumnID:     p.ColumnID,
		BlockID:      p.BlockID,
		DataAreaSize: p.DataAreaSize,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b2.Close()

	if b2.NextDataOffset() != uint32(len(payload)) {
		t.Fatalf("reopened next data offset = %d, want %d", b2.NextDataOffset(), len(payload))
	}

	got := make([]byte, len(payload))
	if err := b2.ReadData(got, 0); err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("ReadData = %q, want %q", got, payload)
	}
}

func TestAppendRejectsOutOfRange(t *testing.T) {
	dir := t.TempDir()
	p := testCreateParams(dir, 2, nil)
	p.DataAreaSize = 8

	b, err := Create(dir, p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer b.Close()

	if err := b.Append([]byte("0123456789")); err == nil {
		t.Fatal("expected out-of-range append to fail")
	}
}

func TestFinalizeComputesChainedDigest(t *testing.T) {
	dir := t.TempDir()
	p1 := testCreateParams(dir, 1, nil)

	b1, err := Create(dir, p1)
	if err != nil {
		t.Fatalf("Create b1: %v", err)
	}
	if err := b1.Append([]byte("first block")); err != nil {
		t.Fatalf("Append b1: %v", err)
	}
	if err := b1.Finalize(GenesisDigest); err != nil {
		t.Fatalf("Finalize b1: %v", err)
	}
	if b1.Digest() == GenesisDigest {
		t.Fatal("finalized digest must not equal the genesis digest")
	}
	if b1.State() != types.ColumnDataBlockStateClosed {
		t.Fatalf("state = %v, want Closed", b1.State())
	}

	p2 := testCreateParams(dir, 2, nil)
	p2.DatabaseUUID = p1.DatabaseUUID
	p2.PrevBlockID = p1.ID()
	b2, err := Create(dir, p2)
	if err != nil {
		t.Fatalf("Create b2: %v", err)
	}
	if err := b2.Append([]byte("second block")); err != nil {
		t.Fatalf("Append b2: %v", err)
	}
	if err := b2.Finalize(b1.Digest()); err != nil {
		t.Fatalf("Finalize b2: %v", err)
	}
	if b2.Digest() == b1.Digest() {
		t.Fatal("chained digests must differ between blocks with different content")
	}

	// Recomputing with the wrong previous digest must not match the stored one.
	wrongChain, err := b2.ComputeDigest(GenesisDigest, b2.header.FillTimestamp)
	if err != nil {
		t.Fatalf("ComputeDigest: %v", err)
	}
	if wrongChain == b2.Digest() {
		t.Fatal("digest must depend on the previous block's digest")
	}
}

func TestEncryptedBlockRoundTrip(t *testing.T) {
	desc, err := siocipher.Lookup("aes128")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	key := make([]byte, desc.KeySize())
	for i := range key {
		key[i] = byte(i)
	}
	ctx, err := siocipher.NewContext(desc, key)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	dir := t.TempDir()
	p := testCreateParams(dir, 1, ctx)
	p.DataAreaSize = 4096 // multiple of the AES block size

	b, err := Create(dir, p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := make([]byte, 32) // multiple of the AES block size
	copy(payload, []byte("encrypted column payload"))
	if err := b.Append(payload); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(b.Path())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(raw[HeaderAreaSize:HeaderAreaSize+len(payload)]) == string(payload) {
		t.Fatal("on-disk data area must not equal the plaintext payload")
	}

	b2, err := Open(dir, OpenParams{
		DatabaseUUID: p.DatabaseUUID,
		TableID:      p.TableID,
		ColumnID:     p.ColumnID,
		BlockID:      p.BlockID,
		DataAreaSize: p.DataAreaSize,
		Cipher:       ctx,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b2.Close()

	got := make([]byte, len(payload))
	if err := b2.ReadData(got, 0); err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("decrypted payload = %q, want %q", got, payload)
	}
}

func TestOpenRejectsIdentityMismatch(t *testing.T) {
	dir := t.TempDir()
	p := testCreateParams(dir, 1, nil)

	b, err := Create(dir, p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b.Close()

	_, err = Open(dir, OpenParams{
		DatabaseUUID: p.DatabaseUUID,
		TableID:      types.TableID(999),
		ColumnID:     p.ColumnID,
		BlockID:      p.BlockID,
		DataAreaSize: p.DataAreaSize,
	})
	if err == nil {
		t.Fatal("expected identity mismatch to fail Open")
	}
}
