package iofile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/siodb/siodb/pkg/cipher"
)

func TestNormalFileReadWrite(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	nf := NewNormalFile(f)
	want := []byte("hello, column block")
	if _, err := nf.WriteAt(want, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if err := nf.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got := make([]byte, len(want))
	if _, err := nf.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadAt = %q, want %q", got, want)
	}
}

func TestEncryptedFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "data.enc"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	desc, _ := cipher.Lookup("aes128")
	ctx, err := cipher.NewContext(desc, bytes.Repeat([]byte{0x07}, desc.KeySize()))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	ef := NewEncryptedFile(NewNormalFile(f), ctx)
	plaintext := bytes.Repeat([]byte{0x9a}, desc.BlockSize()*3)
	if _, err := ef.WriteAt(plaintext, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	// Confirm the bytes landed on disk encrypted, not as plaintext.
	raw := make([]byte, len(plaintext))
	if _, err := f.ReadAt(raw, 0); err != nil {
		t.Fatalf("raw ReadAt: %v", err)
	}
	if bytes.Equal(raw, plaintext) {
		t.Error("data on disk should be encrypted, not plaintext")
	}

	decoded := make([]byte, len(plaintext))
	if _, err := ef.ReadAt(decoded, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(decoded, plaintext) {
		t.Error("decrypted round-trip does not match original plaintext")
	}
}

func TestEncryptedFileRejectsUnalignedAccess(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "data.enc"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	desc, _ := cipher.Lookup("aes128")
	ctx, err := cipher.NewContext(desc, make([]byte, desc.KeySize()))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	ef := NewEncryptedFile(NewNormalFile(f), ctx)

	if _, err := ef.WriteAt(make([]byte, desc.BlockSize()+1), 0); err == nil {
		t.Error("WriteAt with unaligned length should fail")
	}
}

func TestCreateAndPublish(t *testing.T) {
	dir := t.TempDir()
	finalPath := filepath.Join(dir, "b1.siodf")

	pf, err := CreateAndPublish(dir, finalPath, 0600, 1024)
	if err != nil {
		t.Fatalf("CreateAndPublish: %v", err)
	}
	defer pf.Close()

	header := bytes.Repeat([]byte{0xff}, 16)
	if _, err := pf.WriteAt(header, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	if err := pf.Publish(finalPath); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		t.Fatalf("published file missing: %v", err)
	}
	if info.Size() != 1024 {
		t.Errorf("published file size = %d, want 1024", info.Size())
	}

	got := make([]byte, len(header))
	f2, err := os.Open(finalPath)
	if err != nil {
		t.Fatalf("Open published file: %v", err)
	}
	defer f2.Close()
	if _, err := f2.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, header) {
		t.Error("published file contents do not match what was written before Publish")
	}
}
