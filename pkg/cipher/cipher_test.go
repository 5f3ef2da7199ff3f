package cipher

import (
	"bytes"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{id: "none", wantErr: false},
		{id: "aes128", wantErr: false},
		{id: "aes192", wantErr: false},
		{id: "aes256", wantErr: false},
		{id: "aes512", wantErr: true},
		{id: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			d, err := Lookup(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("Lookup(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
				return
			}
			if !tt.wantErr && d.ID != tt.id {
				t.Errorf("Lookup(%q).ID = %q", tt.id, d.ID)
			}
		})
	}
}

func TestNewContextKeySizeValidation(t *testing.T) {
	desc, err := Lookup("aes128")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	if _, err := NewContext(desc, make([]byte, 16)); err != nil {
		t.Errorf("NewContext with correct key size: %v", err)
	}
	if _, err := NewContext(desc, make([]byte, 8)); err == nil {
		t.Error("NewContext with short key should fail")
	}
	if _, err := NewContext(desc, make([]byte, 32)); err == nil {
		t.Error("NewContext with long key should fail")
	}
}

func TestContextEncryptDecryptRoundTrip(t *testing.T) {
	desc, err := Lookup("aes256")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	key := bytes.Repeat([]byte{0x11}, desc.KeySize())
	ctx, err := NewContext(desc, key)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	plaintext := bytes.Repeat([]byte{0xab}, desc.BlockSize()*4)
	ciphertext := make([]byte, len(plaintext))
	if err := ctx.Encrypt(ciphertext, plaintext); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Error("ciphertext should differ from plaintext")
	}

	decoded := make([]byte, len(ciphertext))
	if err := ctx.Decrypt(decoded, ciphertext); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(decoded, plaintext) {
		t.Error("decrypted data does not match original plaintext")
	}
}

func TestContextEncryptRequiresBlockAlignment(t *testing.T) {
	desc, _ := Lookup("aes128")
	ctx, err := NewContext(desc, make([]byte, desc.KeySize()))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	src := make([]byte, desc.BlockSize()+1)
	dst := make([]byte, len(src))
	if err := ctx.Encrypt(dst, src); err == nil {
		t.Error("Encrypt with misaligned input should fail")
	}
}

func TestNoneCipherIsIdentity(t *testing.T) {
	ctx, err := NewContext(None, nil)
	if err != nil {
		t.Fatalf("NewContext(None): %v", err)
	}
	src := []byte("arbitrary length data, no alignment required")
	dst := make([]byte, len(src))
	if err := ctx.Encrypt(dst, src); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !bytes.Equal(dst, src) {
		t.Error("none cipher should pass data through unchanged")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	desc, _ := Lookup("aes128")
	master, err := NewContext(desc, bytes.Repeat([]byte{0x42}, desc.KeySize()))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	// Unaligned plaintext exercises the zero-pad path.
	plaintext := []byte("a per-database cipher key record, 37 bytes!")

	encrypted, err := EncryptWithMaster(master, plaintext)
	if err != nil {
		t.Fatalf("EncryptWithMaster: %v", err)
	}
	if len(encrypted)%desc.BlockSize() != 0 {
		t.Fatalf("encrypted length %d not a multiple of block size %d", len(encrypted), desc.BlockSize())
	}

	decrypted, err := DecryptWithMaster(master, encrypted)
	if err != nil {
		t.Fatalf("DecryptWithMaster: %v", err)
	}
	if !bytes.Equal(decrypted[:len(plaintext)], plaintext) {
		t.Error("decrypted prefix does not match original plaintext")
	}
}

func TestDecryptWithMasterRejectsUnalignedInput(t *testing.T) {
	desc, _ := Lookup("aes128")
	master, err := NewContext(desc, make([]byte, desc.KeySize()))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	if _, err := DecryptWithMaster(master, make([]byte, desc.BlockSize()+1)); err == nil {
		t.Error("DecryptWithMaster with unaligned input should fail")
	}
}
