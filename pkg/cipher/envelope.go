package cipher

import "fmt"

// EncryptWithMaster encrypts data under the master context. If len(data) is
// not a multiple of the master cipher's block size, the trailing partial
// block is zero-padded in a scratch buffer before one additional block is
// encrypted and appended; callers that need to recover the original length
// must store it alongside the ciphertext or know it from context (the
// instance's readCipherKey trims a decrypted database key back to its
// cipher's key size).
func EncryptWithMaster(master *Context, data []byte) ([]byte, error) {
	bs := master.BlockSize()
	rem := len(data) % bs
	padded := data
	if rem != 0 {
		padded = make([]byte, len(data)+(bs-rem))
		copy(padded, data)
	}
	out := make([]byte, len(padded))
	if err := master.Encrypt(out, padded); err != nil {
		return nil, fmt.Errorf("cipher: encrypt with master: %w", err)
	}
	return out, nil
}

// DecryptWithMaster decrypts data produced by EncryptWithMaster. len(data)
// must be an exact multiple of the master cipher's block size.
func DecryptWithMaster(master *Context, data []byte) ([]byte, error) {
	bs := master.BlockSize()
	if len(data)%bs != 0 {
		return nil, fmt.Errorf("cipher: invalid data size %d for block size %d", len(data), bs)
	}
	out := make([]byte, len(data))
	if err := master.Decrypt(out, data); err != nil {
		return nil, fmt.Errorf("cipher: decrypt with master: %w", err)
	}
	return out, nil
}
