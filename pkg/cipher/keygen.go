package cipher

import (
	"crypto/rand"
	"fmt"
)

// GenerateKey returns a cryptographically random key sized for desc,
// mirroring the original engine's KeyGenerator: every database gets its
// own freshly generated key rather than reusing one across databases.
// The None cipher has no key; GenerateKey returns an empty slice for it.
func GenerateKey(desc Descriptor) ([]byte, error) {
	if desc.ID == None.ID {
		return nil, nil
	}
	key := make([]byte, desc.KeySize())
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("cipher: generate key for %q: %w", desc.ID, err)
	}
	return key, nil
}
