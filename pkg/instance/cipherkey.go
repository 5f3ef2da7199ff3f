package instance

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/siodb/siodb/pkg/catalog"
	siocipher "github.com/siodb/siodb/pkg/cipher"
)

const cipherKeyFileName = "key"

func (inst *Instance) cipherKeyPath(dbUUID uuid.UUID) string {
	return filepath.Join(inst.dataDirFor(dbUUID), cipherKeyFileName)
}

// writeCipherKey envelope-encrypts key under the instance's master cipher
// (a no-op pass-through when the instance has no master cipher
// configured) and writes it as dbUUID's own CipherKeyRecord file, inside
// the database's data directory but never touched by dbengine itself.
func (inst *Instance) writeCipherKey(dbUUID uuid.UUID, cipherID string, key []byte) error {
	stored := key
	if inst.opts.MasterCipher != nil && len(key) > 0 {
		enc, err := siocipher.EncryptWithMaster(inst.opts.MasterCipher, key)
		if err != nil {
			return err
		}
		stored = enc
	}

	rec := catalog.CipherKeyRecord{ID: 0, CipherID: cipherID, Key: stored}
	path := inst.cipherKeyPath(dbUUID)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("instance: create database directory: %w", err)
	}
	if err := os.WriteFile(path, rec.Marshal(), 0600); err != nil {
		return fmt.Errorf("instance: write cipher key file %s: %w", path, err)
	}
	return nil
}

// readCipherKey reads back a CipherKeyRecord written by writeCipherKey and
// builds the cipher.Context a database's rowstore tables decrypt through.
func (inst *Instance) readCipherKey(dbUUID uuid.UUID, cipherID string) (*siocipher.Context, error) {
	path := inst.cipherKeyPath(dbUUID)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("instance: read cipher key file %s: %w", path, err)
	}
	rec, err := catalog.UnmarshalCipherKeyRecord(data)
	if err != nil {
		return nil, fmt.Errorf("instance: parse cipher key file %s: %w", path, err)
	}

	if rec.CipherID != cipherID {
		return nil, fmt.Errorf("instance: cipher key file %s is for cipher %q, database uses %q", path, rec.CipherID, cipherID)
	}
	desc, err := siocipher.Lookup(cipherID)
	if err != nil {
		return nil, err
	}

	key := rec.Key
	if inst.opts.MasterCipher != nil && len(key) > 0 {
		key, err = siocipher.DecryptWithMaster(inst.opts.MasterCipher, key)
		if err != nil {
			return nil, err
		}
		// EncryptWithMaster zero-padded the key to the master block size.
		if len(key) > desc.KeySize() {
			key = key[:desc.KeySize()]
		}
	}
	return siocipher.NewContext(desc, key)
}

func removeCipherKeyFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func removeAll(dir string) error {
	return os.RemoveAll(dir)
}
