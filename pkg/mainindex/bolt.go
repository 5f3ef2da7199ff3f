package mainindex

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/siodb/siodb/pkg/types"
)

// zeroAddr is the placeholder value Preallocate stores: a reserved key
// whose real address is filled in by the first write that lands there.
var zeroAddr = MarshalAddress(Address{})

// BoltMainIndex is a master-column main index backed by a single bucket of
// a shared *bolt.DB, one bucket per table's master column, following the
// bucket-per-entity layout the rest of the instance's bolt-backed state
// uses.
type BoltMainIndex struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBoltMainIndex opens (creating if necessary) the main index for a
// single master column, stored as bucket within db.
func OpenBoltMainIndex(db *bolt.DB, bucket []byte) (*BoltMainIndex, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("mainindex: create bucket %s: %w", bucket, err)
	}
	return &BoltMainIndex{db: db, bucket: bucket}, nil
}

func (idx *BoltMainIndex) MinKey() (types.TRID, bool, error) {
	var key types.TRID
	var ok bool
	err := idx.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(idx.bucket).Cursor()
		k, _ := c.First()
		if k == nil {
			return nil
		}
		key, ok = decodeKey(k), true
		return nil
	})
	return key, ok, err
}

func (idx *BoltMainIndex) MaxKey() (types.TRID, bool, error) {
	var key types.TRID
	var ok bool
	err := idx.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(idx.bucket).Cursor()
		k, _ := c.Last()
		if k == nil {
			return nil
		}
		key, ok = decodeKey(k), true
		return nil
	})
	return key, ok, err
}

func (idx *BoltMainIndex) Find(key types.TRID) (Address, bool, error) {
	var addr Address
	var ok bool
	err := idx.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(idx.bucket).Get(encodeKey(key))
		if v == nil {
			return nil
		}
		a, err := UnmarshalAddress(v)
		if err != nil {
			return err
		}
		addr, ok = a, true
		return nil
	})
	return addr, ok, err
}

func (idx *BoltMainIndex) FindNextKey(cur types.TRID) (types.TRID, bool, error) {
	var next types.TRID
	var ok bool
	err := idx.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(idx.bucket).Cursor()
		k, _ := c.Seek(encodeKey(cur))
		if k != nil && decodeKey(k) == cur {
			k, _ = c.Next()
		}
		if k == nil {
			return nil
		}
		next, ok = decodeKey(k), true
		return nil
	})
	return next, ok, err
}

func (idx *BoltMainIndex) Erase(key types.TRID) error {
	return idx.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(idx.bucket).Delete(encodeKey(key))
	})
}

func (idx *BoltMainIndex) Preallocate(key types.TRID) error {
	return idx.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(idx.bucket).Put(encodeKey(key), zeroAddr)
	})
}

func (idx *BoltMainIndex) Put(key types.TRID, addr Address) error {
	return idx.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(idx.bucket).Put(encodeKey(key), MarshalAddress(addr))
	})
}

// Close is a no-op: the underlying *bolt.DB is shared across every main
// index in a database and is closed once by its owner.
func (idx *BoltMainIndex) Close() error { return nil }

var _ Index = (*BoltMainIndex)(nil)
