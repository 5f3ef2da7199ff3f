package mainindex

import (
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"
	"github.com/stretchr/testify/require"

	"github.com/siodb/siodb/pkg/types"
)

func openTestDB(t *testing.T) *bolt.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mainindex.db")
	db, err := bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBoltMainIndexEmptyHasNoMinMax(t *testing.T) {
	db := openTestDB(t)
	idx, err := OpenBoltMainIndex(db, []byte("t1"))
	require.NoError(t, err)

	_, ok, err := idx.MinKey()
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = idx.MaxKey()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBoltMainIndexPutFindMinMax(t *testing.T) {
	db := openTestDB(t)
	idx, err := OpenBoltMainIndex(db, []byte("t1"))
	require.NoError(t, err)

	require.NoError(t, idx.Put(10, Address{BlockID: 1, Offset: 0}))
	require.NoError(t, idx.Put(20, Address{BlockID: 1, Offset: 128}))
	require.NoError(t, idx.Put(5, Address{BlockID: 1, Offset: 256}))

	min, ok, err := idx.MinKey()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.TRID(5), min)

	max, ok, err := idx.MaxKey()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.TRID(20), max)

	addr, ok, err := idx.Find(10)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Address{BlockID: 1, Offset: 0}, addr)

	_, ok, err = idx.Find(999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBoltMainIndexFindNextKey(t *testing.T) {
	db := openTestDB(t)
	idx, err := OpenBoltMainIndex(db, []byte("t1"))
	require.NoError(t, err)

	for _, k := range []types.TRID{5, 10, 20} {
		require.NoError(t, idx.Put(k, Address{BlockID: 1, Offset: uint32(k)}))
	}

	next, ok, err := idx.FindNextKey(5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.TRID(10), next)

	// A key that isn't present itself: find-next-key still returns the
	// smallest key strictly greater than it.
	next, ok, err = idx.FindNextKey(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.TRID(10), next)

	_, ok, err = idx.FindNextKey(20)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBoltMainIndexEraseAndPreallocate(t *testing.T) {
	db := openTestDB(t)
	idx, err := OpenBoltMainIndex(db, []byte("t1"))
	require.NoError(t, err)

	require.NoError(t, idx.Preallocate(1))
	addr, ok, err := idx.Find(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Address{}, addr)

	require.NoError(t, idx.Put(1, Address{BlockID: 42, Offset: 7}))
	addr, ok, err = idx.Find(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Address{BlockID: 42, Offset: 7}, addr)

	require.NoError(t, idx.Erase(1))
	_, ok, err = idx.Find(1)
	require.NoError(t, err)
	require.False(t, ok)

	// Erasing an absent key is not an error.
	require.NoError(t, idx.Erase(1))
}

func TestUnimplementedIndex(t *testing.T) {
	idx := UnimplementedIndex{Type: types.IndexTypeBTree}
	_, _, err := idx.MinKey()
	require.ErrorIs(t, err, ErrNotImplemented)
	require.NoError(t, idx.Close())
}
