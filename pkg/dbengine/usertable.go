package dbengine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	bolt "go.etcd.io/bbolt"

	"github.com/siodb/siodb/pkg/mainindex"
	"github.com/siodb/siodb/pkg/rowstore"
	"github.com/siodb/siodb/pkg/types"
)

// masterColumnFirstKey is the main-index key the master column's first
// row ever occupies; the original engine pre-allocates it at table
// creation time so the first INSERT never has to grow the index's root
// structure under lock.
const masterColumnFirstKey types.TRID = 1

// userTableDir returns the directory holding tableID's own data, separate
// from the ten fixed catalog tables that describe it.
func (db *Database) userTableDir(tableID types.TableID) string {
	return filepath.Join(db.dir, "tables", strconv.FormatUint(uint64(tableID), 10))
}

// openUserColumn opens (creating if necessary) the rowstore backing one
// data column of a user table, independent of the catalog bookkeeping in
// catalogTables.
func (db *Database) openUserColumn(tableID types.TableID, columnID types.ColumnID, areaSize uint32) (*rowstore.Table, error) {
	dir := db.userTableDir(tableID)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("dbengine: create table dir %s: %w", dir, err)
	}

	boltPath := filepath.Join(dir, "mainindex.db")
	bdb, err := bolt.Open(boltPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("dbengine: open main index %s: %w", boltPath, err)
	}
	bucket := []byte("column_" + strconv.FormatUint(uint64(columnID), 10))
	idx, err := mainindex.OpenBoltMainIndex(bdb, bucket)
	if err != nil {
		return nil, fmt.Errorf("dbengine: open index for column %d: %w", columnID, err)
	}

	columnDir := filepath.Join(dir, strconv.FormatUint(uint64(columnID), 10))
	if err := os.MkdirAll(columnDir, 0700); err != nil {
		return nil, fmt.Errorf("dbengine: create column dir %s: %w", columnDir, err)
	}

	return rowstore.Open(rowstore.OpenParams{
		Dir:           columnDir,
		DatabaseUUID:  db.Record.UUID,
		TableID:       tableID,
		ColumnID:      columnID,
		DataAreaSize:  areaSize,
		Mode:          0600,
		Cipher:        db.cipher,
		Index:         idx,
		FirstUserTRID: uint64(firstOrdinaryTRID),
	})
}

// preallocateNewTable opens and closes every column's data store for a
// freshly created table, which creates its directory and main-index
// bucket, and pre-allocates the master column's first main-index key,
// the preallocate(1) half of Database_Common.cpp's
// selectAvailableBlock(1) / preallocate(1) sequence. It creates no data
// block: a column's first block is created by its first insert.
func (db *Database) preallocateNewTable(tableID types.TableID, masterColumnID types.ColumnID, columns []types.ColumnID) error {
	master, err := db.openUserColumn(tableID, masterColumnID, defaultDataAreaSize)
	if err != nil {
		return fmt.Errorf("dbengine: open master column for table %d: %w", tableID, err)
	}
	if err := master.Preallocate(masterColumnFirstKey); err != nil {
		return fmt.Errorf("dbengine: preallocate master column key for table %d: %w", tableID, err)
	}
	if err := master.Close(); err != nil {
		return err
	}

	for _, columnID := range columns {
		rec, ok := db.Columns.Get(columnID)
		if !ok {
			return fmt.Errorf("dbengine: column %d not found while preallocating table %d", columnID, tableID)
		}
		col, err := db.openUserColumn(tableID, columnID, rec.DataBlockAreaSize)
		if err != nil {
			return fmt.Errorf("dbengine: open column %d for table %d: %w", columnID, tableID, err)
		}
		if err := col.Close(); err != nil {
			return err
		}
	}
	return nil
}

// removeUserTableData deletes tableID's entire data directory, the last
// step of DROP TABLE once every catalog row referencing it is gone.
func (db *Database) removeUserTableData(tableID types.TableID) error {
	dir := db.userTableDir(tableID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("dbengine: remove table data dir %s: %w", dir, err)
	}
	return nil
}
