// Package dbengine implements a user database's object lifecycle: opening
// or bootstrapping its own ten SYS_* catalog tables, creating a table
// (CREATE TABLE) with validation-before-mutation, and dropping one
// (DROP TABLE) through the collect/delete/rollback/finalize sequence
// original_source/iomgr/lib/dbengine/Database_Common.cpp uses.
package dbengine

import (
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/siodb/siodb/pkg/catalog"
	siocipher "github.com/siodb/siodb/pkg/cipher"
	"github.com/siodb/siodb/pkg/mainindex"
	"github.com/siodb/siodb/pkg/rowstore"
	"github.com/siodb/siodb/pkg/types"
)

// Fixed ids for a user database's own ten catalog tables. User table ids
// within this database start after the highest of these.
const (
	sysTablesTableID              types.TableID = 1
	sysColumnsTableID              types.TableID = 2
	sysColumnSetsTableID            types.TableID = 3
	sysColumnSetColumnsTableID       types.TableID = 4
	sysColumnDefsTableID            types.TableID = 5
	sysColumnDefConstraintsTableID   types.TableID = 6
	sysConstraintsTableID           types.TableID = 7
	sysConstraintDefsTableID         types.TableID = 8
	sysIndicesTableID               types.TableID = 9
	sysIndexColumnsTableID          types.TableID = 10

	// FirstUserTableID is the lowest table id CreateUserTable ever hands
	// out; ids below it are reserved for this database's own
	// catalog tables.
	FirstUserTableID types.TableID = 11
)

var systemCatalogTableOrder = []struct {
	id   types.TableID
	name string
}{
	{sysTablesTableID, "SYS_TABLES"},
	{sysColumnsTableID, "SYS_COLUMNS"},
	{sysColumnSetsTableID, "SYS_COLUMN_SETS"},
	{sysColumnSetColumnsTableID, "SYS_COLUMN_SET_COLUMNS"},
	{sysColumnDefsTableID, "SYS_COLUMN_DEFS"},
	{sysColumnDefConstraintsTableID, "SYS_COLUMN_DEF_CONSTRAINTS"},
	{sysConstraintsTableID, "SYS_CONSTRAINTS"},
	{sysConstraintDefsTableID, "SYS_CONSTRAINT_DEFS"},
	{sysIndicesTableID, "SYS_INDICES"},
	{sysIndexColumnsTableID, "SYS_INDEX_COLUMNS"},
}

const rowColumnID types.ColumnID = 1
const defaultDataAreaSize uint32 = 1 << 20

// schemaRowTRID is the fixed TRID every catalog table reserves for its own
// self-describing TableRecord; ordinary rows start at firstOrdinaryTRID.
const schemaRowTRID types.TRID = 0
const firstOrdinaryTRID types.TRID = 1

// Database is one open user database: its own ten catalog tables, the
// in-memory registries rebuilt from (or seeded into) them, and the
// user-table data directories it owns.
type Database struct {
	Record types.Database
	dir    string
	cipher *siocipher.Context
	boltDB *bolt.DB

	metadata *mappedMetadataFile

	catalogTables         map[types.TableID]*rowstore.Table
	nextTableID           types.TableID
	nextColumnID          types.ColumnID
	nextConstraintID      types.ConstraintID
	nextConstraintDefID   types.ConstraintDefinitionID

	Tables                *catalog.TableRegistry
	Columns               *catalog.ColumnRegistry
	ColumnSets            *catalog.ColumnSetRegistry
	ColumnDefinitions     *catalog.ColumnDefinitionRegistry
	ConstraintDefinitions *catalog.ConstraintDefinitionRegistry
	Constraints           *catalog.ConstraintRegistry
	Indices               *catalog.IndexRegistry
}

// Open creates a user database's catalog tables from nothing on first
// use (dataDir/<uuid> does not yet exist), or reopens them and rebuilds
// every in-memory registry otherwise.
func Open(dataDir string, rec types.Database, cipherCtx *siocipher.Context) (*Database, error) {
	dir := filepath.Join(dataDir, rec.UUID.String())
	firstRun := true
	if _, err := os.Stat(dir); err == nil {
		firstRun = false
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("dbengine: stat %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("dbengine: create database dir %s: %w", dir, err)
	}

	metadata, err := openOrCreateMetadataFile(dir, types.SuperUserID)
	if err != nil {
		return nil, err
	}

	db := &Database{
		Record:                rec,
		dir:                   dir,
		cipher:                cipherCtx,
		metadata:              metadata,
		Tables:                catalog.NewTableRegistry(),
		Columns:               catalog.NewColumnRegistry(),
		ColumnSets:            catalog.NewColumnSetRegistry(),
		ColumnDefinitions:     catalog.NewColumnDefinitionRegistry(),
		Constraints:           catalog.NewConstraintRegistry(),
		ConstraintDefinitions: catalog.NewConstraintDefinitionRegistry(),
		Indices:               catalog.NewIndexRegistry(),
		nextTableID:           FirstUserTableID,
		nextColumnID:          1,
		nextConstraintID:      1,
		nextConstraintDefID:   1,
	}
	if err := db.openCatalogTables(); err != nil {
		metadata.close()
		return nil, err
	}

	if firstRun {
		if err := db.bootstrapCatalogTables(); err != nil {
			db.Close()
			return nil, err
		}
	} else if err := db.readAllCatalog(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (db *Database) openCatalogTables() error {
	boltPath := filepath.Join(db.dir, "mainindex.db")
	bdb, err := bolt.Open(boltPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("dbengine: open main index %s: %w", boltPath, err)
	}
	db.boltDB = bdb
	db.catalogTables = make(map[types.TableID]*rowstore.Table, len(systemCatalogTableOrder))

	for _, t := range systemCatalogTableOrder {
		idx, err := mainindex.OpenBoltMainIndex(bdb, []byte(t.name))
		if err != nil {
			return fmt.Errorf("dbengine: open index for %s: %w", t.name, err)
		}
		tableDir := filepath.Join(db.dir, t.name)
		if err := os.MkdirAll(tableDir, 0700); err != nil {
			return fmt.Errorf("dbengine: create table dir %s: %w", tableDir, err)
		}
		table, err := rowstore.Open(rowstore.OpenParams{
			Dir:           tableDir,
			DatabaseUUID:  db.Record.UUID,
			TableID:       t.id,
			ColumnID:      rowColumnID,
			DataAreaSize:  defaultDataAreaSize,
			Mode:          0600,
			Cipher:        db.cipher,
			Index:         idx,
			FirstUserTRID: 1,
		})
		if err != nil {
			return fmt.Errorf("dbengine: open catalog table %s: %w", t.name, err)
		}
		db.catalogTables[t.id] = table
	}
	return nil
}

// bootstrapCatalogTables writes each catalog table's own self-describing
// schema row, mirroring pkg/sysdb's bootstrap of SYS_USERS and friends.
func (db *Database) bootstrapCatalogTables() error {
	for _, t := range systemCatalogTableOrder {
		rec := catalog.TableRecord{ID: t.id, Type: types.TableTypeDisk, Name: t.name, FirstUserTRID: firstOrdinaryTRID}
		if err := db.catalogTables[t.id].InsertAt(schemaRowTRID, rec.Marshal(nil)); err != nil {
			return fmt.Errorf("dbengine: write schema row for %s: %w", t.name, err)
		}
		db.Tables.Put(rec)
	}
	return nil
}

// eachOrdinaryRow walks table from its lowest ordinary TRID upward,
// skipping the self-describing schema row at TRID 0.
func eachOrdinaryRow(table *rowstore.Table, decode func([]byte) (int, error)) error {
	return table.Scan(func(trid types.TRID, payload []byte) (bool, error) {
		if trid < firstOrdinaryTRID {
			return true, nil
		}
		n, err := decode(payload)
		if err != nil {
			return false, fmt.Errorf("dbengine: decode row trid=%d: %w", trid, err)
		}
		if n != len(payload) {
			return false, fmt.Errorf("dbengine: row trid=%d: decoded %d bytes, row is %d bytes", trid, n, len(payload))
		}
		return true, nil
	})
}

// readAllCatalog rebuilds every in-memory registry by walking all ten
// catalog tables, and advances nextTableID/nextColumnID past the highest
// id found so CreateUserTable never reassigns one after a reopen.
func (db *Database) readAllCatalog() error {
	if err := eachOrdinaryRow(db.catalogTables[sysTablesTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeTableRecord(buf)
		if err != nil {
			return 0, err
		}
		db.Tables.Put(rec)
		if rec.ID >= db.nextTableID {
			db.nextTableID = rec.ID + 1
		}
		return n, nil
	}); err != nil {
		return err
	}

	if err := eachOrdinaryRow(db.catalogTables[sysColumnsTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeColumnRecord(buf)
		if err != nil {
			return 0, err
		}
		db.Columns.Put(rec)
		if rec.ID >= db.nextColumnID {
			db.nextColumnID = rec.ID + 1
		}
		return n, nil
	}); err != nil {
		return err
	}

	if err := eachOrdinaryRow(db.catalogTables[sysColumnSetsTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeColumnSetRecord(buf)
		if err != nil {
			return 0, err
		}
		db.ColumnSets.Put(rec)
		return n, nil
	}); err != nil {
		return err
	}

	if err := eachOrdinaryRow(db.catalogTables[sysColumnSetColumnsTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeColumnSetColumnRecord(buf)
		if err != nil {
			return 0, err
		}
		if set, ok := db.ColumnSets.Get(rec.ColumnSetID); ok {
			set.Columns.Put(rec)
		}
		return n, nil
	}); err != nil {
		return err
	}

	if err := eachOrdinaryRow(db.catalogTables[sysColumnDefsTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeColumnDefinitionRecord(buf)
		if err != nil {
			return 0, err
		}
		db.ColumnDefinitions.Put(rec)
		return n, nil
	}); err != nil {
		return err
	}

	if err := eachOrdinaryRow(db.catalogTables[sysColumnDefConstraintsTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeColumnDefinitionConstraintRecord(buf)
		if err != nil {
			return 0, err
		}
		if def, ok := db.ColumnDefinitions.Get(rec.ColumnDefinitionID); ok {
			def.Constraints.Put(rec)
		}
		return n, nil
	}); err != nil {
		return err
	}

	if err := eachOrdinaryRow(db.catalogTables[sysConstraintsTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeConstraintRecord(buf)
		if err != nil {
			return 0, err
		}
		db.Constraints.Put(rec)
		if rec.ID >= db.nextConstraintID {
			db.nextConstraintID = rec.ID + 1
		}
		return n, nil
	}); err != nil {
		return err
	}

	if err := eachOrdinaryRow(db.catalogTables[sysConstraintDefsTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeConstraintDefinitionRecord(buf)
		if err != nil {
			return 0, err
		}
		db.ConstraintDefinitions.Put(rec)
		if rec.ID >= db.nextConstraintDefID {
			db.nextConstraintDefID = rec.ID + 1
		}
		return n, nil
	}); err != nil {
		return err
	}

	if err := eachOrdinaryRow(db.catalogTables[sysIndicesTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeIndexRecord(buf)
		if err != nil {
			return 0, err
		}
		db.Indices.Put(rec)
		return n, nil
	}); err != nil {
		return err
	}

	return eachOrdinaryRow(db.catalogTables[sysIndexColumnsTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeIndexColumnRecord(buf)
		if err != nil {
			return 0, err
		}
		if idx, ok := db.Indices.Get(rec.IndexID); ok {
			idx.Columns.Put(rec)
		}
		return n, nil
	})
}

// Close releases the database's open files.
func (db *Database) Close() error {
	var err error
	if db.boltDB != nil {
		err = db.boltDB.Close()
	}
	if db.metadata != nil {
		if merr := db.metadata.close(); err == nil {
			err = merr
		}
	}
	return err
}

// DataDir returns the user database's root directory, for a dropped
// table's data directory to be resolved against.
func (db *Database) DataDir() string { return db.dir }
