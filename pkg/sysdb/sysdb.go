// Package sysdb bootstraps and reopens the system database: the fixed
// set of SYS_* tables every instance carries from its very first start,
// holding the catalog of users, databases, access keys, tokens, and
// permission grants. Everything else in the catalog (tables, columns,
// constraints, indices of user databases) is owned by pkg/dbengine; this
// package only ever deals with the five system tables themselves.
package sysdb

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

// Fixed table ids, assigned in the creation order §4.5 requires. User
// tables start numbering after the highest of these.
const (
	UsersTableID            types.TableID = 1
	UserAccessKeysTableID   types.TableID = 2
	UserTokensTableID       types.TableID = 3
	DatabasesTableID        types.TableID = 4
	UserPermissionsTableID  types.TableID = 5
)

// Fixed table names, in the same creation order.
const (
	UsersTableName           = "SYS_USERS"
	UserAccessKeysTableName  = "SYS_USER_ACCESS_KEYS"
	UserTokensTableName      = "SYS_USER_TOKENS"
	DatabasesTableName       = "SYS_DATABASES"
	UserPermissionsTableName = "SYS_USER_PERMISSIONS"
)

// systemTableOrder is the fixed creation order from §4.5; every bootstrap
// walk and every SystemObjectsInfo cross-link iterates in this order.
var systemTableOrder = []struct {
	id   types.TableID
	name string
}{
	{UsersTableID, UsersTableName},
	{UserAccessKeysTableID, UserAccessKeysTableName},
	{UserTokensTableID, UserTokensTableName},
	{DatabasesTableID, DatabasesTableName},
	{UserPermissionsTableID, UserPermissionsTableName},
}

// rowColumnID is the single column every SYS_* table stores its rows
// under; system tables have no secondary columns, only the catalog
// record's own serialized bytes.
const rowColumnID types.ColumnID = 1

const defaultDataAreaSize uint32 = 1 << 20

// schemaRowTRID is the fixed TRID every SYS_* table reserves for its own
// self-describing TableRecord; ordinary rows start at firstOrdinaryTRID.
const schemaRowTRID types.TRID = 0

const firstOrdinaryTRID types.TRID = 1

// SystemDatabase is the open system database: its five tables, the
// cipher context securing them, and the in-memory registries rebuilt
// from (or seeded into) those tables.
type SystemDatabase struct {
	dir    string
	cipher *siocipher.Context
	boltDB *bolt.DB

	tables map[types.TableID]*rowstore.Table

	Users            *catalog.UserRegistry
	AccessKeys       *catalog.UserAccessKeyRegistry
	Tokens           *catalog.UserTokenRegistry
	Databases        *catalog.DatabaseRegistry
	UserPermissions  *catalog.UserPermissionRegistry
}

// Options configures Open.
type Options struct {
	// DataDir is the instance's top-level data directory; the system
	// database lives at DataDir/<SystemDatabaseUUID>.
	DataDir string
	Cipher  *siocipher.Context
	// InstanceName is cross-checked against the init-flag file's
	// recorded name on every run after the first.
	InstanceName string
}

func systemDatabaseDir(dataDir string) string {
	return filepath.Join(dataDir, types.SystemDatabaseUUID.String())
}

// IsInitialized reports whether a system database already exists under
// dataDir, letting a caller (instance.Open) tell first-run bootstrap
// apart from a later reopen before Open itself decides.
func IsInitialized(dataDir string) bool {
	_, err := os.Stat(initFlagPath(systemDatabaseDir(dataDir)))
	return err == nil
}

// Open creates the system database on first run, or reopens and
// rebuilds its registries on every subsequent run, per §4.5.
func Open(opts Options) (*SystemDatabase, error) {
	dir := systemDatabaseDir(opts.DataDir)
	flagPath := initFlagPath(dir)

	if _, err := os.Stat(flagPath); err == nil {
		return load(dir, opts)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("sysdb: stat %s: %w", flagPath, err)
	}
	return bootstrap(dir, opts)
}

func (s *SystemDatabase) openTables() error {
	boltPath := filepath.Join(s.dir, "mainindex.db")
	db, err := bolt.Open(boltPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("sysdb: open main index %s: %w", boltPath, err)
	}
	s.boltDB = db
	s.tables = make(map[types.TableID]*rowstore.Table, len(systemTableOrder))

	for _, t := range systemTableOrder {
		idx, err := mainindex.OpenBoltMainIndex(db, []byte(t.name))
		if err != nil {
			return fmt.Errorf("sysdb: open index for %s: %w", t.name, err)
		}
		tableDir := filepath.Join(s.dir, t.name)
		if err := os.MkdirAll(tableDir, 0700); err != nil {
			return fmt.Errorf("sysdb: create table dir %s: %w", tableDir, err)
		}

		// TRID 0 is reserved for the table's own self-describing schema
		// row; ordinary rows start at 1, except SYS_USER_ACCESS_KEYS,
		// which also reserves TRID 1 for the super-user's initial key.
		firstUserTRID := uint64(firstOrdinaryTRID)
		if t.id == UserAccessKeysTableID {
			firstUserTRID = uint64(types.SuperUserInitialAccessKeyID) + 1
		}

		table, err := rowstore.Open(rowstore.OpenParams{
			Dir:           tableDir,
			DatabaseUUID:  types.SystemDatabaseUUID,
			TableID:       t.id,
			ColumnID:      rowColumnID,
			DataAreaSize:  defaultDataAreaSize,
			Mode:          0600,
			Cipher:        s.cipher,
			Index:         idx,
			FirstUserTRID: firstUserTRID,
		})
		if err != nil {
			return fmt.Errorf("sysdb: open table %s: %w", t.name, err)
		}
		s.tables[t.id] = table
	}
	return nil
}

// Close releases the system database's open files.
func (s *SystemDatabase) Close() error {
	if s.boltDB != nil {
		return s.boltDB.Close()
	}
	return nil
}

