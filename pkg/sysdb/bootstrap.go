package sysdb

import (
	"fmt"
	"os"
	"time"

	"github.com/siodb/siodb/pkg/catalog"
	siocipher "github.com/siodb/siodb/pkg/cipher"
	"github.com/siodb/siodb/pkg/types"
)

// bootstrap creates the system database from nothing: the five SYS_*
// tables in fixed order, each with its own self-describing schema row,
// the system database's own row in SYS_DATABASES, the TRID reserved for
// the super-user's initial access key, the SystemObjectsInfo cross-link
// file, and finally the init-flag file that marks bootstrap as complete.
//
// Order matters: the init-flag file is written last, so a process that
// crashes mid-bootstrap leaves no flag file behind and is retried as a
// fresh bootstrap on the next start rather than being mistaken for an
// already-initialized (but incomplete) system database.
func bootstrap(dir string, opts Options) (*SystemDatabase, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("sysdb: create system database dir %s: %w", dir, err)
	}

	sdb := &SystemDatabase{
		dir:             dir,
		cipher:          opts.Cipher,
		Users:           catalog.NewUserRegistry(),
		AccessKeys:      catalog.NewUserAccessKeyRegistry(),
		Tokens:          catalog.NewUserTokenRegistry(),
		Databases:       catalog.NewDatabaseRegistry(),
		UserPermissions: catalog.NewUserPermissionRegistry(),
	}
	if err := sdb.openTables(); err != nil {
		return nil, err
	}

	for _, t := range systemTableOrder {
		rec := catalog.TableRecord{
			ID:            t.id,
			Type:          types.TableTypeDisk,
			Name:          t.name,
			FirstUserTRID: types.TRID(firstOrdinaryTRID),
		}
		if err := sdb.tables[t.id].InsertAt(schemaRowTRID, rec.Marshal(nil)); err != nil {
			return nil, fmt.Errorf("sysdb: write schema row for %s: %w", t.name, err)
		}
	}

	// Reserve the super-user's initial access key id so it is never
	// handed out to an ordinary INSERT; the key itself is created out of
	// band by the instance bootstrap once the super-user record exists.
	if err := sdb.tables[UserAccessKeysTableID].Preallocate(
		types.TRID(types.SuperUserInitialAccessKeyID)); err != nil {
		return nil, fmt.Errorf("sysdb: reserve super-user access key TRID: %w", err)
	}

	now := time.Now().Unix()
	sysDBRecord := catalog.DatabaseRecord{
		ID:            types.SystemDatabaseID,
		UUID:          types.SystemDatabaseUUID,
		Name:          types.SystemDatabaseName,
		CipherID:      cipherIDOf(opts.Cipher),
		MaxTableCount: 0, // unlimited for the system database
		CreatedAt:     now,
	}
	// The system database's own row is the last system-reserved TRID in
	// SYS_DATABASES; it is inserted under its own database id so that
	// ordinary user databases number upward from SystemDatabaseID+1.
	if err := sdb.tables[DatabasesTableID].InsertAt(
		types.TRID(types.SystemDatabaseID), sysDBRecord.Marshal(nil)); err != nil {
		return nil, fmt.Errorf("sysdb: write system database row: %w", err)
	}
	sdb.Databases.Put(sysDBRecord)

	if err := writeSystemObjectsInfo(dir); err != nil {
		return nil, err
	}

	if err := writeInitFlag(dir, initFlag{
		Name:      opts.InstanceName,
		UUID:      types.SystemDatabaseUUID,
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("sysdb: write init flag: %w", err)
	}

	return sdb, nil
}

func cipherIDOf(ctx *siocipher.Context) string {
	if ctx == nil {
		return siocipher.None.ID
	}
	return ctx.Descriptor().ID
}
