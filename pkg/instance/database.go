package instance

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/siodb/siodb/pkg/catalog"
	siocipher "github.com/siodb/siodb/pkg/cipher"
	"github.com/siodb/siodb/pkg/dbengine"
	"github.com/siodb/siodb/pkg/logging"
	"github.com/siodb/siodb/pkg/sysdb"
	"github.com/siodb/siodb/pkg/types"
)

// CreateDatabaseOptions describes a new user database.
type CreateDatabaseOptions struct {
	Name          string
	CipherID      string
	MaxTableCount uint32
	Description   string
}

// CreateDatabase creates name's SYS_DATABASES row, generates and
// envelope-encrypts its cipher key under the instance's master cipher,
// and bootstraps its own ten catalog tables via dbengine.Open.
func (inst *Instance) CreateDatabase(opts CreateDatabaseOptions) (*catalog.DatabaseRecord, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if opts.Name == "" {
		return nil, fmt.Errorf("instance: database name must not be empty")
	}
	if opts.Name == types.SystemDatabaseName {
		return nil, fmt.Errorf("instance: database name %q is reserved", opts.Name)
	}
	if _, exists := inst.sys.Databases.FindByName(opts.Name); exists {
		return nil, fmt.Errorf("instance: database %q already exists", opts.Name)
	}

	cipherID := opts.CipherID
	if cipherID == "" {
		cipherID = inst.opts.DefaultDatabaseCipherID
	}
	if cipherID == "" {
		cipherID = siocipher.None.ID
	}
	desc, err := siocipher.Lookup(cipherID)
	if err != nil {
		return nil, fmt.Errorf("instance: resolve cipher for database %q: %w", opts.Name, err)
	}
	key, err := siocipher.GenerateKey(desc)
	if err != nil {
		return nil, fmt.Errorf("instance: generate cipher key for database %q: %w", opts.Name, err)
	}

	dbID, err := inst.nextDatabaseID()
	if err != nil {
		return nil, err
	}
	dbUUID := uuid.New()

	if err := inst.writeCipherKey(dbUUID, desc.ID, key); err != nil {
		return nil, fmt.Errorf("instance: persist cipher key for database %q: %w", opts.Name, err)
	}

	var description *string
	if opts.Description != "" {
		description = &opts.Description
	}
	rec := catalog.DatabaseRecord{
		ID:            dbID,
		UUID:          dbUUID,
		Name:          opts.Name,
		CipherID:      desc.ID,
		MaxTableCount: opts.MaxTableCount,
		Description:   description,
		CreatedAt:     time.Now().Unix(),
	}

	table, err := inst.sys.Table(sysdb.DatabasesTableID)
	if err != nil {
		return nil, err
	}
	if err := table.InsertAt(types.TRID(dbID), rec.Marshal(nil)); err != nil {
		return nil, fmt.Errorf("instance: write SYS_DATABASES row for %q: %w", opts.Name, err)
	}
	inst.sys.Databases.Put(rec)

	cipherCtx, err := siocipher.NewContext(desc, key)
	if err != nil {
		return nil, fmt.Errorf("instance: build cipher context for database %q: %w", opts.Name, err)
	}
	db, err := dbengine.Open(inst.opts.DataDir, dbRecordToDomain(rec), cipherCtx)
	if err != nil {
		return nil, fmt.Errorf("instance: bootstrap database %q: %w", opts.Name, err)
	}
	inst.databases.Add(dbID, db)

	logging.WithDatabase(opts.Name).Info().Uint32("id", uint32(dbID)).Msg("database created")
	return &rec, nil
}

// DropDatabase removes name's on-disk data and its SYS_DATABASES row.
// Unlike DropTable, there is no catalog-before-data ordering to preserve:
// a database's own ten catalog tables live inside its data directory, so
// removing that directory removes catalog and data together.
func (inst *Instance) DropDatabase(name string) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	rec, exists := inst.sys.Databases.FindByName(name)
	if !exists {
		return fmt.Errorf("instance: database %q does not exist", name)
	}
	if rec.ID == types.SystemDatabaseID {
		return fmt.Errorf("instance: cannot drop the system database")
	}

	if db, ok := inst.databases.Get(rec.ID); ok {
		db.Close()
		inst.databases.Remove(rec.ID)
	}

	table, err := inst.sys.Table(sysdb.DatabasesTableID)
	if err != nil {
		return err
	}
	if err := table.Delete(types.TRID(rec.ID)); err != nil {
		return fmt.Errorf("instance: delete SYS_DATABASES row for %q: %w", name, err)
	}
	inst.sys.Databases.Delete(rec.ID)

	if err := removeAll(inst.dataDirFor(rec.UUID)); err != nil {
		return fmt.Errorf("instance: remove data directory for %q: %w", name, err)
	}
	if err := removeCipherKeyFile(inst.cipherKeyPath(rec.UUID)); err != nil {
		return fmt.Errorf("instance: remove cipher key for %q: %w", name, err)
	}

	logging.WithDatabase(name).Info().Msg("database dropped")
	return nil
}

// FindDatabase returns the open handle for name, opening it on demand
// (and caching it, subject to eviction) if it is not already open.
func (inst *Instance) FindDatabase(name string) (*dbengine.Database, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	rec, exists := inst.sys.Databases.FindByName(name)
	if !exists {
		return nil, fmt.Errorf("instance: database %q does not exist", name)
	}
	if db, ok := inst.databases.Get(rec.ID); ok {
		return db, nil
	}

	cipherCtx, err := inst.readCipherKey(rec.UUID, rec.CipherID)
	if err != nil {
		return nil, fmt.Errorf("instance: load cipher key for database %q: %w", name, err)
	}
	db, err := dbengine.Open(inst.opts.DataDir, dbRecordToDomain(*rec), cipherCtx)
	if err != nil {
		return nil, fmt.Errorf("instance: open database %q: %w", name, err)
	}
	inst.databases.Add(rec.ID, db)
	return db, nil
}

// nextDatabaseID returns one past the highest database id currently
// known, skipping ahead of the reserved system database id.
func (inst *Instance) nextDatabaseID() (types.DatabaseID, error) {
	max := types.SystemDatabaseID
	for _, rec := range inst.sys.Databases.All() {
		if rec.ID > max {
			max = rec.ID
		}
	}
	return max + 1, nil
}

func (inst *Instance) dataDirFor(dbUUID uuid.UUID) string {
	return filepath.Join(inst.opts.DataDir, dbUUID.String())
}

func dbRecordToDomain(rec catalog.DatabaseRecord) types.Database {
	var description string
	if rec.Description != nil {
		description = *rec.Description
	}
	return types.Database{
		ID:            rec.ID,
		UUID:          rec.UUID,
		Name:          rec.Name,
		CipherID:      rec.CipherID,
		MaxTableCount: rec.MaxTableCount,
		Description:   description,
		CreatedAt:     time.Unix(rec.CreatedAt, 0),
	}
}
