// Package instance ties the system database, every open user database,
// and session tracking together into the single entry point the rest of
// the storage core talks to: one Instance per running iomgr process.
package instance

import (
	"fmt"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	siocipher "github.com/siodb/siodb/pkg/cipher"
	"github.com/siodb/siodb/pkg/dbengine"
	"github.com/siodb/siodb/pkg/logging"
	"github.com/siodb/siodb/pkg/metrics"
	"github.com/siodb/siodb/pkg/sysdb"
	"github.com/siodb/siodb/pkg/types"
)

// Options configures Open. Most fields mirror config.InstanceOptions;
// Open is given the already-resolved values rather than a
// config.InstanceOptions directly so tests can construct one without a
// config file.
type Options struct {
	Name    string
	DataDir string

	// MasterCipher envelope-encrypts every user database's own cipher
	// key; nil means the master cipher is "none" and keys are stored
	// unencrypted, matching the original engine's default.
	MasterCipher *siocipher.Context

	DefaultDatabaseCipherID string
	SystemDatabaseCipherID  string

	// SuperUserInitialAccessKey seeds the super-user's first access key
	// on first run; empty means the super-user starts with none.
	SuperUserInitialAccessKey string

	MaxDatabases          uint32
	MaxTableCountPerTable  uint32
	DatabaseCacheSize      int
}

func (o Options) databaseCacheSize() int {
	if o.DatabaseCacheSize > 0 {
		return o.DatabaseCacheSize
	}
	return 16
}

// Instance is one running storage-core process: the system database, the
// set of user databases currently open, and the sessions authenticated
// against it.
type Instance struct {
	opts Options

	sys *sysdb.SystemDatabase

	mu        sync.Mutex
	databases *lru.Cache[types.DatabaseID, *dbengine.Database]

	sessions *sessionTable

	credMu          sync.Mutex
	nextAccessKeyID types.UserAccessKeyID
	nextTokenID     types.UserTokenID
}

// Open creates the instance's system database on first run or reopens it
// otherwise, then bootstraps the super-user if this is the first run.
func Open(opts Options) (*Instance, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("instance: name is required")
	}
	if err := os.MkdirAll(opts.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("instance: create data dir %s: %w", opts.DataDir, err)
	}

	systemCipher, err := resolveCipher(opts.SystemDatabaseCipherID, nil)
	if err != nil {
		return nil, fmt.Errorf("instance: resolve system database cipher: %w", err)
	}

	wasFirstRun := !sysdb.IsInitialized(opts.DataDir)

	sys, err := sysdb.Open(sysdb.Options{
		DataDir:      opts.DataDir,
		Cipher:       systemCipher,
		InstanceName: opts.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("instance: open system database: %w", err)
	}
	metrics.RegisterComponent("sysdb", true, "")
	metrics.RegisterComponent("mainindex", true, "")
	metrics.RegisterComponent("blockstore", true, "")

	cache, err := lru.NewWithEvict[types.DatabaseID, *dbengine.Database](opts.databaseCacheSize(), func(_ types.DatabaseID, db *dbengine.Database) {
		db.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("instance: create database cache: %w", err)
	}

	inst := &Instance{
		opts:      opts,
		sys:       sys,
		databases: cache,
		sessions:  newSessionTable(),
	}

	if wasFirstRun {
		if err := inst.bootstrapSuperUser(); err != nil {
			return nil, fmt.Errorf("instance: bootstrap super-user: %w", err)
		}
	}

	for _, rec := range sys.AccessKeys.All() {
		if rec.ID >= inst.nextAccessKeyID {
			inst.nextAccessKeyID = rec.ID + 1
		}
	}
	if inst.nextAccessKeyID == 0 {
		inst.nextAccessKeyID = 1
	}
	for _, rec := range sys.Tokens.All() {
		if rec.ID >= inst.nextTokenID {
			inst.nextTokenID = rec.ID + 1
		}
	}
	if inst.nextTokenID == 0 {
		inst.nextTokenID = 1
	}

	logging.WithComponent("instance").Info().Str("name", opts.Name).Bool("firstRun", wasFirstRun).Msg("instance opened")
	return inst, nil
}

// Close releases every open user database and the system database.
func (inst *Instance) Close() error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	for _, id := range inst.databases.Keys() {
		if db, ok := inst.databases.Get(id); ok {
			db.Close()
		}
	}
	inst.databases.Purge()
	return inst.sys.Close()
}

func resolveCipher(cipherID string, key []byte) (*siocipher.Context, error) {
	if cipherID == "" {
		cipherID = siocipher.None.ID
	}
	desc, err := siocipher.Lookup(cipherID)
	if err != nil {
		return nil, err
	}
	return siocipher.NewContext(desc, key)
}
