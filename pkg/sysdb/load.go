package sysdb

import (
	"fmt"

	"github.com/siodb/siodb/pkg/catalog"
)

// load reopens an already-bootstrapped system database: cross-checks the
// init-flag file's recorded instance name, reopens the five SYS_* tables,
// and rebuilds every in-memory registry by walking each table's rows.
func load(dir string, opts Options) (*SystemDatabase, error) {
	flag, err := readInitFlag(dir)
	if err != nil {
		return nil, err
	}
	if flag.Name != opts.InstanceName {
		return nil, fmt.Errorf("sysdb: instance name mismatch: flag file says %q, configured as %q",
			flag.Name, opts.InstanceName)
	}

	if _, err := readSystemObjectsInfo(dir); err != nil {
		return nil, err
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

	if err := sdb.readAllUsers(); err != nil {
		return nil, err
	}
	if err := sdb.readAllUserAccessKeys(); err != nil {
		return nil, err
	}
	if err := sdb.readAllUserTokens(); err != nil {
		return nil, err
	}
	if err := sdb.readAllDatabases(); err != nil {
		return nil, err
	}
	if err := sdb.readAllUserPermissions(); err != nil {
		return nil, err
	}

	return sdb, nil
}
