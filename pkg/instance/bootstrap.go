package instance

import (
	"fmt"

	"github.com/siodb/siodb/pkg/catalog"
	"github.com/siodb/siodb/pkg/sysdb"
	"github.com/siodb/siodb/pkg/types"
)

// bootstrapSuperUser runs once, on the very first start of a fresh
// instance: it creates the reserved super-user record and, if an initial
// access key was configured, its one access key at the TRID sysdb already
// reserved for it during system database bootstrap.
func (inst *Instance) bootstrapSuperUser() error {
	accessKeys := catalog.NewUserAccessKeyRegistry()

	if inst.opts.SuperUserInitialAccessKey != "" {
		key := catalog.UserAccessKeyRecord{
			ID:     types.SuperUserInitialAccessKeyID,
			UserID: types.SuperUserID,
			Name:   "initial_key",
			Text:   inst.opts.SuperUserInitialAccessKey,
			Active: true,
		}
		table, err := inst.sys.Table(sysdb.UserAccessKeysTableID)
		if err != nil {
			return fmt.Errorf("instance: access keys table: %w", err)
		}
		if err := table.InsertAt(types.TRID(key.ID), key.Marshal(nil)); err != nil {
			return fmt.Errorf("instance: write super-user initial access key: %w", err)
		}
		inst.sys.AccessKeys.Put(key)
		accessKeys.Put(key)
	}

	superUser := catalog.UserRecord{
		ID:         types.SuperUserID,
		Name:       "root",
		Active:     true,
		AccessKeys: accessKeys,
	}
	table, err := inst.sys.Table(sysdb.UsersTableID)
	if err != nil {
		return fmt.Errorf("instance: users table: %w", err)
	}
	if err := table.InsertAt(types.TRID(types.SuperUserID), superUser.Marshal(nil)); err != nil {
		return fmt.Errorf("instance: write super-user record: %w", err)
	}
	inst.sys.Users.Put(superUser)

	return nil
}
