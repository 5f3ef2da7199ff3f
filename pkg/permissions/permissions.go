// Package permissions implements grant/revoke/check over the permission
// bitmasks the catalog's SYS_USER_PERMISSIONS table records, mirroring
// User::hasPermissions/grantPermissions/revokePermissions and
// Instance::grantObjectPermissionsToUser/revokeObjectPermissionsFromUser.
package permissions

import (
	"fmt"

	"github.com/siodb/siodb/pkg/catalog"
	"github.com/siodb/siodb/pkg/metrics"
	"github.com/siodb/siodb/pkg/sysdb"
	"github.com/siodb/siodb/pkg/types"
)

// AllObjectsID is the object id a grant/revoke uses to mean "every object
// of this type", the all-tables-in-a-database or all-databases case.
const AllObjectsID uint64 = 0

// allowedPermissions lists the permission bits meaningful for each object
// type; a grant or revoke naming any other bit is rejected outright. Index
// objects carry no entry here, matching the original engine: indices have
// no permissions of their own, only the owning table's.
var allowedPermissions = map[types.DatabaseObjectType]types.PermissionType{
	types.DatabaseObjectTypeDatabase: types.PermissionShow.With(types.PermissionCreate).
		With(types.PermissionDrop).With(types.PermissionAlter),
	types.DatabaseObjectTypeTable: types.PermissionSelect.With(types.PermissionInsert).
		With(types.PermissionUpdate).With(types.PermissionDelete).With(types.PermissionReferences).
		With(types.PermissionUsage).With(types.PermissionUnder).With(types.PermissionTrigger).
		With(types.PermissionExecute).With(types.PermissionCreate).With(types.PermissionAlter).
		With(types.PermissionDrop).With(types.PermissionShow),
}

// IsValid reports whether every bit of permissions is meaningful for
// objectType.
func IsValid(objectType types.DatabaseObjectType, permissions types.PermissionType) bool {
	mask, ok := allowedPermissions[objectType]
	if !ok {
		return false
	}
	return permissions&mask == permissions
}

// Checker grants, revokes, and checks permission grants against a system
// database's SYS_USER_PERMISSIONS table, keeping catalog.UserPermissionRegistry
// and the backing rowstore table in sync the way sysdb's other tables are
// kept in sync by their own owning package.
type Checker struct {
	sys    *sysdb.SystemDatabase
	nextID types.UserPermissionID
}

// NewChecker returns a Checker over sys's already-loaded permission
// registry, picking up numbering one past the highest id already in use.
func NewChecker(sys *sysdb.SystemDatabase) *Checker {
	var max types.UserPermissionID
	for _, rec := range sys.UserPermissions.All() {
		if rec.ID > max {
			max = rec.ID
		}
	}
	return &Checker{sys: sys, nextID: max + 1}
}

// Has reports whether userID holds every bit of permissions over the
// given object, optionally requiring that every one of those bits also
// carry the grant option. The super-user holds every permission
// unconditionally, the same short-circuit User::hasPermissions applies.
func (c *Checker) Has(userID types.UserID, databaseID types.DatabaseID, objectType types.DatabaseObjectType, objectID uint64, permissions types.PermissionType, requireGrantOption bool) bool {
	granted := c.has(userID, databaseID, objectType, objectID, permissions, requireGrantOption)
	if granted {
		metrics.PermissionChecksTotal.WithLabelValues("granted").Inc()
	} else {
		metrics.PermissionChecksTotal.WithLabelValues("denied").Inc()
	}
	return granted
}

func (c *Checker) has(userID types.UserID, databaseID types.DatabaseID, objectType types.DatabaseObjectType, objectID uint64, permissions types.PermissionType, requireGrantOption bool) bool {
	if userID == types.SuperUserID {
		return true
	}
	rec, ok := c.sys.UserPermissions.Find(userID, databaseID, objectType, objectID)
	if !ok {
		return false
	}
	if rec.Permissions&permissions != permissions {
		return false
	}
	if !requireGrantOption {
		return true
	}
	effective := rec.GrantOptions & rec.Permissions
	return effective&permissions == permissions
}

// Grant adds permissions (and, if withGrantOption, the grant option over
// those same bits) to userID's standing grant over the given object,
// merging into any grant already on file. granterID must itself hold
// every one of permissions with the grant option, unless it is the
// super-user.
func (c *Checker) Grant(granterID, userID types.UserID, databaseID types.DatabaseID, objectType types.DatabaseObjectType, objectID uint64, permissions types.PermissionType, withGrantOption bool) error {
	if !IsValid(objectType, permissions) {
		return fmt.Errorf("permissions: invalid permission bits %#x for object type %v", permissions, objectType)
	}
	if !c.Has(granterID, databaseID, objectType, objectID, permissions, true) {
		return fmt.Errorf("permissions: user %d does not hold grant option over the requested permissions", granterID)
	}

	table, err := c.sys.Table(sysdb.UserPermissionsTableID)
	if err != nil {
		return err
	}

	existing, ok := c.sys.UserPermissions.Find(userID, databaseID, objectType, objectID)
	var rec catalog.UserPermissionRecord
	if ok {
		rec = *existing
		rec.Permissions |= permissions
		if withGrantOption {
			rec.GrantOptions |= permissions
		}
		if err := table.Delete(types.TRID(rec.ID)); err != nil {
			return fmt.Errorf("permissions: clear previous grant row: %w", err)
		}
		if err := table.InsertAt(types.TRID(rec.ID), rec.Marshal(nil)); err != nil {
			return fmt.Errorf("permissions: write updated grant row: %w", err)
		}
	} else {
		id := c.nextID
		c.nextID++
		var grantOptions types.PermissionType
		if withGrantOption {
			grantOptions = permissions
		}
		rec = catalog.UserPermissionRecord{
			ID:           id,
			UserID:       userID,
			DatabaseID:   databaseID,
			ObjectType:   objectType,
			ObjectID:     objectID,
			Permissions:  permissions,
			GrantOptions: grantOptions,
		}
		if err := table.InsertAt(types.TRID(id), rec.Marshal(nil)); err != nil {
			return fmt.Errorf("permissions: write new grant row: %w", err)
		}
	}
	c.sys.UserPermissions.Put(rec)
	return nil
}

// Revoke removes permissions from userID's standing grant over the given
// object. If every bit of the grant is removed, the grant row itself is
// deleted rather than left behind empty. granterID must hold the grant
// option over every bit being revoked, unless it is the super-user.
func (c *Checker) Revoke(granterID, userID types.UserID, databaseID types.DatabaseID, objectType types.DatabaseObjectType, objectID uint64, permissions types.PermissionType) error {
	if !c.Has(granterID, databaseID, objectType, objectID, permissions, true) {
		return fmt.Errorf("permissions: user %d does not hold grant option over the requested permissions", granterID)
	}

	rec, ok := c.sys.UserPermissions.Find(userID, databaseID, objectType, objectID)
	if !ok {
		return fmt.Errorf("permissions: user %d has no grant over this object", userID)
	}

	table, err := c.sys.Table(sysdb.UserPermissionsTableID)
	if err != nil {
		return err
	}
	if err := table.Delete(types.TRID(rec.ID)); err != nil {
		return fmt.Errorf("permissions: clear previous grant row: %w", err)
	}

	updated := *rec
	updated.Permissions &^= permissions
	updated.GrantOptions &^= permissions
	if updated.Permissions == 0 {
		c.sys.UserPermissions.Delete(updated.ID)
		return nil
	}
	if err := table.InsertAt(types.TRID(updated.ID), updated.Marshal(nil)); err != nil {
		return fmt.Errorf("permissions: write updated grant row: %w", err)
	}
	c.sys.UserPermissions.Put(updated)
	return nil
}
