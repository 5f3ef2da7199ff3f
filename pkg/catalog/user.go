package catalog

import (
	"fmt"

	"github.com/siodb/siodb/pkg/types"
)

// UserAccessKeyRecord is one authentication key belonging to a user.
type UserAccessKeyRecord struct {
	ID          types.UserAccessKeyID
	UserID      types.UserID
	Name        string
	Text        string
	Description *string
	Active      bool
}

func (r UserAccessKeyRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, uint64(r.ID))
	buf = EncodeVarint(buf, uint64(r.UserID))
	buf = EncodeString(buf, r.Name)
	buf = EncodeString(buf, r.Text)
	buf = EncodeOptionalString(buf, r.Description)
	buf = EncodeBool(buf, r.Active)
	return buf
}

func DecodeUserAccessKeyRecord(buf []byte) (UserAccessKeyRecord, int, error) {
	var r UserAccessKeyRecord
	total := 0

	id, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return UserAccessKeyRecord{}, 0, fmt.Errorf("catalog: UserAccessKeyRecord.id: %w", err)
	}
	r.ID = types.UserAccessKeyID(id)
	total += n

	userID, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return UserAccessKeyRecord{}, 0, fmt.Errorf("catalog: UserAccessKeyRecord.userId: %w", err)
	}
	r.UserID = types.UserID(userID)
	total += n

	name, n, err := DecodeString(buf[total:])
	if err != nil {
		return UserAccessKeyRecord{}, 0, fmt.Errorf("catalog: UserAccessKeyRecord.name: %w", err)
	}
	r.Name = name
	total += n

	text, n, err := DecodeString(buf[total:])
	if err != nil {
		return UserAccessKeyRecord{}, 0, fmt.Errorf("catalog: UserAccessKeyRecord.text: %w", err)
	}
	r.Text = text
	total += n

	desc, n, err := DecodeOptionalString(buf[total:])
	if err != nil {
		return UserAccessKeyRecord{}, 0, fmt.Errorf("catalog: UserAccessKeyRecord.description: %w", err)
	}
	r.Description = desc
	total += n

	active, n, err := DecodeBool(buf[total:])
	if err != nil {
		return UserAccessKeyRecord{}, 0, fmt.Errorf("catalog: UserAccessKeyRecord.active: %w", err)
	}
	r.Active = active
	total += n

	return r, total, nil
}

type userKey struct {
	userID types.UserID
	name   string
}

// UserAccessKeyRegistry indexes UserAccessKeyRecords by id and by (user, name).
type UserAccessKeyRegistry struct {
	*Registry[types.UserAccessKeyID, UserAccessKeyRecord]
	byUserAndName map[userKey]types.UserAccessKeyID
}

func NewUserAccessKeyRegistry() *UserAccessKeyRegistry {
	return &UserAccessKeyRegistry{
		Registry:      NewRegistry[types.UserAccessKeyID, UserAccessKeyRecord](),
		byUserAndName: make(map[userKey]types.UserAccessKeyID),
	}
}

func (r *UserAccessKeyRegistry) Put(rec UserAccessKeyRecord) {
	r.Registry.Put(rec.ID, &rec)
	r.byUserAndName[userKey{rec.UserID, rec.Name}] = rec.ID
}

// Delete removes id, keeping the (user, name) index in sync.
func (r *UserAccessKeyRegistry) Delete(id types.UserAccessKeyID) {
	if rec, ok := r.Get(id); ok {
		delete(r.byUserAndName, userKey{rec.UserID, rec.Name})
	}
	r.Registry.Delete(id)
}

// FindByUserAndName looks up one of userID's access keys by its name.
func (r *UserAccessKeyRegistry) FindByUserAndName(userID types.UserID, name string) (*UserAccessKeyRecord, bool) {
	id, ok := r.byUserAndName[userKey{userID, name}]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// ForUser returns every access key belonging to userID.
func (r *UserAccessKeyRegistry) ForUser(userID types.UserID) []*UserAccessKeyRecord {
	var out []*UserAccessKeyRecord
	for _, rec := range r.All() {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out
}

// UserTokenRecord is one API token belonging to a user.
type UserTokenRecord struct {
	ID                  types.UserTokenID
	UserID              types.UserID
	Name                string
	Value               []byte
	ExpirationTimestamp *int64
	Description         *string
}

func (r UserTokenRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, uint64(r.ID))
	buf = EncodeVarint(buf, uint64(r.UserID))
	buf = EncodeString(buf, r.Name)
	buf = EncodeBytes(buf, r.Value)
	buf = EncodeOptionalInt64(buf, r.ExpirationTimestamp)
	buf = EncodeOptionalString(buf, r.Description)
	return buf
}

func DecodeUserTokenRecord(buf []byte) (UserTokenRecord, int, error) {
	var r UserTokenRecord
	total := 0

	id, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return UserTokenRecord{}, 0, fmt.Errorf("catalog: UserTokenRecord.id: %w", err)
	}
	r.ID = types.UserTokenID(id)
	total += n

	userID, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return UserTokenRecord{}, 0, fmt.Errorf("catalog: UserTokenRecord.userId: %w", err)
	}
	r.UserID = types.UserID(userID)
	total += n

	name, n, err := DecodeString(buf[total:])
	if err != nil {
		return UserTokenRecord{}, 0, fmt.Errorf("catalog: UserTokenRecord.name: %w", err)
	}
	r.Name = name
	total += n

	value, n, err := DecodeBytes(buf[total:])
	if err != nil {
		return UserTokenRecord{}, 0, fmt.Errorf("catalog: UserTokenRecord.value: %w", err)
	}
	r.Value = value
	total += n

	exp, n, err := DecodeOptionalInt64(buf[total:])
	if err != nil {
		return UserTokenRecord{}, 0, fmt.Errorf("catalog: UserTokenRecord.expirationTimestamp: %w", err)
	}
	r.ExpirationTimestamp = exp
	total += n

	desc, n, err := DecodeOptionalString(buf[total:])
	if err != nil {
		return UserTokenRecord{}, 0, fmt.Errorf("catalog: UserTokenRecord.description: %w", err)
	}
	r.Description = desc
	total += n

	return r, total, nil
}

// UserTokenRegistry indexes UserTokenRecords by id and by (user, name).
type UserTokenRegistry struct {
	*Registry[types.UserTokenID, UserTokenRecord]
	byUserAndName map[userKey]types.UserTokenID
}

func NewUserTokenRegistry() *UserTokenRegistry {
	return &UserTokenRegistry{
		Registry:      NewRegistry[types.UserTokenID, UserTokenRecord](),
		byUserAndName: make(map[userKey]types.UserTokenID),
	}
}

func (r *UserTokenRegistry) Put(rec UserTokenRecord) {
	r.Registry.Put(rec.ID, &rec)
	r.byUserAndName[userKey{rec.UserID, rec.Name}] = rec.ID
}

// Delete removes id, keeping the (user, name) index in sync.
func (r *UserTokenRegistry) Delete(id types.UserTokenID) {
	if rec, ok := r.Get(id); ok {
		delete(r.byUserAndName, userKey{rec.UserID, rec.Name})
	}
	r.Registry.Delete(id)
}

// FindByUserAndName looks up one of userID's tokens by its name.
func (r *UserTokenRegistry) FindByUserAndName(userID types.UserID, name string) (*UserTokenRecord, bool) {
	id, ok := r.byUserAndName[userKey{userID, name}]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// ForUser returns every token belonging to userID.
func (r *UserTokenRegistry) ForUser(userID types.UserID) []*UserTokenRecord {
	var out []*UserTokenRecord
	for _, rec := range r.All() {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out
}

// UserPermissionRecord grants (or records grant-option over) a permission
// bitmask to a user over one database object.
type UserPermissionRecord struct {
	ID           types.UserPermissionID
	UserID       types.UserID
	DatabaseID   types.DatabaseID
	ObjectType   types.DatabaseObjectType
	ObjectID     uint64
	Permissions  types.PermissionType
	GrantOptions types.PermissionType
}

func (r UserPermissionRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, uint64(r.ID))
	buf = EncodeVarint(buf, uint64(r.UserID))
	buf = EncodeVarint(buf, uint64(r.DatabaseID))
	buf = EncodeVarint(buf, uint64(r.ObjectType))
	buf = EncodeVarint(buf, r.ObjectID)
	buf = EncodeVarint(buf, uint64(r.Permissions))
	buf = EncodeVarint(buf, uint64(r.GrantOptions))
	return buf
}

func DecodeUserPermissionRecord(buf []byte) (UserPermissionRecord, int, error) {
	var r UserPermissionRecord
	total := 0
	next := func(name string) (uint64, error) {
		v, n, err := DecodeVarint(buf[total:])
		if err != nil {
			return 0, fmt.Errorf("catalog: UserPermissionRecord.%s: %w", name, err)
		}
		total += n
		return v, nil
	}

	id, err := next("id")
	if err != nil {
		return UserPermissionRecord{}, 0, err
	}
	r.ID = types.UserPermissionID(id)

	userID, err := next("userId")
	if err != nil {
		return UserPermissionRecord{}, 0, err
	}
	r.UserID = types.UserID(userID)

	dbID, err := next("databaseId")
	if err != nil {
		return UserPermissionRecord{}, 0, err
	}
	r.DatabaseID = types.DatabaseID(dbID)

	objType, err := next("objectType")
	if err != nil {
		return UserPermissionRecord{}, 0, err
	}
	r.ObjectType = types.DatabaseObjectType(objType)

	objID, err := next("objectId")
	if err != nil {
		return UserPermissionRecord{}, 0, err
	}
	r.ObjectID = objID

	perms, err := next("permissions")
	if err != nil {
		return UserPermissionRecord{}, 0, err
	}
	r.Permissions = types.PermissionType(perms)

	grants, err := next("grantOptions")
	if err != nil {
		return UserPermissionRecord{}, 0, err
	}
	r.GrantOptions = types.PermissionType(grants)

	return r, total, nil
}

type permissionKey struct {
	userID     types.UserID
	databaseID types.DatabaseID
	objectType types.DatabaseObjectType
	objectID   uint64
}

// UserPermissionRegistry indexes UserPermissionRecords by id and by the
// (user, database, object type, object) tuple permission checks key on.
type UserPermissionRegistry struct {
	*Registry[types.UserPermissionID, UserPermissionRecord]
	byKey map[permissionKey]types.UserPermissionID
}

func NewUserPermissionRegistry() *UserPermissionRegistry {
	return &UserPermissionRegistry{
		Registry: NewRegistry[types.UserPermissionID, UserPermissionRecord](),
		byKey:    make(map[permissionKey]types.UserPermissionID),
	}
}

func (r *UserPermissionRegistry) Put(rec UserPermissionRecord) {
	r.Registry.Put(rec.ID, &rec)
	r.byKey[permissionKey{rec.UserID, rec.DatabaseID, rec.ObjectType, rec.ObjectID}] = rec.ID
}

// Delete removes id, keeping the (user, database, object) index in sync.
func (r *UserPermissionRegistry) Delete(id types.UserPermissionID) {
	if rec, ok := r.Get(id); ok {
		delete(r.byKey, permissionKey{rec.UserID, rec.DatabaseID, rec.ObjectType, rec.ObjectID})
	}
	r.Registry.Delete(id)
}

func (r *UserPermissionRegistry) Find(userID types.UserID, databaseID types.DatabaseID, objType types.DatabaseObjectType, objectID uint64) (*UserPermissionRecord, bool) {
	id, ok := r.byKey[permissionKey{userID, databaseID, objType, objectID}]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// UserRecord is a user's catalog entry, with its access keys nested
// directly underneath (access keys have no independent existence outside
// their owning user).
type UserRecord struct {
	ID          types.UserID
	Name        string
	RealName    *string
	Description *string
	Active      bool
	AccessKeys  *UserAccessKeyRegistry
}

func (r UserRecord) Marshal(buf []byte) []byte {
	buf = EncodeVarint(buf, uint64(r.ID))
	buf = EncodeString(buf, r.Name)
	buf = EncodeOptionalString(buf, r.RealName)
	buf = EncodeOptionalString(buf, r.Description)
	buf = EncodeBool(buf, r.Active)
	keys := r.AccessKeys.All()
	buf = EncodeVarint(buf, uint64(len(keys)))
	for _, k := range keys {
		buf = k.Marshal(buf)
	}
	return buf
}

func DecodeUserRecord(buf []byte) (UserRecord, int, error) {
	var r UserRecord
	r.AccessKeys = NewUserAccessKeyRegistry()
	total := 0

	id, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return UserRecord{}, 0, fmt.Errorf("catalog: UserRecord.id: %w", err)
	}
	r.ID = types.UserID(id)
	total += n

	name, n, err := DecodeString(buf[total:])
	if err != nil {
		return UserRecord{}, 0, fmt.Errorf("catalog: UserRecord.name: %w", err)
	}
	r.Name = name
	total += n

	realName, n, err := DecodeOptionalString(buf[total:])
	if err != nil {
		return UserRecord{}, 0, fmt.Errorf("catalog: UserRecord.realName: %w", err)
	}
	r.RealName = realName
	total += n

	desc, n, err := DecodeOptionalString(buf[total:])
	if err != nil {
		return UserRecord{}, 0, fmt.Errorf("catalog: UserRecord.description: %w", err)
	}
	r.Description = desc
	total += n

	active, n, err := DecodeBool(buf[total:])
	if err != nil {
		return UserRecord{}, 0, fmt.Errorf("catalog: UserRecord.active: %w", err)
	}
	r.Active = active
	total += n

	count, n, err := DecodeVarint(buf[total:])
	if err != nil {
		return UserRecord{}, 0, fmt.Errorf("catalog: UserRecord.accessKeys count: %w", err)
	}
	total += n

	for i := uint64(0); i < count; i++ {
		k, n, err := DecodeUserAccessKeyRecord(buf[total:])
		if err != nil {
			return UserRecord{}, 0, fmt.Errorf("catalog: UserRecord.accessKeys[%d]: %w", i, err)
		}
		r.AccessKeys.Put(k)
		total += n
	}

	return r, total, nil
}

// UserRegistry indexes UserRecords by id and by name.
type UserRegistry struct {
	*Registry[types.UserID, UserRecord]
	byName map[string]types.UserID
}

func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		Registry: NewRegistry[types.UserID, UserRecord](),
		byName:   make(map[string]types.UserID),
	}
}

func (r *UserRegistry) Put(rec UserRecord) {
	r.Registry.Put(rec.ID, &rec)
	r.byName[rec.Name] = rec.ID
}

func (r *UserRegistry) FindByName(name string) (*UserRecord, bool) {
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}
