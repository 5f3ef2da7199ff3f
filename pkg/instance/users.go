package instance

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/siodb/siodb/pkg/catalog"
	"github.com/siodb/siodb/pkg/sysdb"
	"github.com/siodb/siodb/pkg/types"
)

// FindUser looks a user up by name. Unlike FindDatabase, this never has a
// cache-miss path to materialise: the system database keeps every user
// fully resident in sys.Users from the moment it is opened, so there is
// nothing to lazily load from disk.
func (inst *Instance) FindUser(name string) (*catalog.UserRecord, error) {
	rec, ok := inst.sys.Users.FindByName(name)
	if !ok {
		return nil, fmt.Errorf("instance: user %q does not exist", name)
	}
	return rec, nil
}

// FindUserByID looks a user up by id, the form a session's stored user id
// is checked against on every subsequent request.
func (inst *Instance) FindUserByID(id types.UserID) (*catalog.UserRecord, error) {
	rec, ok := inst.sys.Users.Get(id)
	if !ok {
		return nil, fmt.Errorf("instance: user id %d does not exist", id)
	}
	return rec, nil
}

// tokenActive reports whether a token has not yet expired.
func tokenActive(rec *catalog.UserTokenRecord) bool {
	return rec.ExpirationTimestamp == nil || *rec.ExpirationTimestamp > time.Now().Unix()
}

// activeCredentialCount counts userID's active access keys plus its
// unexpired tokens, the pool AddUserAccessKey/AddUserToken's own new
// record first joins and DropUserAccessKey/DropUserToken's "at least one
// must remain" check is measured against.
func (inst *Instance) activeCredentialCount(userID types.UserID) int {
	count := 0
	for _, rec := range inst.sys.AccessKeys.ForUser(userID) {
		if rec.Active {
			count++
		}
	}
	for _, rec := range inst.sys.Tokens.ForUser(userID) {
		if tokenActive(rec) {
			count++
		}
	}
	return count
}

// AddUserAccessKey creates a new, active access key for userID. name must
// be unique among userID's own keys.
func (inst *Instance) AddUserAccessKey(userID types.UserID, name, text string, description *string) (catalog.UserAccessKeyRecord, error) {
	if _, err := inst.FindUserByID(userID); err != nil {
		return catalog.UserAccessKeyRecord{}, err
	}

	inst.credMu.Lock()
	defer inst.credMu.Unlock()

	if _, exists := inst.sys.AccessKeys.FindByUserAndName(userID, name); exists {
		return catalog.UserAccessKeyRecord{}, fmt.Errorf("instance: user %d already has an access key named %q", userID, name)
	}

	table, err := inst.sys.Table(sysdb.UserAccessKeysTableID)
	if err != nil {
		return catalog.UserAccessKeyRecord{}, err
	}

	rec := catalog.UserAccessKeyRecord{
		ID:          inst.nextAccessKeyID,
		UserID:      userID,
		Name:        name,
		Text:        text,
		Description: description,
		Active:      true,
	}
	if err := table.InsertAt(types.TRID(rec.ID), rec.Marshal(nil)); err != nil {
		return catalog.UserAccessKeyRecord{}, fmt.Errorf("instance: write access key row: %w", err)
	}
	inst.sys.AccessKeys.Put(rec)
	inst.nextAccessKeyID++
	return rec, nil
}

// DropUserAccessKey removes one of userID's access keys by name. Removing
// the last active credential (access key or token) a user holds is
// rejected unless force is set — this is how an operator zeros out the
// super-user's own access keys, since spec.md forbids dropping or fully
// deactivating the super-user record itself but not its individual keys.
func (inst *Instance) DropUserAccessKey(userID types.UserID, name string, force bool) error {
	inst.credMu.Lock()
	defer inst.credMu.Unlock()

	rec, ok := inst.sys.AccessKeys.FindByUserAndName(userID, name)
	if !ok {
		return fmt.Errorf("instance: user %d has no access key named %q", userID, name)
	}

	if rec.Active && !force && inst.activeCredentialCount(userID) <= 1 {
		return fmt.Errorf("instance: dropping access key %q would leave user %d with no active credentials; pass force to override", name, userID)
	}

	table, err := inst.sys.Table(sysdb.UserAccessKeysTableID)
	if err != nil {
		return err
	}
	if err := table.Delete(types.TRID(rec.ID)); err != nil {
		return fmt.Errorf("instance: delete access key row: %w", err)
	}
	inst.sys.AccessKeys.Delete(rec.ID)
	return nil
}

// SetUserAccessKeyActive flips one of userID's access keys between active
// and inactive. Deactivating the last active credential a user holds is
// rejected unless force is set, the same invariant DropUserAccessKey
// enforces.
func (inst *Instance) SetUserAccessKeyActive(userID types.UserID, name string, active, force bool) error {
	inst.credMu.Lock()
	defer inst.credMu.Unlock()

	rec, ok := inst.sys.AccessKeys.FindByUserAndName(userID, name)
	if !ok {
		return fmt.Errorf("instance: user %d has no access key named %q", userID, name)
	}
	if rec.Active == active {
		return nil
	}
	if rec.Active && !active && !force && inst.activeCredentialCount(userID) <= 1 {
		return fmt.Errorf("instance: deactivating access key %q would leave user %d with no active credentials; pass force to override", name, userID)
	}

	table, err := inst.sys.Table(sysdb.UserAccessKeysTableID)
	if err != nil {
		return err
	}
	updated := *rec
	updated.Active = active
	if err := table.Delete(types.TRID(updated.ID)); err != nil {
		return fmt.Errorf("instance: clear previous access key row: %w", err)
	}
	if err := table.InsertAt(types.TRID(updated.ID), updated.Marshal(nil)); err != nil {
		return fmt.Errorf("instance: write updated access key row: %w", err)
	}
	inst.sys.AccessKeys.Put(updated)
	return nil
}

// AddUserToken creates a new token for userID. Only its SHA-256 hash is
// persisted, mirroring UserTokenRecord's original m_value field never
// holding the raw token text; the caller is responsible for handing
// rawToken to the user exactly once, since it can never be recovered.
func (inst *Instance) AddUserToken(userID types.UserID, name, rawToken string, expiration *int64, description *string) (catalog.UserTokenRecord, error) {
	if _, err := inst.FindUserByID(userID); err != nil {
		return catalog.UserTokenRecord{}, err
	}

	inst.credMu.Lock()
	defer inst.credMu.Unlock()

	if _, exists := inst.sys.Tokens.FindByUserAndName(userID, name); exists {
		return catalog.UserTokenRecord{}, fmt.Errorf("instance: user %d already has a token named %q", userID, name)
	}

	table, err := inst.sys.Table(sysdb.UserTokensTableID)
	if err != nil {
		return catalog.UserTokenRecord{}, err
	}

	sum := sha256.Sum256([]byte(rawToken))
	rec := catalog.UserTokenRecord{
		ID:                  inst.nextTokenID,
		UserID:              userID,
		Name:                name,
		Value:               sum[:],
		ExpirationTimestamp: expiration,
		Description:         description,
	}
	if err := table.InsertAt(types.TRID(rec.ID), rec.Marshal(nil)); err != nil {
		return catalog.UserTokenRecord{}, fmt.Errorf("instance: write token row: %w", err)
	}
	inst.sys.Tokens.Put(rec)
	inst.nextTokenID++
	return rec, nil
}

// DropUserToken removes one of userID's tokens by name, subject to the
// same "at least one active credential remains" invariant
// DropUserAccessKey enforces.
func (inst *Instance) DropUserToken(userID types.UserID, name string, force bool) error {
	inst.credMu.Lock()
	defer inst.credMu.Unlock()

	rec, ok := inst.sys.Tokens.FindByUserAndName(userID, name)
	if !ok {
		return fmt.Errorf("instance: user %d has no token named %q", userID, name)
	}

	if tokenActive(rec) && !force && inst.activeCredentialCount(userID) <= 1 {
		return fmt.Errorf("instance: dropping token %q would leave user %d with no active credentials; pass force to override", name, userID)
	}

	table, err := inst.sys.Table(sysdb.UserTokensTableID)
	if err != nil {
		return err
	}
	if err := table.Delete(types.TRID(rec.ID)); err != nil {
		return fmt.Errorf("instance: delete token row: %w", err)
	}
	inst.sys.Tokens.Delete(rec.ID)
	return nil
}
