package sysdb

import (
	"fmt"

	"github.com/siodb/siodb/pkg/catalog"
	"github.com/siodb/siodb/pkg/rowstore"
	"github.com/siodb/siodb/pkg/types"
)

// eachOrdinaryRow walks table from its lowest ordinary TRID (skipping the
// self-describing schema row at TRID 0) upward, handing each row's bytes
// to decode. decode must report how many bytes it consumed; a mismatch
// against the row's stored length is treated as catalog corruption,
// mirroring the original per-record column-count validation.
func eachOrdinaryRow(table *rowstore.Table, decode func([]byte) (int, error)) error {
	return table.Scan(func(trid types.TRID, payload []byte) (bool, error) {
		if trid < firstOrdinaryTRID {
			return true, nil
		}
		n, err := decode(payload)
		if err != nil {
			return false, fmt.Errorf("sysdb: decode row trid=%d: %w", trid, err)
		}
		if n != len(payload) {
			return false, fmt.Errorf("sysdb: row trid=%d: decoded %d bytes, row is %d bytes", trid, n, len(payload))
		}
		return true, nil
	})
}

func (s *SystemDatabase) readAllUsers() error {
	return eachOrdinaryRow(s.tables[UsersTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeUserRecord(buf)
		if err != nil {
			return 0, err
		}
		s.Users.Put(rec)
		return n, nil
	})
}

func (s *SystemDatabase) readAllUserAccessKeys() error {
	return eachOrdinaryRow(s.tables[UserAccessKeysTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeUserAccessKeyRecord(buf)
		if err != nil {
			return 0, err
		}
		s.AccessKeys.Put(rec)
		return n, nil
	})
}

func (s *SystemDatabase) readAllUserTokens() error {
	return eachOrdinaryRow(s.tables[UserTokensTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeUserTokenRecord(buf)
		if err != nil {
			return 0, err
		}
		s.Tokens.Put(rec)
		return n, nil
	})
}

func (s *SystemDatabase) readAllDatabases() error {
	return eachOrdinaryRow(s.tables[DatabasesTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeDatabaseRecord(buf)
		if err != nil {
			return 0, err
		}
		s.Databases.Put(rec)
		return n, nil
	})
}

func (s *SystemDatabase) readAllUserPermissions() error {
	return eachOrdinaryRow(s.tables[UserPermissionsTableID], func(buf []byte) (int, error) {
		rec, n, err := catalog.DecodeUserPermissionRecord(buf)
		if err != nil {
			return 0, err
		}
		s.UserPermissions.Put(rec)
		return n, nil
	})
}
