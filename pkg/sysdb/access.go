package sysdb

import (
	"fmt"

	"github.com/siodb/siodb/pkg/rowstore"
	"github.com/siodb/siodb/pkg/types"
)

// Table returns the underlying row store for one of the five fixed
// system tables, for pkg/instance and pkg/permissions to insert, update,
// or delete rows through while keeping the in-memory registries
// (s.Users, s.Databases, ...) as the source of truth for lookups.
func (s *SystemDatabase) Table(id types.TableID) (*rowstore.Table, error) {
	t, ok := s.tables[id]
	if !ok {
		return nil, fmt.Errorf("sysdb: no such system table id %d", id)
	}
	return t, nil
}
