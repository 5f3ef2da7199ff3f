package dbengine

import (
	"fmt"

	"github.com/siodb/siodb/pkg/rowstore"
	"github.com/siodb/siodb/pkg/types"
)

// CatalogTable returns the rowstore backing one of this database's own
// ten catalog tables, by its fixed id (sysTablesTableID and friends).
func (db *Database) CatalogTable(id types.TableID) (*rowstore.Table, error) {
	t, ok := db.catalogTables[id]
	if !ok {
		return nil, fmt.Errorf("dbengine: unknown catalog table id %d", id)
	}
	return t, nil
}
