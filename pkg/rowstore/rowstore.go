// Package rowstore ties the block store and the main index together into
// the minimal row-level primitive the catalog and the system database need:
// append an opaque, length-prefixed payload and get back a TRID, look a
// TRID back up, walk TRIDs in order, and erase one. It does not know
// anything about column shapes or row encoding; callers (pkg/sysdb,
// pkg/dbengine) are responsible for turning a row into bytes and back.
package rowstore

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/siodb/siodb/pkg/blockstore"
	siocipher "github.com/siodb/siodb/pkg/cipher"
	"github.com/siodb/siodb/pkg/mainindex"
	"github.com/siodb/siodb/pkg/metrics"
	"github.com/siodb/siodb/pkg/types"
)

// lengthPrefixSize is the fixed-width row-length prefix written ahead of
// every row payload, so a row can be read back knowing only its starting
// offset.
const lengthPrefixSize = 4

// Table is a single table's master column: a chain of data blocks holding
// length-prefixed row payloads, and a main index mapping TRID to the
// (block, offset) each row's prefix starts at.
type Table struct {
	registry     *blockstore.Registry
	index        mainindex.Index
	nextUserTRID uint64
}

// OpenParams configures a Table backed by one column directory and one
// main index.
type OpenParams struct {
	Dir           string
	DatabaseUUID  uuid.UUID
	TableID       types.TableID
	ColumnID      types.ColumnID
	DataAreaSize  uint32
	Mode          os.FileMode
	Cipher        *siocipher.Context
	Index         mainindex.Index
	FirstUserTRID uint64
}

// Open builds a Table over an existing or brand-new column directory.
// The next TRID an Insert hands out resumes after the highest key
// already in the index, so reopening a table with existing rows never
// reassigns one; FirstUserTRID only matters the first time a table is
// opened, when the index is still empty.
func Open(p OpenParams) (*Table, error) {
	registry, err := blockstore.NewRegistry(blockstore.RegistryParams{
		Dir:          p.Dir,
		DatabaseUUID: p.DatabaseUUID,
		TableID:      p.TableID,
		ColumnID:     p.ColumnID,
		DataAreaSize: p.DataAreaSize,
		Mode:         p.Mode,
		Cipher:       p.Cipher,
	})
	if err != nil {
		return nil, fmt.Errorf("rowstore: %w", err)
	}

	next := p.FirstUserTRID
	if maxKey, ok, err := p.Index.MaxKey(); err != nil {
		return nil, fmt.Errorf("rowstore: %w", err)
	} else if ok && uint64(maxKey)+1 > next {
		next = uint64(maxKey) + 1
	}

	return &Table{registry: registry, index: p.Index, nextUserTRID: next}, nil
}

// Insert appends payload as a new row and returns the TRID it was stored
// under.
func (t *Table) Insert(payload []byte) (types.TRID, error) {
	trid := types.TRID(t.nextUserTRID)
	if err := t.InsertAt(trid, payload); err != nil {
		return 0, err
	}
	t.nextUserTRID++
	return trid, nil
}

// InsertAt stores payload under an explicit TRID, used for system-range
// rows whose ids are fixed by the bootstrap sequence rather than
// allocated from the user range.
func (t *Table) InsertAt(trid types.TRID, payload []byte) error {
	framed := make([]byte, lengthPrefixSize+len(payload))
	binary.LittleEndian.PutUint32(framed, uint32(len(payload)))
	copy(framed[lengthPrefixSize:], payload)

	block, err := t.registry.SelectAvailableBlock(uint32(len(framed)))
	if err != nil {
		return fmt.Errorf("rowstore: select block for trid %d: %w", trid, err)
	}
	offset := block.NextDataOffset()
	if err := block.Append(framed); err != nil {
		return fmt.Errorf("rowstore: append trid %d: %w", trid, err)
	}
	t.registry.UpdateAvailableBlock(block)

	addr := mainindex.Address{BlockID: block.ID(), Offset: offset}
	if err := t.index.Put(trid, addr); err != nil {
		return fmt.Errorf("rowstore: index trid %d: %w", trid, err)
	}
	return nil
}

// Get reads the row stored under trid, if any.
func (t *Table) Get(trid types.TRID) ([]byte, bool, error) {
	addr, ok, err := t.index.Find(trid)
	if err != nil {
		metrics.MainIndexLookupsTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("rowstore: find trid %d: %w", trid, err)
	}
	if !ok {
		metrics.MainIndexLookupsTotal.WithLabelValues("not_found").Inc()
		return nil, false, nil
	}
	if addr == (mainindex.Address{}) {
		// A preallocated key has no row behind it yet; block ids start at 1.
		metrics.MainIndexLookupsTotal.WithLabelValues("not_found").Inc()
		return nil, false, nil
	}
	metrics.MainIndexLookupsTotal.WithLabelValues("found").Inc()
	return t.readAt(addr)
}

func (t *Table) readAt(addr mainindex.Address) ([]byte, bool, error) {
	block, err := t.registry.FindExistingBlock(addr.BlockID)
	if err != nil {
		return nil, false, fmt.Errorf("rowstore: load block %d: %w", addr.BlockID, err)
	}
	prefix := make([]byte, lengthPrefixSize)
	if err := block.ReadData(prefix, addr.Offset); err != nil {
		return nil, false, fmt.Errorf("rowstore: read length at block %d offset %d: %w", addr.BlockID, addr.Offset, err)
	}
	length := binary.LittleEndian.Uint32(prefix)
	payload := make([]byte, length)
	if err := block.ReadData(payload, addr.Offset+lengthPrefixSize); err != nil {
		return nil, false, fmt.Errorf("rowstore: read payload at block %d offset %d: %w", addr.BlockID, addr.Offset, err)
	}
	return payload, true, nil
}

// Delete removes trid's main index entry. The row bytes themselves are
// left in place; nothing in this implementation reclaims block space
// (compaction is out of scope, mirroring the original engine).
func (t *Table) Delete(trid types.TRID) error {
	return t.index.Erase(trid)
}

// Scan walks every row from the lowest key onward, calling fn with each
// (trid, payload) pair. fn returning false stops the scan early.
func (t *Table) Scan(fn func(types.TRID, []byte) (bool, error)) error {
	trid, ok, err := t.index.MinKey()
	if err != nil {
		return fmt.Errorf("rowstore: scan MinKey: %w", err)
	}
	for ok {
		payload, found, err := t.Get(trid)
		if err != nil {
			return err
		}
		if found {
			cont, err := fn(trid, payload)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		trid, ok, err = t.index.FindNextKey(trid)
		if err != nil {
			return fmt.Errorf("rowstore: scan FindNextKey: %w", err)
		}
	}
	return nil
}

// MaxTRID returns the table's highest currently-stored TRID.
func (t *Table) MaxTRID() (types.TRID, bool, error) {
	return t.index.MaxKey()
}

// Preallocate reserves trid in the main index without a row behind it yet,
// used to skip a TRID the bootstrap sequence must reserve but not fill.
func (t *Table) Preallocate(trid types.TRID) error {
	return t.index.Preallocate(trid)
}

// Close does nothing and returns nil: open block handles stay in the
// registry's block cache, and the main index belongs to whoever passed it
// to Open.
func (t *Table) Close() error {
	return nil
}
