package blockstore

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	siocipher "github.com/siodb/siodb/pkg/cipher"
	"github.com/siodb/siodb/pkg/metrics"
	"github.com/siodb/siodb/pkg/types"
)

const blockFilePrefix = "b"
const blockFileExtension = ".siodf"

// defaultBlockCacheSize bounds how many open *Block handles a Registry keeps
// warm; the rest are closed and reopened from disk on demand.
const defaultBlockCacheSize = 64

// Registry tracks a single column's data blocks: which ones exist, which
// ones still have free space to append into, and an open-block cache, so
// that mutators never have to rescan the column's directory to find
// somewhere to write.
type Registry struct {
	dir          string
	databaseUUID uuid.UUID
	tableID      types.TableID
	columnID     types.ColumnID
	dataAreaSize uint32
	mode         os.FileMode
	cipher       *siocipher.Context

	mu        sync.Mutex
	cache     *lru.Cache[uint64, *Block]
	available map[uint64]uint32
	prevOf    map[uint64]uint64
	nextOf    map[uint64][]uint64

	nextBlockID atomic.Uint64
}

// RegistryParams configures a new Registry.
type RegistryParams struct {
	Dir          string
	DatabaseUUID uuid.UUID
	TableID      types.TableID
	ColumnID     types.ColumnID
	DataAreaSize uint32
	Mode         os.FileMode
	Cipher       *siocipher.Context
	CacheSize    int // 0 uses defaultBlockCacheSize
}

// NewRegistry builds a Registry for an existing or brand-new column
// directory. It does not scan for existing blocks; callers restoring a
// column after restart should follow up with FindFirstBlock and LoadBlock.
func NewRegistry(p RegistryParams) (*Registry, error) {
	cacheSize := p.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultBlockCacheSize
	}
	cache, err := lru.New[uint64, *Block](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("blockstore: new block cache: %w", err)
	}
	return &Registry{
		dir:          p.Dir,
		databaseUUID: p.DatabaseUUID,
		tableID:      p.TableID,
		columnID:     p.ColumnID,
		dataAreaSize: p.DataAreaSize,
		mode:         p.Mode,
		cipher:       p.Cipher,
		cache:        cache,
		available:    make(map[uint64]uint32),
		prevOf:       make(map[uint64]uint64),
		nextOf:       make(map[uint64][]uint64),
	}, nil
}

// SeedNextBlockID tells the registry what block id to hand out next,
// restoring the allocator's position after an instance restart.
func (r *Registry) SeedNextBlockID(id uint64) {
	r.nextBlockID.Store(id)
}

func (r *Registry) allocateBlockID() uint64 {
	return r.nextBlockID.Add(1)
}

// CreateBlock creates a new block chained after prevBlockID (0 for a
// column's first block) and records it as available with its full free
// space.
func (r *Registry) CreateBlock(prevBlockID uint64, state types.ColumnDataBlockState) (*Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.createBlockLocked(prevBlockID, state)
	if err != nil {
		return nil, err
	}
	r.available[b.ID()] = b.FreeDataSpace()
	return b, nil
}

func (r *Registry) createBlockLocked(prevBlockID uint64, state types.ColumnDataBlockState) (*Block, error) {
	id := r.allocateBlockID()
	b, err := Create(r.dir, CreateParams{
		DatabaseUUID: r.databaseUUID,
		TableID:      r.tableID,
		ColumnID:     r.columnID,
		BlockID:      id,
		PrevBlockID:  prevBlockID,
		DataAreaSize: r.dataAreaSize,
		Mode:         r.mode,
		Cipher:       r.cipher,
	})
	if err != nil {
		return nil, err
	}
	b.SetState(state)
	r.cache.Add(id, b)
	r.prevOf[id] = prevBlockID
	r.nextOf[prevBlockID] = append(r.nextOf[prevBlockID], id)

	metrics.BlocksCreatedTotal.WithLabelValues(r.databaseUUID.String(), strconv.Itoa(int(r.tableID))).Inc()
	return b, nil
}

// LoadBlock returns the block identified by blockID, reusing a cached open
// handle where possible.
func (r *Registry) LoadBlock(blockID uint64) (*Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadBlockLocked(blockID)
}

func (r *Registry) loadBlockLocked(blockID uint64) (*Block, error) {
	if b, ok := r.cache.Get(blockID); ok {
		metrics.BlockCacheHitsTotal.Inc()
		return b, nil
	}
	metrics.BlockCacheMissesTotal.Inc()

	b, err := Open(r.dir, OpenParams{
		DatabaseUUID: r.databaseUUID,
		TableID:      r.tableID,
		ColumnID:     r.columnID,
		BlockID:      blockID,
		PrevBlockID:  r.prevOf[blockID],
		DataAreaSize: r.dataAreaSize,
		Cipher:       r.cipher,
	})
	if err != nil {
		return nil, err
	}
	r.cache.Add(blockID, b)
	return b, nil
}

// FindExistingBlock loads blockID and fails if it does not exist.
func (r *Registry) FindExistingBlock(blockID uint64) (*Block, error) {
	b, err := r.LoadBlock(blockID)
	if err != nil {
		return nil, fmt.Errorf("blockstore: block %d does not exist: %w", blockID, err)
	}
	return b, nil
}

// FindPrevBlockID returns the recorded predecessor of blockID, or 0 if
// blockID is a column's first block or is unknown to this registry.
func (r *Registry) FindPrevBlockID(blockID uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prevOf[blockID]
}

// UpdateAvailableBlock records block's current free space in the available
// set, so that a later SelectAvailableBlock call can find it.
func (r *Registry) UpdateAvailableBlock(b *Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.available[b.ID()] = b.FreeDataSpace()
}

func (r *Registry) forgetAvailableLocked(blockID uint64) {
	delete(r.available, blockID)
}

// SelectAvailableBlock returns a block with at least requiredLength free
// bytes in its data area, creating a fresh chain link if none of the
// currently-available blocks has room. This mirrors the column-level
// block-selection policy: prefer an existing block with enough free space,
// otherwise extend the chain from whichever available block has the least
// free space.
func (r *Registry) SelectAvailableBlock(requiredLength uint32) (*Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.available) == 0 {
		b, err := r.createBlockLocked(0, types.ColumnDataBlockStateCurrent)
		if err != nil {
			return nil, err
		}
		r.available[b.ID()] = b.FreeDataSpace()
		return b, nil
	}

	var minID uint64
	var minFree uint32 = ^uint32(0)
	for id, free := range r.available {
		if free >= requiredLength {
			return r.loadBlockLocked(id)
		}
		if free < minFree {
			minFree, minID = free, id
		}
	}

	block, err := r.loadBlockLocked(minID)
	if err != nil {
		return nil, err
	}
	r.forgetAvailableLocked(minID)
	return r.createOrGetNextBlockLocked(block, requiredLength)
}

func (r *Registry) createOrGetNextBlockLocked(block *Block, requiredFreeSpace uint32) (*Block, error) {
	if requiredFreeSpace == 0 {
		return nil, fmt.Errorf("blockstore: requiredFreeSpace is zero")
	}
	if requiredFreeSpace > r.dataAreaSize {
		return nil, fmt.Errorf("blockstore: requiredFreeSpace %d exceeds data area size %d", requiredFreeSpace, r.dataAreaSize)
	}

	var next *Block
	nextIDs := r.nextOf[block.ID()]
	for i := len(nextIDs) - 1; i >= 0; i-- {
		candidate, err := r.loadBlockLocked(nextIDs[i])
		if err != nil {
			return nil, fmt.Errorf("blockstore: next block %d does not exist: %w", nextIDs[i], err)
		}
		state := candidate.State()
		if (state == types.ColumnDataBlockStateCurrent || state == types.ColumnDataBlockStateAvailable) &&
			candidate.FreeDataSpace() >= requiredFreeSpace {
			next = candidate
			break
		}
	}

	if next == nil {
		created, err := r.createBlockLocked(block.ID(), types.ColumnDataBlockStateCurrent)
		if err != nil {
			return nil, err
		}
		next = created
	}

	prevDigest := GenesisDigest
	if prevID := block.PrevBlockID(); prevID != 0 {
		prevBlock, ok := r.cache.Get(prevID)
		if !ok {
			return nil, fmt.Errorf("blockstore: previous block %d not available", prevID)
		}
		prevDigest = prevBlock.Digest()
	}

	if err := block.Finalize(prevDigest); err != nil {
		metrics.BlockDigestFailuresTotal.Inc()
		return nil, err
	}
	metrics.BlocksFinalizedTotal.WithLabelValues(r.databaseUUID.String(), strconv.Itoa(int(r.tableID))).Inc()
	r.forgetAvailableLocked(block.ID())
	r.available[next.ID()] = next.FreeDataSpace()
	return next, nil
}

// FindFirstBlock scans the column directory for block files and returns the
// smallest block id found, or 0 if the column has no blocks yet. This is
// used to rebuild a column's in-memory chain after an instance restart,
// before the catalog's persisted registry is consulted.
func (r *Registry) FindFirstBlock() (uint64, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, fmt.Errorf("blockstore: read column directory %s: %w", r.dir, err)
	}

	var ids []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, blockFilePrefix) || !strings.HasSuffix(name, blockFileExtension) {
			continue
		}
		idStr := strings.TrimSuffix(strings.TrimPrefix(name, blockFilePrefix), blockFileExtension)
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids[0], nil
}
