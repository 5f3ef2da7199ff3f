package blockstore

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	siocipher "github.com/siodb/siodb/pkg/cipher"
	"github.com/siodb/siodb/pkg/iofile"
	"github.com/siodb/siodb/pkg/types"
)

// FileName returns the on-disk file name for a block within its column
// directory, e.g. "b17.siodf".
func FileName(blockID uint64) string {
	return fmt.Sprintf("b%d.siodf", blockID)
}

// CreateParams describes a new block to create.
type CreateParams struct {
	DatabaseUUID uuid.UUID
	TableID      types.TableID
	ColumnID     types.ColumnID
	BlockID      uint64
	PrevBlockID  uint64
	DataAreaSize uint32
	Mode         os.FileMode
	Cipher       *siocipher.Context // nil is equivalent to the "none" cipher
}

// Block is an open column data block: a header area plus a data area,
// backed by a normal or encrypted iofile.File chosen once at open time.
type Block struct {
	header         Header
	file           iofile.File
	prevBlockID    uint64
	state          types.ColumnDataBlockState
	dataAreaSize   uint32
	path           string
	headerModified bool
	dataModified   bool
}

func dataFileSize(dataAreaSize uint32) int64 {
	return int64(HeaderAreaSize) + int64(dataAreaSize)
}

func wrap(f iofile.File, ctx *siocipher.Context) iofile.File {
	if ctx == nil || ctx.Descriptor().ID == siocipher.None.ID {
		return f
	}
	return iofile.NewEncryptedFile(f, ctx)
}

// Create creates a new block's data file in dir, in state Creating, and
// publishes it atomically. Attempting to create a block whose file already
// exists fails: Create checks for the file before publishing a fresh one.
func Create(dir string, p CreateParams) (*Block, error) {
	path := filepath.Join(dir, FileName(p.BlockID))
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("blockstore: block file %s already exists", path)
	}

	pending, err := iofile.CreateAndPublish(dir, path, p.Mode, dataFileSize(p.DataAreaSize))
	if err != nil {
		return nil, fmt.Errorf("blockstore: create block file %s: %w", path, err)
	}

	header := Header{
		DatabaseUUID: p.DatabaseUUID,
		TableID:      p.TableID,
		ColumnID:     p.ColumnID,
		BlockID:      p.BlockID,
		Version:      CurrentHeaderVersion,
	}

	f := wrap(pending, p.Cipher)
	if _, err := f.WriteAt(header.MarshalPadded(), 0); err != nil {
		pending.Close()
		return nil, fmt.Errorf("blockstore: write header for %s: %w", path, err)
	}

	if err := pending.Publish(path); err != nil {
		pending.Close()
		return nil, fmt.Errorf("blockstore: publish %s: %w", path, err)
	}

	return &Block{
		header:       header,
		file:         f,
		prevBlockID:  p.PrevBlockID,
		state:        types.ColumnDataBlockStateCreating,
		dataAreaSize: p.DataAreaSize,
		path:         path,
	}, nil
}

// OpenParams describes the identity an existing block is expected to have;
// Open fails loudly if the on-disk header disagrees.
type OpenParams struct {
	DatabaseUUID uuid.UUID
	TableID      types.TableID
	ColumnID     types.ColumnID
	BlockID      uint64
	PrevBlockID  uint64
	DataAreaSize uint32
	Cipher       *siocipher.Context
}

// Open opens an existing block's data file in dir and validates its
// header against the expected identity.
func Open(dir string, p OpenParams) (*Block, error) {
	path := filepath.Join(dir, FileName(p.BlockID))

	nf, err := iofile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("blockstore: open block file %s: %w", path, err)
	}

	f := wrap(nf, p.Cipher)

	buf := make([]byte, HeaderAreaSize)
	n, err := f.ReadAt(buf, 0)
	if err != nil {
		nf.Close()
		return nil, fmt.Errorf("blockstore: read header of %s: %w", path, err)
	}
	if n == 0 {
		nf.Close()
		return nil, fmt.Errorf("blockstore: %s: empty header area", path)
	}

	header, err := UnmarshalHeader(buf)
	if err != nil {
		nf.Close()
		return nil, fmt.Errorf("blockstore: %s: %w", path, err)
	}

	expected := Header{
		DatabaseUUID: p.DatabaseUUID,
		TableID:      p.TableID,
		ColumnID:     p.ColumnID,
		BlockID:      p.BlockID,
	}
	if header.Version > CurrentHeaderVersion || !sameIdentity(header, expected) {
		nf.Close()
		return nil, fmt.Errorf("blockstore: %s: invalid header (version %d, identity mismatch)", path, header.Version)
	}

	return &Block{
		header:       header,
		file:         f,
		prevBlockID:  p.PrevBlockID,
		state:        types.ColumnDataBlockStateCreating,
		dataAreaSize: p.DataAreaSize,
		path:         path,
	}, nil
}

func (b *Block) ID() uint64                               { return b.header.BlockID }
func (b *Block) PrevBlockID() uint64                       { return b.prevBlockID }
func (b *Block) State() types.ColumnDataBlockState         { return b.state }
func (b *Block) SetState(s types.ColumnDataBlockState)     { b.state = s }
func (b *Block) Digest() Digest                            { return b.header.Digest }
func (b *Block) Path() string                              { return b.path }
func (b *Block) IsModified() bool                          { return b.headerModified || b.dataModified }
func (b *Block) NextDataOffset() uint32                    { return b.header.NextDataOffset }
func (b *Block) FreeDataSpace() uint32                     { return b.dataAreaSize - b.header.NextDataOffset }

// ReadData reads length bytes at pos within the data area.
func (b *Block) ReadData(data []byte, pos uint32) error {
	if uint64(pos)+uint64(len(data)) > uint64(b.dataAreaSize) {
		return fmt.Errorf("blockstore: %s: invalid offset or length: %d, %d", b.path, pos, len(data))
	}
	_, err := b.file.ReadAt(data, int64(HeaderAreaSize)+int64(pos))
	if err != nil {
		return fmt.Errorf("blockstore: %s: read data: %w", b.path, err)
	}
	return nil
}

// WriteData writes data at pos within the data area; pos+len(data) must not
// exceed the data area size.
func (b *Block) WriteData(data []byte, pos uint32) error {
	if uint64(pos)+uint64(len(data)) > uint64(b.dataAreaSize) {
		return fmt.Errorf("blockstore: %s: invalid offset or length: %d, %d", b.path, pos, len(data))
	}
	if _, err := b.file.WriteAt(data, int64(HeaderAreaSize)+int64(pos)); err != nil {
		return fmt.Errorf("blockstore: %s: write data: %w", b.path, err)
	}
	b.dataModified = true
	return nil
}

// Append writes data at the block's current next-data-offset and advances
// it, the normal way a mutator fills a block.
func (b *Block) Append(data []byte) error {
	if err := b.WriteData(data, b.header.NextDataOffset); err != nil {
		return err
	}
	b.header.NextDataOffset += uint32(len(data))
	b.headerModified = true
	return nil
}

// SaveHeader persists the header area if it has been modified.
func (b *Block) SaveHeader() error {
	if !b.headerModified {
		return nil
	}
	if _, err := b.file.WriteAt(b.header.MarshalPadded(), 0); err != nil {
		return fmt.Errorf("blockstore: %s: write header: %w", b.path, err)
	}
	b.headerModified = false
	return nil
}

// ComputeDigest computes the digest this block would have if finalized now,
// per the recurrence digest_n = SHA256(digest_{n-1} || header identity
// fields || fill timestamp || data length || data[0:length]).
func (b *Block) ComputeDigest(prevDigest Digest, fillTimestamp int64) (Digest, error) {
	dataLength := b.header.NextDataOffset

	headerData := make([]byte, 0, 16+4+4+8+8+4)
	headerData = append(headerData, b.header.DatabaseUUID[:]...)
	headerData = binary.LittleEndian.AppendUint32(headerData, uint32(b.header.TableID))
	headerData = binary.LittleEndian.AppendUint32(headerData, uint32(b.header.ColumnID))
	headerData = binary.LittleEndian.AppendUint64(headerData, b.header.BlockID)
	headerData = binary.LittleEndian.AppendUint64(headerData, uint64(fillTimestamp))
	headerData = binary.LittleEndian.AppendUint32(headerData, dataLength)

	h := sha256.New()
	h.Write(prevDigest[:])
	h.Write(headerData)
	if dataLength > 0 {
		buf := make([]byte, dataLength)
		if err := b.ReadData(buf, 0); err != nil {
			return Digest{}, err
		}
		h.Write(buf)
	}

	var digest Digest
	copy(digest[:], h.Sum(nil))
	return digest, nil
}

// Finalize transitions the block current → closing → closed, computing and
// persisting its digest against prevDigest.
func (b *Block) Finalize(prevDigest Digest) error {
	b.state = types.ColumnDataBlockStateClosing

	now := nowFunc()
	digest, err := b.ComputeDigest(prevDigest, now)
	if err != nil {
		return err
	}

	b.header.FillTimestamp = now
	b.header.Digest = digest
	b.headerModified = true
	if err := b.SaveHeader(); err != nil {
		return err
	}

	b.state = types.ColumnDataBlockStateClosed
	return nil
}

// Flush persists the header if dirty and flushes the underlying file.
func (b *Block) Flush() error {
	modified := b.dataModified || b.headerModified
	if err := b.SaveHeader(); err != nil {
		return err
	}
	if modified {
		return b.file.Flush()
	}
	return nil
}

// Close flushes and releases the block's file handle.
func (b *Block) Close() error {
	if err := b.Flush(); err != nil {
		b.file.Close()
		return err
	}
	return b.file.Close()
}
