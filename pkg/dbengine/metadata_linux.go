//go:build linux

package dbengine

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mappedMetadataFile is a metadata file's header area, memory-mapped for
// the lifetime of the owning Database, the same way
// Database::openMetadataFile keeps its MemoryMappedFile alive for as
// long as the database is open.
type mappedMetadataFile struct {
	f    *os.File
	data []byte
}

func mapMetadataFile(f *os.File, size int) (*mappedMetadataFile, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("dbengine: mmap: %w", err)
	}
	return &mappedMetadataFile{f: f, data: data}, nil
}

func (m *mappedMetadataFile) bytes() []byte { return m.data }

func (m *mappedMetadataFile) close() error {
	err := unix.Munmap(m.data)
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
