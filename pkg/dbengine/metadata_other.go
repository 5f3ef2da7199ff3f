//go:build !linux

package dbengine

import "os"

// mappedMetadataFile falls back to a plain read on non-Linux builds;
// unix.Mmap has no portable equivalent the rest of this package's
// build-tag pairs (see pkg/iofile/create_other.go) reach for either.
type mappedMetadataFile struct {
	f    *os.File
	data []byte
}

func mapMetadataFile(f *os.File, size int) (*mappedMetadataFile, error) {
	data := make([]byte, size)
	if _, err := f.ReadAt(data, 0); err != nil {
		return nil, err
	}
	return &mappedMetadataFile{f: f, data: data}, nil
}

func (m *mappedMetadataFile) bytes() []byte { return m.data }

func (m *mappedMetadataFile) close() error { return m.f.Close() }
