package iofile

import "os"

// NormalFile is the direct-syscall File implementation: a thin wrapper over
// *os.File with no transformation of the bytes passed through it.
type NormalFile struct {
	f *os.File
}

// NewNormalFile wraps an already-open *os.File.
func NewNormalFile(f *os.File) *NormalFile {
	return &NormalFile{f: f}
}

func (n *NormalFile) ReadAt(buf []byte, off int64) (int, error) {
	return n.f.ReadAt(buf, off)
}

func (n *NormalFile) WriteAt(buf []byte, off int64) (int, error) {
	return n.f.WriteAt(buf, off)
}

// Flush syncs file contents and metadata to stable storage.
func (n *NormalFile) Flush() error {
	return n.f.Sync()
}

func (n *NormalFile) Close() error {
	return n.f.Close()
}

// Fd exposes the underlying descriptor, needed by PendingFile.Publish's
// /proc/self/fd linkat trick.
func (n *NormalFile) Fd() uintptr {
	return n.f.Fd()
}
