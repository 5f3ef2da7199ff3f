//go:build !linux

package iofile

import (
	"fmt"
	"os"
)

// PendingFile is a file created by CreateAndPublish that has not yet been
// given its final name. Write the header and any preallocated content, then
// call Publish to atomically give it its permanent path.
type PendingFile struct {
	*NormalFile
	tmpPath string
}

// CreateAndPublish creates a new file of the given size in dir as a named
// "<finalPath>.tmp" file. Non-Linux platforms have no O_TMPFILE equivalent
// in this code base, so the named-temp-file-plus-rename path is the only
// one available here.
func CreateAndPublish(dir, finalPath string, mode os.FileMode, size int64) (*PendingFile, error) {
	tmpPath := finalPath + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_RDWR, mode)
	if err != nil {
		return nil, fmt.Errorf("iofile: create named temp file %s: %w", tmpPath, err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("iofile: truncate temp file: %w", err)
	}
	return &PendingFile{NormalFile: NewNormalFile(f), tmpPath: tmpPath}, nil
}

// Publish renames the temporary file into its final path.
func (p *PendingFile) Publish(finalPath string) error {
	if err := os.Rename(p.tmpPath, finalPath); err != nil {
		return fmt.Errorf("iofile: rename %s to %s: %w", p.tmpPath, finalPath, err)
	}
	return nil
}
