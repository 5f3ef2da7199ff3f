//go:build linux

package iofile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// PendingFile is a file created by CreateAndPublish that has not yet been
// given its final name. Write the header and any preallocated content, then
// call Publish to atomically give it its permanent path.
type PendingFile struct {
	*NormalFile
	named   bool
	tmpPath string
}

// CreateAndPublish creates a new file of the given size in dir, preferring
// an unnamed O_TMPFILE so the file has no path until Publish links it in.
// If the filesystem backing dir doesn't support O_TMPFILE (ENOTSUP), it
// falls back to a named "<finalPath>.tmp" file that Publish renames into
// place instead.
func CreateAndPublish(dir, finalPath string, mode os.FileMode, size int64) (*PendingFile, error) {
	fd, err := unix.Open(dir, unix.O_TMPFILE|unix.O_RDWR|unix.O_DSYNC, uint32(mode))
	if err == nil {
		f := os.NewFile(uintptr(fd), finalPath)
		if truncErr := f.Truncate(size); truncErr != nil {
			f.Close()
			return nil, fmt.Errorf("iofile: truncate temp file: %w", truncErr)
		}
		return &PendingFile{NormalFile: NewNormalFile(f)}, nil
	}
	if err != unix.ENOTSUP {
		return nil, fmt.Errorf("iofile: create O_TMPFILE in %s: %w", dir, err)
	}

	// O_TMPFILE unsupported on this filesystem, fall back to a named
	// temporary file that gets renamed into place on Publish.
	tmpPath := finalPath + ".tmp"
	f, openErr := os.OpenFile(tmpPath, os.O_CREATE|os.O_RDWR|unix.O_DSYNC, mode)
	if openErr != nil {
		return nil, fmt.Errorf("iofile: create named temp file %s: %w", tmpPath, openErr)
	}
	if truncErr := f.Truncate(size); truncErr != nil {
		f.Close()
		return nil, fmt.Errorf("iofile: truncate temp file: %w", truncErr)
	}
	return &PendingFile{NormalFile: NewNormalFile(f), named: true, tmpPath: tmpPath}, nil
}

// Publish atomically gives the pending file its final path: linkat from
// /proc/self/fd for an O_TMPFILE-backed file, or a plain rename for the
// named-temp-file fallback.
func (p *PendingFile) Publish(finalPath string) error {
	if !p.named {
		fdPath := fmt.Sprintf("/proc/self/fd/%d", p.Fd())
		if err := unix.Linkat(unix.AT_FDCWD, fdPath, unix.AT_FDCWD, finalPath, unix.AT_SYMLINK_FOLLOW); err != nil {
			return fmt.Errorf("iofile: link temp file to %s: %w", finalPath, err)
		}
		return nil
	}
	if err := os.Rename(p.tmpPath, finalPath); err != nil {
		return fmt.Errorf("iofile: rename %s to %s: %w", p.tmpPath, finalPath, err)
	}
	return nil
}
