package iofile

import (
	"fmt"
	"os"
)

// Open opens an existing file for synchronous random-access read/write, the
// mode every block and catalog key file is reopened in after instance
// restart.
func Open(path string) (*NormalFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|dsyncFlag, 0)
	if err != nil {
		return nil, fmt.Errorf("iofile: open %s: %w", path, err)
	}
	return NewNormalFile(f), nil
}
