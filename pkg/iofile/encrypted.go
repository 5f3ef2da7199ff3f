package iofile

import (
	"fmt"

	"github.com/siodb/siodb/pkg/cipher"
)

// EncryptedFile wraps a File and transparently applies a cipher.Context
// around every read and write, one cipher block at a time. Callers must
// align ReadAt/WriteAt offsets and lengths to the underlying cipher's block
// size; this mirrors the on-disk block layout, whose header and data areas
// are themselves sized in multiples of the configured cipher's block size.
type EncryptedFile struct {
	inner File
	ctx   *cipher.Context
}

// NewEncryptedFile returns a File that encrypts on write and decrypts on
// read using ctx, delegating storage to inner.
func NewEncryptedFile(inner File, ctx *cipher.Context) *EncryptedFile {
	return &EncryptedFile{inner: inner, ctx: ctx}
}

func (e *EncryptedFile) ReadAt(buf []byte, off int64) (int, error) {
	bs := e.ctx.BlockSize()
	if len(buf)%bs != 0 {
		return 0, fmt.Errorf("iofile: read length %d is not a multiple of cipher block size %d", len(buf), bs)
	}
	cipherText := make([]byte, len(buf))
	n, err := e.inner.ReadAt(cipherText, off)
	if err != nil {
		return n, err
	}
	if decErr := e.ctx.Decrypt(buf[:n], cipherText[:n]); decErr != nil {
		return 0, fmt.Errorf("iofile: decrypt at offset %d: %w", off, decErr)
	}
	return n, nil
}

func (e *EncryptedFile) WriteAt(buf []byte, off int64) (int, error) {
	bs := e.ctx.BlockSize()
	if len(buf)%bs != 0 {
		return 0, fmt.Errorf("iofile: write length %d is not a multiple of cipher block size %d", len(buf), bs)
	}
	cipherText := make([]byte, len(buf))
	if err := e.ctx.Encrypt(cipherText, buf); err != nil {
		return 0, fmt.Errorf("iofile: encrypt at offset %d: %w", off, err)
	}
	return e.inner.WriteAt(cipherText, off)
}

func (e *EncryptedFile) Flush() error { return e.inner.Flush() }
func (e *EncryptedFile) Close() error { return e.inner.Close() }
