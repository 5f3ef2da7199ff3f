// Package cipher implements the key-schedule interface used by the storage
// core's normal/encrypted file abstraction: a small registry of built-in
// block ciphers plus independent encryption and decryption contexts derived
// from a key.
//
// Contexts apply the underlying block cipher to each fixed-size chunk of
// data independently, with no chaining between chunks. This is deliberate,
// not an oversight: both the per-database cipher-key envelope and the
// encrypted column file need to read or write an arbitrary block without
// touching its neighbours, which rules out any mode that carries state
// across blocks (CBC, CTR, GCM). The standard library's crypto/cipher
// package does not expose this mode directly — by design, since naive
// whole-message ECB leaks block-level repetition — so contexts drive
// cipher.Block.Encrypt/Decrypt per chunk directly.
package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"fmt"
)

// Descriptor describes a registered cipher by id and key/block size.
type Descriptor struct {
	ID            string
	KeySizeBits   int
	BlockSizeBits int
}

// KeySize returns the key size in bytes.
func (d Descriptor) KeySize() int { return d.KeySizeBits / 8 }

// BlockSize returns the block size in bytes.
func (d Descriptor) BlockSize() int { return d.BlockSizeBits / 8 }

// None is the null cipher: no encryption, no key, block size of one byte so
// it imposes no alignment requirement on callers.
var None = Descriptor{ID: "none", KeySizeBits: 0, BlockSizeBits: 8}

var builtin = map[string]Descriptor{
	"none":   None,
	"aes128": {ID: "aes128", KeySizeBits: 128, BlockSizeBits: 128},
	"aes192": {ID: "aes192", KeySizeBits: 192, BlockSizeBits: 128},
	"aes256": {ID: "aes256", KeySizeBits: 256, BlockSizeBits: 128},
}

// Lookup resolves a cipher id to its Descriptor.
func Lookup(id string) (Descriptor, error) {
	d, ok := builtin[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("cipher: unknown cipher id %q", id)
	}
	return d, nil
}

// Context is an encryption/decryption context bound to one key under one
// Descriptor. A Context is safe for concurrent use: it holds no mutable
// state beyond the immutable cipher.Block.
type Context struct {
	desc  Descriptor
	block stdcipher.Block
}

// NewContext derives encryption and decryption contexts from key. key must
// be exactly desc.KeySize() bytes, except for the None cipher which ignores
// key entirely.
func NewContext(desc Descriptor, key []byte) (*Context, error) {
	if desc.ID == None.ID {
		return &Context{desc: desc}, nil
	}
	if len(key) != desc.KeySize() {
		return nil, fmt.Errorf("cipher: key for %q must be %d bytes, got %d", desc.ID, desc.KeySize(), len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	return &Context{desc: desc, block: block}, nil
}

// Descriptor returns the Descriptor this context was derived under.
func (c *Context) Descriptor() Descriptor { return c.desc }

// BlockSize returns the cipher's block size in bytes.
func (c *Context) BlockSize() int { return c.desc.BlockSize() }

// Encrypt encrypts src into dst, one cipher block at a time. len(src) must
// be a multiple of BlockSize(); dst and src may overlap exactly like
// cipher.Block.Encrypt requires.
func (c *Context) Encrypt(dst, src []byte) error {
	if c.block == nil {
		copy(dst, src)
		return nil
	}
	bs := c.BlockSize()
	if len(src)%bs != 0 {
		return fmt.Errorf("cipher: input length %d is not a multiple of block size %d", len(src), bs)
	}
	for off := 0; off < len(src); off += bs {
		c.block.Encrypt(dst[off:off+bs], src[off:off+bs])
	}
	return nil
}

// Decrypt decrypts src into dst, one cipher block at a time. len(src) must
// be a multiple of BlockSize().
func (c *Context) Decrypt(dst, src []byte) error {
	if c.block == nil {
		copy(dst, src)
		return nil
	}
	bs := c.BlockSize()
	if len(src)%bs != 0 {
		return fmt.Errorf("cipher: input length %d is not a multiple of block size %d", len(src), bs)
	}
	for off := 0; off < len(src); off += bs {
		c.block.Decrypt(dst[off:off+bs], src[off:off+bs])
	}
	return nil
}
