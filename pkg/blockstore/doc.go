// Package blockstore implements a column's on-disk data blocks: the fixed
// header area and digest-chained data area described by the on-disk block
// format, and the per-column registry that tracks which blocks exist, which
// ones still have room, and an open-block cache.
package blockstore
