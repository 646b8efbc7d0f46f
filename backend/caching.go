package backend

import (
	"context"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/omfile/internal/cache"
)

// DefaultBlockSize is the cache block granularity. Chunk reads against
// remote storage are coalesced to block boundaries, so nearby chunks hit
// the same cached block instead of issuing separate range requests.
const DefaultBlockSize = 64 * 1024

// Caching wraps a Backend with a block-aligned LRU cache. Cached blocks are
// held lz4-compressed, trading a cheap decompression on every hit for a
// larger effective capacity. The cache is a latency optimization only:
// reads behave identically with a cold, full, or disabled cache.
type Caching struct {
	inner     Backend
	cache     *cache.LRU
	blockSize uint64
	size      uint64
}

var _ Backend = (*Caching)(nil)

// NewCaching wraps inner with a block cache of capacity bytes
// (compressed). blockSize defaults to DefaultBlockSize if <= 0.
func NewCaching(inner Backend, capacity int64, blockSize int64) (*Caching, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	size, err := inner.Size()
	if err != nil {
		return nil, err
	}
	return &Caching{
		inner:     inner,
		cache:     cache.NewLRU(capacity),
		blockSize: uint64(blockSize),
		size:      size,
	}, nil
}

// ReadRange serves the request from cached blocks, fetching missing blocks
// from the inner backend.
func (c *Caching) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if offset > c.size || length > c.size-offset {
		return nil, fmt.Errorf("read %d bytes at %d beyond end of file (%d bytes)", length, offset, c.size)
	}

	out := make([]byte, length)
	firstBlock := offset / c.blockSize
	lastBlock := (offset + length - 1) / c.blockSize

	for blk := firstBlock; blk <= lastBlock; blk++ {
		blkStart := blk * c.blockSize
		blkEnd := min(blkStart+c.blockSize, c.size)

		block, err := c.fetchBlock(ctx, blk, blkStart, blkEnd-blkStart)
		if err != nil {
			return nil, err
		}

		// Intersection of the block with the requested range.
		from := max(blkStart, offset)
		to := min(blkEnd, offset+length)
		copy(out[from-offset:to-offset], block[from-blkStart:to-blkStart])
	}
	return out, nil
}

func (c *Caching) fetchBlock(ctx context.Context, blk, offset, length uint64) ([]byte, error) {
	if compressed, ok := c.cache.Get(blk); ok {
		block := make([]byte, length)
		if _, err := lz4.UncompressBlock(compressed, block); err == nil {
			return block, nil
		}
		// A corrupt cache entry falls through to a fresh fetch.
	}

	block, err := c.inner.ReadRange(ctx, offset, length)
	if err != nil {
		return nil, err
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(block)))
	var compressor lz4.Compressor
	if n, err := compressor.CompressBlock(block, compressed); err == nil && n > 0 {
		c.cache.Set(blk, compressed[:n])
	}
	return block, nil
}

// Size returns the inner file size.
func (c *Caching) Size() (uint64, error) {
	return c.size, nil
}

// Stats returns cache hit and miss counters.
func (c *Caching) Stats() (hits, misses int64) {
	return c.cache.Stats()
}

// Close closes the inner backend.
func (c *Caching) Close() error {
	return c.inner.Close()
}
