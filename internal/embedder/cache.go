package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// defaultCacheSize bounds the in-memory layer of the cache.
const defaultCacheSize = 4096

// Cached wraps a Provider with an in-memory LRU backed by an optional disk
// cache. Identical text embedded with the same model is computed once.
// Cache write failures are logged, never propagated.
type Cached struct {
	inner Provider
	mem   *lru.Cache[string, []float32]
	disk  *DiskCache
}

// NewCached layers caching over a provider. disk may be nil for memory-only
// caching.
func NewCached(inner Provider, disk *DiskCache) *Cached {
	mem, _ := lru.New[string, []float32](defaultCacheSize)
	return &Cached{inner: inner, mem: mem, disk: disk}
}

// Model returns the inner provider's model name.
func (c *Cached) Model() string {
	return c.inner.Model()
}

// Dimensions returns the inner provider's vector size.
func (c *Cached) Dimensions() int {
	return c.inner.Dimensions()
}

// Embed returns the cached vector or computes and caches it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.inner.Model(), text)
	if v, ok := c.lookup(ctx, key); ok {
		return v, nil
	}

	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, v)
	return v, nil
}

// EmbedBatch serves what it can from cache and embeds only the misses, in a
// single call to the inner provider.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		keys[i] = cacheKey(c.inner.Model(), text)
		if v, ok := c.lookup(ctx, keys[i]); ok {
			vectors[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		vectors[i] = fresh[j]
		c.store(ctx, keys[i], fresh[j])
	}
	return vectors, nil
}

func (c *Cached) lookup(ctx context.Context, key string) ([]float32, bool) {
	if v, ok := c.mem.Get(key); ok {
		return v, true
	}
	if c.disk == nil {
		return nil, false
	}
	v, ok := c.disk.Get(ctx, key)
	if ok {
		c.mem.Add(key, v)
	}
	return v, ok
}

func (c *Cached) store(ctx context.Context, key string, vector []float32) {
	c.mem.Add(key, vector)
	if c.disk == nil {
		return
	}
	if err := c.disk.Put(ctx, key, c.inner.Model(), vector); err != nil {
		log.Warn().Err(err).Msg("embedding disk cache write failed")
	}
}

func cacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
