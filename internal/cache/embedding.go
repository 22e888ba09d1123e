// Package cache holds the two in-memory caches of the retrieval pipeline:
// a content-addressed embedding cache with an optional durable backing tier,
// and a TTL-bounded query result cache. Both are explicit instances wired at
// startup; nothing in this package is global.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"

	"github.com/jvanleeuwen/regelrag/internal/core/ports"
)

// HashText returns the cache key for a chunk or query text: the hex SHA-256
// of the exact text. Keys are content-addressed, so identical text shares one
// entry across documents and owners.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

type embeddingEntry struct {
	hash   string
	vector []float32
}

// EmbeddingCache is a strict-LRU map from text hash to vector, bounded by
// entry count. A durable store, when configured, is consulted on memory miss
// and written through on save; store failures degrade to a miss and are only
// logged.
type EmbeddingCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	store    ports.EmbeddingStore
	logger   *slog.Logger

	hits   uint64
	misses uint64
}

func NewEmbeddingCache(capacity int, store ports.EmbeddingStore, logger *slog.Logger) *EmbeddingCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &EmbeddingCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		store:    store,
		logger:   logger,
	}
}

// Get returns the vector for hash, or nil on miss. A memory hit refreshes the
// entry's recency; a durable-tier hit promotes the vector into memory.
func (c *EmbeddingCache) Get(ctx context.Context, hash string) []float32 {
	c.mu.Lock()
	if element, ok := c.entries[hash]; ok {
		c.order.MoveToFront(element)
		c.hits++
		vector := element.Value.(*embeddingEntry).vector
		c.mu.Unlock()
		return vector
	}
	c.misses++
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	vector, err := c.store.Load(ctx, hash)
	if err != nil {
		c.logger.Warn("embedding_store_load_failed", "hash", hash, "error", err)
		return nil
	}
	if vector == nil {
		return nil
	}
	c.insert(hash, vector)
	return vector
}

// Put stores a freshly computed vector in memory and writes it through to the
// durable tier when one is configured.
func (c *EmbeddingCache) Put(ctx context.Context, hash string, vector []float32) {
	c.insert(hash, vector)
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, hash, vector); err != nil {
		c.logger.Warn("embedding_store_save_failed", "hash", hash, "error", err)
	}
}

func (c *EmbeddingCache) insert(hash string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[hash]; ok {
		element.Value.(*embeddingEntry).vector = vector
		c.order.MoveToFront(element)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*embeddingEntry).hash)
		}
	}
	c.entries[hash] = c.order.PushFront(&embeddingEntry{hash: hash, vector: vector})
}

// Len reports the number of vectors currently held in memory.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats reports cumulative memory-tier hits and misses.
func (c *EmbeddingCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// CachingEmbedder decorates an Embedder with the cache: only texts whose hash
// misses both tiers reach the underlying embedder, and results come back in
// input order regardless of which texts were cached.
type CachingEmbedder struct {
	inner ports.Embedder
	cache *EmbeddingCache
}

func NewCachingEmbedder(inner ports.Embedder, cache *EmbeddingCache) *CachingEmbedder {
	return &CachingEmbedder{inner: inner, cache: cache}
}

func (e *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingAt []int

	for i, text := range texts {
		if vector := e.cache.Get(ctx, HashText(text)); vector != nil {
			vectors[i] = vector
			continue
		}
		missing = append(missing, text)
		missingAt = append(missingAt, i)
	}
	if len(missing) == 0 {
		return vectors, nil
	}

	computed, err := e.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vector := range computed {
		i := missingAt[j]
		vectors[i] = vector
		e.cache.Put(ctx, HashText(texts[i]), vector)
	}
	return vectors, nil
}

func (e *CachingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	hash := HashText(text)
	if vector := e.cache.Get(ctx, hash); vector != nil {
		return vector, nil
	}
	vector, err := e.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Put(ctx, hash, vector)
	return vector, nil
}
