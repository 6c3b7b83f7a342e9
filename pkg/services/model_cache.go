package services

import (
	"sync"
	"time"
)

// ModelCacheEntry 商品単位で学習済みモデルを保持するエントリー
type ModelCacheEntry struct {
	Artifact   interface{} // 学習済みモデル（予測・異常検知で内容は異なる）
	TrainedAt  time.Time
	DataPoints int
}

// ModelCache is a per-product cache of fitted model artifacts. It is purely a
// performance optimization: a miss only costs a refit, never a different
// result. Entries are keyed by product ID and a write for one product is
// never visible to another product's key. Concurrent writes to the same key
// resolve as last-writer-wins.
type ModelCache struct {
	mu      sync.RWMutex
	entries map[string]ModelCacheEntry
}

// NewModelCache は空のModelCacheを生成する。
func NewModelCache() *ModelCache {
	return &ModelCache{
		entries: make(map[string]ModelCacheEntry),
	}
}

// Get returns the cached entry for productID, if any.
func (c *ModelCache) Get(productID string) (ModelCacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[productID]
	return entry, ok
}

// Put stores or replaces the entry for productID.
func (c *ModelCache) Put(productID string, entry ModelCacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[productID] = entry
}

// Len returns the number of cached products.
func (c *ModelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
