// Package cache provides thread-safe generic caching and the rendered preview cache.
package cache

import "sync"

type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
}

func (c *Cache[K, V]) SetTo(items map[K]V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// RenderedPreview is a sanitized preview fragment plus the placeholder codes found in it.
type RenderedPreview struct {
	HTML         []byte
	Placeholders []string
}

// The rendered cache is bounded; once it reaches this size it is dropped wholesale.
// Drafts change on every keystroke so old entries are rarely hit again.
const maxRenderedEntries = 512

var renderedPreviewCache = NewCache[string, *RenderedPreview]()

func previewKey(contentHash, syntaxTheme string) string {
	return contentHash + ":" + syntaxTheme
}

func GetRenderedPreview(contentHash, syntaxTheme string) (*RenderedPreview, bool) {
	return renderedPreviewCache.Get(previewKey(contentHash, syntaxTheme))
}

func SetRenderedPreview(contentHash, syntaxTheme string, html []byte, placeholders []string) {
	if renderedPreviewCache.Len() >= maxRenderedEntries {
		renderedPreviewCache.Clear()
	}
	renderedPreviewCache.Set(previewKey(contentHash, syntaxTheme), &RenderedPreview{
		HTML:         html,
		Placeholders: placeholders,
	})
}

func ClearRenderedPreviewCache() {
	renderedPreviewCache.Clear()
}

func RenderedPreviewCount() int {
	return renderedPreviewCache.Len()
}
