package lang

import (
	"context"
	"log/slog"
	"sync"
)

// Cache memoizes the sub-templates resolved while rendering, keyed by
// renderer and template name. It is safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	templates map[cacheKey]*Template
}

type cacheKey struct {
	renderer *Renderer
	name     string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{templates: make(map[cacheKey]*Template)}
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.templates)
}

// Clear removes all cached templates.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.templates)
}

// load returns the named template, resolving it through r on first use.
// The lock is not held while resolving, so concurrent first uses of one name
// may both resolve it; the first stored wins.
func (c *Cache) load(ctx context.Context, r *Renderer, name string) (*Template, error) {
	key := cacheKey{renderer: r, name: name}

	c.mu.Lock()
	t, ok := c.templates[key]
	c.mu.Unlock()

	if ok {
		return t, nil
	}

	t, err := r.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.templates[key]; ok {
		return cached, nil
	}

	if c.templates == nil {
		c.templates = make(map[cacheKey]*Template)
	}

	c.templates[key] = t

	t.opts.logger.TraceContext(ctx, "cache store",
		slog.String("template", name),
		slog.Int("cached", len(c.templates)),
	)

	return t, nil
}
