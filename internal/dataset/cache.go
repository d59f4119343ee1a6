package dataset

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// LoaderFunc produces the snapshot for a path.
type LoaderFunc func(path string) (*Table, error)

// LoadDerived loads path and derives its computed columns.
func LoadDerived(path string) (*Table, error) {
	t, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Derive(t), nil
}

// Cache owns one immutable snapshot per source path. A path is read at most
// once until Invalidate is called for it; failed loads are not remembered.
type Cache struct {
	loader LoaderFunc

	mu        sync.RWMutex
	snapshots map[string]*Table

	group singleflight.Group
	loads atomic.Int64
}

// NewCache returns a cache backed by loader, or by LoadDerived when nil.
func NewCache(loader LoaderFunc) *Cache {
	if loader == nil {
		loader = LoadDerived
	}
	return &Cache{
		loader:    loader,
		snapshots: make(map[string]*Table),
	}
}

// Peek returns the snapshot for path without loading it.
func (c *Cache) Peek(path string) (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.snapshots[path]
	return t, ok
}

// GetOrLoad returns the snapshot for path, loading it on first use.
// Concurrent callers for the same path share a single load.
func (c *Cache) GetOrLoad(ctx context.Context, path string) (*Table, error) {
	if t, ok := c.Peek(path); ok {
		return t, nil
	}

	ch := c.group.DoChan(path, func() (any, error) {
		if t, ok := c.Peek(path); ok {
			return t, nil
		}

		c.loads.Add(1)
		t, err := c.loader(path)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.snapshots[path] = t
		c.mu.Unlock()
		return t, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Table), nil
	}
}

// Store replaces the snapshot for path without touching the loader.
func (c *Cache) Store(path string, t *Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[path] = t
}

// Invalidate drops the snapshot for path; the next GetOrLoad reads it again.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.snapshots, path)
	c.mu.Unlock()
	c.group.Forget(path)
}

// Loads reports how many times the loader has run.
func (c *Cache) Loads() int64 {
	return c.loads.Load()
}
