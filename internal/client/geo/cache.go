package geo

import "sync"

// Cache memoizes coordinates per external record id. Entries are never
// invalidated during the process lifetime: a venue address is treated as
// immutable for a given id.
type Cache struct {
	mu sync.RWMutex
	m  map[string]Coordinate
}

func NewCache() *Cache {
	return &Cache{m: make(map[string]Coordinate)}
}

// Get returns the cached coordinate for id, if any.
func (c *Cache) Get(id string) (Coordinate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	coord, ok := c.m[id]
	return coord, ok
}

// Put stores the coordinate for id.
func (c *Cache) Put(id string, coord Coordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[id] = coord
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
