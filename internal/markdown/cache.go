package markdown

import (
	"container/list"
	"fmt"
	"sync"
)

// CellCache is an LRU cache of rendered StyledLine slices keyed by
// (cell_id, width, content_length). A width change or content growth
// invalidates the entry because the key itself changes; stale entries for
// the same cell_id simply age out of the LRU.
type CellCache struct {
	mu      sync.RWMutex
	maxSize int
	cache   map[string]*list.Element
	order   *list.List
}

type cellEntry struct {
	key   string
	lines []StyledLine
}

// NewCellCache creates a cache holding at most maxSize rendered cells.
func NewCellCache(maxSize int) *CellCache {
	if maxSize <= 0 {
		maxSize = 200
	}
	return &CellCache{
		maxSize: maxSize,
		cache:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// cellKey builds the cache key from the cell identity, render width, and
// source content length.
func cellKey(cellID string, width, contentLen int) string {
	return fmt.Sprintf("%s|%d|%d", cellID, width, contentLen)
}

// Get returns the cached lines for (cellID, width, contentLen), if present.
func (c *CellCache) Get(cellID string, width, contentLen int) ([]StyledLine, bool) {
	key := cellKey(cellID, width, contentLen)
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*cellEntry).lines, true
	}
	return nil, false
}

// Put stores rendered lines for (cellID, width, contentLen), evicting the
// least recently used entry if the cache is at capacity.
func (c *CellCache) Put(cellID string, width, contentLen int, lines []StyledLine) {
	key := cellKey(cellID, width, contentLen)
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cellEntry).lines = lines
		return
	}
	if c.order.Len() >= c.maxSize {
		c.evictOldest()
	}
	elem := c.order.PushFront(&cellEntry{key: key, lines: lines})
	c.cache[key] = elem
}

func (c *CellCache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	entry := oldest.Value.(*cellEntry)
	delete(c.cache, entry.key)
	c.order.Remove(oldest)
}

// RenderCached renders md at width, reusing a cached result for cellID if
// the width and content length are unchanged.
func RenderCached(cache *CellCache, cellID, md string, width int) []StyledLine {
	if lines, ok := cache.Get(cellID, width, len(md)); ok {
		return lines
	}
	lines := Render(md, width)
	cache.Put(cellID, width, len(md), lines)
	return lines
}
