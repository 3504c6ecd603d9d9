package protocol

import (
	"golang.org/x/exp/slices"

	"github.com/oratns/tnscore/internal/arena"
)

// CursorCache is the per-connection bounded LRU keyed by SQL text that
// backs re-execute. Cursor storage itself lives in an arena.Arena so a
// handle retained by a result stream past the entry's eviction is
// detected as stale instead of aliasing whatever cursor moved into its
// slot.
type CursorCache struct {
	arena    *arena.Arena[Cursor]
	bySQL    map[string]arena.Handle
	order    []arena.Handle // most-recently-used first
	capacity int
	pending  []uint16
}

// NewCursorCache creates a cache holding at most capacity live cursors.
func NewCursorCache(capacity int) *CursorCache {
	return &CursorCache{
		arena:    arena.New[Cursor](),
		bySQL:    make(map[string]arena.Handle),
		capacity: capacity,
	}
}

// Lookup returns the cached cursor for sql and marks it
// most-recently-used, or ok=false on a miss or a stale handle.
func (c *CursorCache) Lookup(sql string) (cur Cursor, h arena.Handle, ok bool) {
	h, found := c.bySQL[sql]
	if !found {
		return Cursor{}, arena.Handle{}, false
	}
	cur, err := c.arena.Get(h)
	if err != nil {
		delete(c.bySQL, sql)
		c.order = removeHandle(c.order, h)
		return Cursor{}, arena.Handle{}, false
	}
	c.touch(h)
	return cur, h, true
}

// Insert adds a freshly parsed cursor to the cache, evicting the
// least-recently-used entry (queuing its ID for the close-cursors
// piggyback) if the cache is already at capacity.
func (c *CursorCache) Insert(sql string, cur Cursor) arena.Handle {
	h := c.arena.Insert(cur)
	c.bySQL[sql] = h
	c.order = append([]arena.Handle{h}, c.order...)
	if c.capacity > 0 && len(c.order) > c.capacity {
		c.evictOldest()
	}
	return h
}

// Update rewrites the cursor stored at h in place, e.g. to record a
// DescribeInfo learned after parse.
func (c *CursorCache) Update(h arena.Handle, cur Cursor) error {
	return c.arena.Set(h, cur)
}

func (c *CursorCache) touch(h arena.Handle) {
	c.order = removeHandle(c.order, h)
	c.order = append([]arena.Handle{h}, c.order...)
}

func (c *CursorCache) evictOldest() {
	n := len(c.order)
	if n == 0 {
		return
	}
	victim := c.order[n-1]
	c.order = c.order[:n-1]
	cur, err := c.arena.Get(victim)
	if err == nil {
		c.pending = append(c.pending, cur.ID)
		for sql, h := range c.bySQL {
			if h == victim {
				delete(c.bySQL, sql)
				break
			}
		}
	}
	_ = c.arena.Free(victim)
}

// Evict removes the cursor at h unconditionally, queuing its ID for
// the close-cursors piggyback. Used when the caller explicitly closes
// a statement.
func (c *CursorCache) Evict(h arena.Handle) {
	cur, err := c.arena.Get(h)
	if err != nil {
		return
	}
	c.pending = append(c.pending, cur.ID)
	for sql, hh := range c.bySQL {
		if hh == h {
			delete(c.bySQL, sql)
			break
		}
	}
	c.order = removeHandle(c.order, h)
	_ = c.arena.Free(h)
}

// DrainPendingCloses returns and clears the cursor IDs queued for the
// next outbound request's close-cursors piggyback.
func (c *CursorCache) DrainPendingCloses() []uint16 {
	if len(c.pending) == 0 {
		return nil
	}
	ids := c.pending
	c.pending = nil
	return ids
}

func removeHandle(order []arena.Handle, h arena.Handle) []arena.Handle {
	i := slices.Index(order, h)
	if i < 0 {
		return order
	}
	return slices.Delete(order, i, i+1)
}
