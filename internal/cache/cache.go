package cache

import (
	"sync"

	"refresher/internal/model"
)

// DefaultCapacity is the number of posts kept when no capacity is given.
const DefaultCapacity = 50

// Entry holds whatever the post loader and the comment loader stored for
// one post. Either field may be nil.
type Entry struct {
	Post    *model.PostRecord
	Comment *model.CommentThread
}

// PostCache is a capacity bounded map evicting by insertion order. Reads
// never refresh an entry's position.
type PostCache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	data     map[string]Entry
}

// New returns a cache holding at most capacity keys.
func New(capacity int) *PostCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &PostCache{
		capacity: capacity,
		data:     make(map[string]Entry, capacity),
	}
}

// Capacity returns the configured maximum number of keys.
func (c *PostCache) Capacity() int { return c.capacity }

// Get returns the entry stored under key.
func (c *PostCache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	return e, ok
}

// Set merges partial into the entry stored under key. Nil fields of partial
// never erase present ones. When a new key would push the cache over
// capacity the oldest inserted key is evicted first.
func (c *PostCache) Set(key string, partial Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, exists := c.data[key]
	if !exists {
		for len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.data, oldest)
		}
		c.order = append(c.order, key)
	}
	if partial.Post != nil {
		cur.Post = partial.Post
	}
	if partial.Comment != nil {
		cur.Comment = partial.Comment
	}
	c.data[key] = cur
}

// Delete removes key and reports whether it was present.
func (c *PostCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; !ok {
		return false
	}
	delete(c.data, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of stored keys.
func (c *PostCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Keys returns the stored keys, oldest first.
func (c *PostCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}
