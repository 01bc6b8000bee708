package pipeline

import "sync"

// summaryCache is a small thread-safe LRU of summaries keyed by selection.
//
// Entries never expire. A summary depends only on the selection and the
// snapshot, and the snapshot is fixed once Load succeeds, so a cached entry
// stays correct for the life of the process. A hit returns the summary of the
// cycle that first computed it, CycleID and ComputedAt included.
type summaryCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value Summary
	prev  *entry
	next  *entry
}

// newSummaryCache returns a cache holding at most maxEntries summaries.
// A non-positive size disables caching.
func newSummaryCache(maxEntries int) *summaryCache {
	return &summaryCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *summaryCache) get(key string) (Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Summary{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *summaryCache) put(key string, value Summary) {
	if c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *summaryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *summaryCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *summaryCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *summaryCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *summaryCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
