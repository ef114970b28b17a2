package fingerprint

import (
	"context"
	"sync"
	"sync/atomic"
)

// Index records committed fingerprints to back the at-most-once ledger
// write guarantee. The seen state is shared across workers and guarded
// internally.
type Index interface {
	// SeenAndRecord atomically checks if key was seen and records it if
	// not. Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key, allowing the commit to be retried after a
	// downstream failure.
	Unrecord(ctx context.Context, key string)

	// Preload marks a set of keys as seen without eviction accounting,
	// used at startup to restore state from the ledger.
	Preload(ctx context.Context, keys []string)

	Size() int64
}

// node is one entry in the eviction list.
type node struct {
	key  string
	next *node
}

func (n *node) reset() {
	n.key = ""
	n.next = nil
}

// memoryIndex implements Index with a map plus a linked list for LIFO
// eviction in bounded mode. Unbounded mode (maxSize <= 0) keeps a plain
// map with no eviction.
type memoryIndex struct {
	mu       sync.Mutex
	seen     map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewIndex creates an in-memory fingerprint index.
func NewIndex(opts ...Option) Index {
	idx := &memoryIndex{
		maxSize: 100_000,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.seen = make(map[string]*node)
	if idx.maxSize > 0 {
		idx.nodePool = sync.Pool{
			New: func() interface{} { return &node{} },
		}
	}
	return idx
}

func (d *memoryIndex) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}
	d.record(key)
	return false
}

// record inserts a key. Caller holds d.mu.
func (d *memoryIndex) record(key string) {
	if d.maxSize > 0 {
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
		n := d.nodePool.Get().(*node)
		n.key = key
		n.next = d.head
		d.head = n
		d.seen[key] = n
	} else {
		d.seen[key] = nil
	}
	d.size.Add(1)
}

func (d *memoryIndex) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, exists := d.seen[key]
	if !exists {
		return
	}
	delete(d.seen, key)

	if d.maxSize > 0 && n != nil {
		if d.head == n {
			d.head = n.next
		} else {
			current := d.head
			for current != nil && current.next != n {
				current = current.next
			}
			if current != nil {
				current.next = n.next
			}
		}
		n.reset()
		d.nodePool.Put(n)
	}
	d.size.Add(-1)
}

func (d *memoryIndex) Preload(_ context.Context, keys []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, key := range keys {
		if _, exists := d.seen[key]; exists {
			continue
		}
		d.record(key)
	}
}

// evictOldest drops the tail of the list. Caller holds d.mu.
func (d *memoryIndex) evictOldest() {
	if len(d.seen) == 0 || d.head == nil {
		return
	}
	current := d.head
	if current.next == nil {
		delete(d.seen, current.key)
		current.reset()
		d.nodePool.Put(current)
		d.head = nil
		d.size.Add(-1)
		return
	}
	var prev *node
	for current.next != nil {
		prev = current
		current = current.next
	}
	prev.next = nil
	delete(d.seen, current.key)
	current.reset()
	d.nodePool.Put(current)
	d.size.Add(-1)
}

func (d *memoryIndex) Size() int64 {
	return d.size.Load()
}
