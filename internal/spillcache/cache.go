// Package spillcache implements the bounded in-memory LRU over per-key
// growable vectors that the Slice Store uses to hold working sets far
// larger than RAM; the Segmenter keeps its per-segment point lists in
// memory and does not use it. Entries evicted from the active
// set are appended to a per-key temporary file; re-touching an evicted
// key brings it back into the active set (possibly evicting another).
//
// The cache is single-threaded by design (spec.md §5): its LRU
// bookkeeping and spill-file state are not safe for concurrent access,
// so callers dedicate one goroutine to it.
package spillcache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// maxActive is the design budget for the number of keys allowed to have
// an active (non-spilled) in-memory buffer at once.
const maxActive = 64

// Key identifies a logical stream registered with NewEntry. Keys are
// dense, monotonically increasing, and never reused.
type Key int

// Cache is a bounded map from Key to a homogeneously typed entry. T must
// be a fixed-size value type; Cache writes its raw bytes to spill files.
type Cache[T any] struct {
	dir      string
	elemSize int
	encode   func([]byte, T)
	decode   func([]byte) T

	entries []entry[T]  // index by Key
	active  map[Key]int // key -> position in lru, for keys currently active
	lru     []Key       // keys with a non-empty or newly-created active buffer, unordered
	clock   uint64
}

type entry[T any] struct {
	active    []T
	spillPath string
	spillSize int64 // bytes already flushed to spillPath
	touched   uint64
	isActive  bool
}

// New creates a Cache that spills to files under dir (created if absent).
// elemSize/encode/decode describe T's fixed-size binary representation.
func New[T any](dir string, elemSize int, encode func([]byte, T), decode func([]byte) T) (*Cache[T], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("spillcache: create spill dir %s: %w", dir, err)
	}
	return &Cache[T]{
		dir:      dir,
		elemSize: elemSize,
		encode:   encode,
		decode:   decode,
		active:   make(map[Key]int),
	}, nil
}

// NewEntry registers a new logical stream and returns its key.
func (c *Cache[T]) NewEntry() Key {
	k := Key(len(c.entries))
	c.entries = append(c.entries, entry[T]{})
	return k
}

// Push appends value to key's active buffer, bumping its last-touch
// counter. If this would grow the active set beyond maxActive, the
// least-recently-touched entry (ties broken by smaller key) is spilled
// first.
func (c *Cache[T]) Push(k Key, v T) error {
	c.clock++
	e := &c.entries[k]
	if !e.isActive {
		if len(c.active) >= maxActive {
			if err := c.evictOne(); err != nil {
				return err
			}
		}
		e.isActive = true
		c.active[k] = len(c.lru)
		c.lru = append(c.lru, k)
	}
	e.active = append(e.active, v)
	e.touched = c.clock
	return nil
}

func (c *Cache[T]) evictOne() error {
	var oldestKey Key = -1
	var oldestTouch uint64
	first := true
	for k := range c.active {
		e := &c.entries[k]
		if first || e.touched < oldestTouch || (e.touched == oldestTouch && k < oldestKey) {
			oldestKey = k
			oldestTouch = e.touched
			first = false
		}
	}
	if first {
		return nil // nothing active
	}
	return c.spill(oldestKey)
}

func (c *Cache[T]) spill(k Key) error {
	e := &c.entries[k]
	if len(e.active) > 0 {
		if e.spillPath == "" {
			e.spillPath = filepath.Join(c.dir, fmt.Sprintf("spill-%d-%s.bin", int(k), uuid.NewString()))
		}
		f, err := os.OpenFile(e.spillPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("spillcache: open spill file for key %d: %w", k, err)
		}
		defer f.Close()

		buf := make([]byte, c.elemSize*len(e.active))
		for i, v := range e.active {
			c.encode(buf[i*c.elemSize:(i+1)*c.elemSize], v)
		}
		n, err := f.Write(buf)
		if err != nil {
			return fmt.Errorf("spillcache: write spill file for key %d: %w", k, err)
		}
		e.spillSize += int64(n)
	}
	e.active = nil
	c.removeFromLRU(k)
	e.isActive = false
	return nil
}

func (c *Cache[T]) removeFromLRU(k Key) {
	pos, ok := c.active[k]
	if !ok {
		return
	}
	last := len(c.lru) - 1
	c.lru[pos] = c.lru[last]
	c.active[c.lru[pos]] = pos
	c.lru = c.lru[:last]
	delete(c.active, k)
}

// Handle owns an entry's spill file (if any) and active buffer once
// Take has removed it from the cache.
type Handle[T any] struct {
	spillPath string
	spillSize int64
	active    []T
	elemSize  int
	decode    func([]byte) T
}

// Take removes key from the cache and returns a Handle owning its data.
// The key may be pushed to again afterward, which registers a fresh
// (empty) entry under the same Key slot semantics as before.
func (c *Cache[T]) Take(k Key) (Handle[T], error) {
	e := &c.entries[k]
	if e.isActive {
		c.removeFromLRU(k)
	}
	h := Handle[T]{
		spillPath: e.spillPath,
		spillSize: e.spillSize,
		active:    e.active,
		elemSize:  c.elemSize,
		decode:    c.decode,
	}
	c.entries[k] = entry[T]{}
	return h, nil
}

// Len returns the drained length in O(1).
func (h Handle[T]) Len() int {
	return int(h.spillSize/int64(h.elemSize)) + len(h.active)
}

// Drain yields spill-file contents followed by the active buffer, in
// insertion order, per the Cache Entry invariant in spec.md §3.
func (h Handle[T]) Drain() ([]T, error) {
	out := make([]T, 0, h.Len())
	if h.spillPath != "" {
		f, err := os.Open(h.spillPath)
		if err != nil {
			return nil, fmt.Errorf("spillcache: open spill file for drain: %w", err)
		}
		defer f.Close()
		defer os.Remove(h.spillPath)

		buf, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("spillcache: read spill file: %w", err)
		}
		for off := 0; off+h.elemSize <= len(buf); off += h.elemSize {
			out = append(out, h.decode(buf[off:off+h.elemSize]))
		}
	}
	out = append(out, h.active...)
	return out, nil
}
