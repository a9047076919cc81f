// Package dedupe tracks identity keys already seen in a table so that
// repeated keys can be reported without being removed.
package dedupe

import (
	"sync"
)

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord checks whether key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(key string) bool

	// Repeated returns the keys seen more than once with their extra
	// occurrence count, in first-repeat order.
	Repeated() []Repeat

	// Duplicates returns the total number of extra occurrences.
	Duplicates() int

	// Size returns the number of distinct keys.
	Size() int
}

// Repeat is a key that occurred Extra times after its first occurrence.
type Repeat struct {
	Key   string
	Extra int
}

// inMemoryDeduper implements Deduper with a map guarded by a mutex.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // key -> extra occurrences
	order   []string       // keys in first-repeat order
	total   int
	sizeCap int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]int, d.sizeCap)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	extra, exists := d.seen[key]
	if !exists {
		d.seen[key] = 0
		return false
	}
	if extra == 0 {
		d.order = append(d.order, key)
	}
	d.seen[key] = extra + 1
	d.total++
	return true
}

func (d *inMemoryDeduper) Repeated() []Repeat {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Repeat, len(d.order))
	for i, k := range d.order {
		out[i] = Repeat{Key: k, Extra: d.seen[k]}
	}
	return out
}

func (d *inMemoryDeduper) Duplicates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
