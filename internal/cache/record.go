package cache

import (
	"sort"
	"sync"
)

// Record is the set of cache file names confirmed present in local storage.
//
// Entries are added when a bundle is materialized and removed only by an
// explicit clear; they never expire. Record is safe for concurrent use:
// resolution may read it while a batch commits new entries, and sees
// whatever has been committed so far.
type Record struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return &Record{names: make(map[string]struct{})}
}

// Contains reports whether name is recorded.
func (r *Record) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[name]
	return ok
}

// Add records name. It returns false if name was already recorded.
func (r *Record) Add(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[name]; ok {
		return false
	}
	r.names[name] = struct{}{}
	return true
}

// Remove forgets name.
func (r *Record) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, name)
}

// Clear forgets every entry.
func (r *Record) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = make(map[string]struct{})
}

// Len returns the number of recorded entries.
func (r *Record) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Names returns the recorded names in sorted order.
func (r *Record) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for name := range r.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
