package services

import (
	"sync"
)

// lockTable hands out one mutex per auction ID so operations on different
// auctions never serialize against each other. Entries are refcounted and
// dropped once the last holder releases, so the table scales with in-flight
// operations rather than with the total number of auctions.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

// Lock acquires the mutex for id and returns its release func.
func (t *lockTable) Lock(id string) func() {
	t.mu.Lock()
	entry, ok := t.entries[id]
	if !ok {
		entry = &lockEntry{}
		t.entries[id] = entry
	}
	entry.refs++
	t.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()
			t.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(t.entries, id)
			}
			t.mu.Unlock()
		})
	}
}

// size is test-only visibility into the number of live entries.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
