// Package keylock provides one mutex per string key so that operations on
// the same account or token are serialized while unrelated keys proceed.
package keylock

import (
	"sort"
	"sync"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Map is a set of lazily created per-key mutexes.
type Map struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty Map.
func New() *Map {
	return &Map{entries: make(map[string]*entry)}
}

// Lock acquires every key in sorted order and returns a function releasing
// them. Duplicate keys are locked once. Sorting gives every caller the same
// acquisition order, which rules out lock-order deadlocks.
func (m *Map) Lock(keys ...string) (unlock func()) {
	uniq := dedupe(keys)
	held := make([]*entry, 0, len(uniq))
	for _, k := range uniq {
		e := m.acquire(k)
		e.mu.Lock()
		held = append(held, e)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			m.release(uniq[i])
		}
	}
}

func (m *Map) acquire(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	e.refs++
	return e
}

func (m *Map) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func dedupe(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, k := range out {
		if i > 0 && k == out[n-1] {
			continue
		}
		out[n] = k
		n++
	}
	return out[:n]
}

// Key helpers shared by the ledger, registries and controller.

func TokenKey(addr string) string { return "token:" + addr }
func AccountKey(key string) string { return "account:" + key }
func ClientKey(id string) string { return "client:" + id }
