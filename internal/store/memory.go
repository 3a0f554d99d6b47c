package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process arena. With a state file configured every commit
// is also written to disk, so a restarted process resumes from the last
// committed transaction.
type Memory struct {
	mu        sync.RWMutex
	data      map[Kind]map[string][]byte
	stateFile string
}

// NewMemory returns an empty, non-persistent arena.
func NewMemory() *Memory {
	return &Memory{data: make(map[Kind]map[string][]byte)}
}

// OpenMemory loads the arena from stateFile, starting empty when the file
// does not exist yet.
func OpenMemory(stateFile string) (*Memory, error) {
	data, err := LoadState(stateFile)
	if err != nil {
		return nil, err
	}
	return &Memory{data: data, stateFile: stateFile}, nil
}

// Atomic implements Store.
func (m *Memory) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{m: m, staged: make(map[Kind]map[string][]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	return m.commit(tx.staged)
}

// View implements Store.
func (m *Memory) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memTx{m: m, readOnly: true})
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

func (m *Memory) commit(staged map[Kind]map[string][]byte) error {
	if len(staged) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	type prior struct {
		value  []byte
		exists bool
	}
	undo := make(map[Kind]map[string]prior)
	for kind, recs := range staged {
		if m.data[kind] == nil {
			m.data[kind] = make(map[string][]byte)
		}
		undo[kind] = make(map[string]prior, len(recs))
		for k, v := range recs {
			old, ok := m.data[kind][k]
			undo[kind][k] = prior{value: old, exists: ok}
			m.data[kind][k] = v
		}
	}

	if m.stateFile == "" {
		return nil
	}
	if err := SaveState(m.stateFile, m.data); err != nil {
		for kind, recs := range undo {
			for k, p := range recs {
				if p.exists {
					m.data[kind][k] = p.value
				} else {
					delete(m.data[kind], k)
				}
			}
		}
		return err
	}
	return nil
}

type memTx struct {
	m        *Memory
	staged   map[Kind]map[string][]byte
	readOnly bool
}

func (t *memTx) Get(kind Kind, key string) ([]byte, bool, error) {
	if v, ok := t.staged[kind][key]; ok {
		return clone(v), true, nil
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	v, ok := t.m.data[kind][key]
	return clone(v), ok, nil
}

func (t *memTx) Put(kind Kind, key string, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if t.staged[kind] == nil {
		t.staged[kind] = make(map[string][]byte)
	}
	t.staged[kind][key] = clone(value)
	return nil
}

func (t *memTx) Scan(kind Kind, prefix string, fn func(key string, value []byte) error) error {
	merged := make(map[string][]byte)
	t.m.mu.RLock()
	for k, v := range t.m.data[kind] {
		if strings.HasPrefix(k, prefix) {
			merged[k] = clone(v)
		}
	}
	t.m.mu.RUnlock()
	for k, v := range t.staged[kind] {
		if strings.HasPrefix(k, prefix) {
			merged[k] = clone(v)
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn(k, merged[k]); err != nil {
			return err
		}
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
