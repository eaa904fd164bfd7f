package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Memory is an in-process Store. Subkeys enumerate in insertion order.
type Memory struct {
	mu        sync.Mutex
	roots     map[Root]*memRoot
	openErrs  map[Root]error
	deleteErr map[string]error
	open      atomic.Int64
}

type memRoot struct {
	names  []string
	values map[string]Values
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		roots:     make(map[Root]*memRoot),
		openErrs:  make(map[Root]error),
		deleteErr: make(map[string]error),
	}
}

// Add inserts or replaces the subkey name under root.
func (m *Memory) Add(root Root, name string, values Values) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.roots[root]
	if !ok {
		r = &memRoot{values: make(map[string]Values)}
		m.roots[root] = r
	}
	if _, exists := r.values[name]; !exists {
		r.names = append(r.names, name)
	}
	r.values[name] = values
}

// FailOpen makes Open(root) return err, simulating access denied.
func (m *Memory) FailOpen(root Root, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErrs[root] = err
}

// FailDelete makes DeleteSubKey(root, name) return err.
func (m *Memory) FailDelete(root Root, name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr[root.String()+`\`+name] = err
}

// OpenHandles reports keys opened and not yet closed.
func (m *Memory) OpenHandles() int64 {
	return m.open.Load()
}

func (m *Memory) Open(root Root) (Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.openErrs[root]; err != nil {
		return nil, fmt.Errorf("open %s: %w", root, err)
	}
	r, ok := m.roots[root]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", root, ErrKeyNotFound)
	}

	k := &memKey{
		owner:  m,
		names:  append([]string(nil), r.names...),
		values: make(map[string]Values, len(r.values)),
	}
	for name, v := range r.values {
		k.values[name] = v
	}
	m.open.Add(1)
	return k, nil
}

func (m *Memory) DeleteSubKey(root Root, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.deleteErr[root.String()+`\`+name]; err != nil {
		return fmt.Errorf("delete subkey %s: %w", name, err)
	}
	r, ok := m.roots[root]
	if !ok {
		return fmt.Errorf("open %s for delete: %w", root, ErrKeyNotFound)
	}
	if _, exists := r.values[name]; !exists {
		return fmt.Errorf("delete subkey %s: %w", name, ErrKeyNotFound)
	}

	delete(r.values, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
	return nil
}

// memKey is a point-in-time view of a root taken at Open.
type memKey struct {
	owner  *Memory
	names  []string
	values map[string]Values
	closed bool
}

func (k *memKey) SubKeyNames() ([]string, error) {
	return append([]string(nil), k.names...), nil
}

func (k *memKey) ReadValues(name string) (Values, error) {
	v, ok := k.values[name]
	if !ok {
		return Values{}, fmt.Errorf("open subkey %s: %w", name, ErrKeyNotFound)
	}
	return v, nil
}

func (k *memKey) Close() error {
	if k.closed {
		return nil
	}
	k.closed = true
	k.owner.open.Add(-1)
	return nil
}
