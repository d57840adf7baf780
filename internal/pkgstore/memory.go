package pkgstore

import (
	"encoding/json"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and dry runs. It deep
// copies packages on the way in and out so callers cannot mutate shared
// state behind the store's back.
type MemoryStore struct {
	packages map[string]*Package
	order    []string
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{packages: make(map[string]*Package)}
}

func clonePackage(p *Package) (*Package, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out Package
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create inserts a new package and seeds its status history.
func (s *MemoryStore) Create(p *Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.packages[p.ID]; ok {
		return ErrAlreadyExists
	}
	cp, err := clonePackage(p)
	if err != nil {
		return err
	}
	seedHistory(cp)
	s.packages[cp.ID] = cp
	s.order = append(s.order, cp.ID)
	return nil
}

// Get returns a copy of the package with the given id.
func (s *MemoryStore) Get(id string) (*Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.packages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePackage(p)
}

// List returns copies of all packages in insertion order.
func (s *MemoryStore) List() ([]*Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Package, 0, len(s.order))
	for _, id := range s.order {
		cp, err := clonePackage(s.packages[id])
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Update applies the update under the lifecycle rules.
func (s *MemoryStore) Update(id string, up Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packages[id]
	if !ok {
		return ErrNotFound
	}
	cp, err := clonePackage(p)
	if err != nil {
		return err
	}
	if err := applyUpdate(cp, up); err != nil {
		return err
	}
	s.packages[id] = cp
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
