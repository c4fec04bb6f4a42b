package protocol

import (
	"context"
	"sync"
)

// MemoryStore keeps protocols in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	protocols map[string]Protocol
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{protocols: make(map[string]Protocol)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Protocol, error) {
	if IsLegacy(id) {
		return Legacy(), nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.protocols[id]
	if !ok {
		return Protocol{}, ErrNotFound
	}
	p.Mapping = p.Mapping.Clone()
	return p, nil
}

func (s *MemoryStore) Put(ctx context.Context, p Protocol) error {
	if err := checkWritable(p.ID); err != nil {
		return err
	}
	p.Hydrate()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocols[p.ID] = p
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := checkWritable(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.protocols[id]; !ok {
		return ErrNotFound
	}
	delete(s.protocols, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Protocol, error) {
	s.mu.RLock()
	custom := make([]Protocol, 0, len(s.protocols))
	for _, p := range s.protocols {
		p.Mapping = p.Mapping.Clone()
		custom = append(custom, p)
	}
	s.mu.RUnlock()
	return withLegacy(custom), nil
}
