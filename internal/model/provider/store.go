package provider

import "errors"

// ErrNotFound is returned for an unknown provider id.
var ErrNotFound = errors.New("provider not found")

// Store exposes provider retrieval for HTTP handlers.
type Store interface {
	List() []Provider
	FindByID(id string) (Provider, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Provider
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied providers.
func NewMemoryStore(items []Provider) *MemoryStore {
	return &MemoryStore{items: append([]Provider(nil), items...)}
}

// List returns the configured providers, or the default one when empty.
func (s *MemoryStore) List() []Provider {
	if len(s.items) == 0 {
		return []Provider{DefaultProvider()}
	}
	return append([]Provider(nil), s.items...)
}

// FindByID looks up a provider by identifier.
func (s *MemoryStore) FindByID(id string) (Provider, bool) {
	for _, item := range s.List() {
		if item.ID == id {
			return item, true
		}
	}
	return Provider{}, false
}

// ModelsOf returns the provider's models, falling back to DefaultModels.
func (s *MemoryStore) ModelsOf(id string) ([]Model, bool) {
	p, ok := s.FindByID(id)
	if !ok {
		return nil, false
	}
	if len(p.Models) == 0 {
		return DefaultModels(), true
	}
	return append([]Model(nil), p.Models...), true
}
