package memory

import "context"

// MetadataStore is the memory-backed store.MetadataStore implementation.
type MetadataStore Store

func (m *MetadataStore) store() *Store { return (*Store)(m) }

func (m *MetadataStore) Get(ctx context.Context, tractID, key string) (string, bool, error) {
	s := m.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	tract, ok := s.metadata[tractID]
	if !ok {
		return "", false, nil
	}
	v, ok := tract[key]
	return v, ok, nil
}

func (m *MetadataStore) Set(ctx context.Context, tractID, key, value string) error {
	s := m.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	tract, ok := s.metadata[tractID]
	if !ok {
		tract = map[string]string{}
		s.metadata[tractID] = tract
	}
	tract[key] = value
	return nil
}
