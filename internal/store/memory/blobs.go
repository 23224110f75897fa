package memory

import (
	"context"

	"github.com/tract-dev/tract/internal/types"
)

// BlobStore is the memory-backed store.BlobStore implementation.
type BlobStore Store

func (b *BlobStore) store() *Store { return (*Store)(b) }

func (b *BlobStore) Get(ctx context.Context, hash string) (*types.Blob, error) {
	s := b.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[hash]
	if !ok {
		return nil, types.ErrBlobNotFound
	}
	cp := *blob
	return &cp, nil
}

func (b *BlobStore) SaveIfAbsent(ctx context.Context, blob *types.Blob) error {
	s := b.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blobs[blob.ContentHash]; exists {
		return nil
	}
	cp := *blob
	s.blobs[blob.ContentHash] = &cp
	return nil
}

func (b *BlobStore) DeleteIfOrphaned(ctx context.Context, hash string) (bool, error) {
	s := b.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.commits {
		if c.ContentHash == hash {
			return false, nil
		}
	}
	if _, ok := s.blobs[hash]; !ok {
		return false, nil
	}
	delete(s.blobs, hash)
	return true, nil
}
