package services

import (
	"context"
	"sync"

	"note-drop/pkg/store"
)

// SlugIndex caches the list of known slugs. Saves call Invalidate so the
// next Slugs call reloads from the store.
type SlugIndex struct {
	store store.Store

	mu     sync.Mutex
	slugs  []string
	loaded bool
}

func NewSlugIndex(s store.Store) *SlugIndex {
	return &SlugIndex{store: s}
}

func (i *SlugIndex) Slugs(ctx context.Context) ([]string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.loaded {
		return i.slugs, nil
	}

	slugs, err := i.store.List(ctx)
	if err != nil {
		return nil, err
	}
	i.slugs = slugs
	i.loaded = true
	return i.slugs, nil
}

func (i *SlugIndex) Invalidate() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.loaded = false
	i.slugs = nil
}
