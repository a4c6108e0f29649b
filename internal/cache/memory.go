package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/valpere/adaptran/internal"
)

const DefaultMaxEntries = 1000

// MemoryStore is a bounded in-process store with least-recently-used
// eviction. Load and Save both count as use.
type MemoryStore struct {
	mu         sync.Mutex
	maxEntries int
	order      *list.List
	items      map[internal.CacheKey]*list.Element
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		maxEntries: maxEntries,
		order:      list.New(),
		items:      make(map[internal.CacheKey]*list.Element),
	}
}

func (s *MemoryStore) Name() string {
	return "memory"
}

func (s *MemoryStore) Load(_ context.Context, key internal.CacheKey) (*internal.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	s.order.MoveToFront(el)
	e := *el.Value.(*internal.CacheEntry)
	return &e, nil
}

func (s *MemoryStore) Save(_ context.Context, entry *internal.CacheEntry) error {
	e := *entry

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[e.Key]; ok {
		el.Value = &e
		s.order.MoveToFront(el)
		return nil
	}

	s.items[e.Key] = s.order.PushFront(&e)
	for s.order.Len() > s.maxEntries {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*internal.CacheEntry).Key)
	}
	return nil
}

func (s *MemoryStore) RecordHit(_ context.Context, key internal.CacheKey) (*internal.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	s.order.MoveToFront(el)
	stored := el.Value.(*internal.CacheEntry)
	stored.AccessCount++
	stored.HitCount++
	e := *stored
	return &e, nil
}

func (s *MemoryStore) Delete(_ context.Context, key internal.CacheKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		s.order.Remove(el)
		delete(s.items, key)
	}
	return nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len(), nil
}
