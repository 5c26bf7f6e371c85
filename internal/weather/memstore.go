package weather

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is a thread-safe, per-location LRU held in process memory.
// Entries survive only as long as the process, which suits serve mode.
type MemoryStore struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*lruEntry
	head       *lruEntry // most recently used
	tail       *lruEntry // least recently used
}

type lruEntry struct {
	key   string
	value Entry
	prev  *lruEntry
	next  *lruEntry
}

// NewMemoryStore creates a store holding at most maxEntries locations.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &MemoryStore{
		maxEntries: maxEntries,
		entries:    make(map[string]*lruEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, location string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[strings.ToLower(location)]
	if !ok {
		return Entry{}, ErrCacheMiss
	}
	s.moveToFront(e)
	return e.value, nil
}

func (s *MemoryStore) Put(_ context.Context, location string, value Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(location)
	if e, ok := s.entries[key]; ok {
		e.value = value
		s.moveToFront(e)
		return nil
	}

	e := &lruEntry{key: key, value: value}
	s.entries[key] = e
	s.addToFront(e)

	if len(s.entries) > s.maxEntries {
		s.evictTail()
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[strings.ToLower(location)]; ok {
		delete(s.entries, e.key)
		s.remove(e)
	}
	return nil
}

// Len reports how many locations are cached.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) moveToFront(e *lruEntry) {
	if e == s.head {
		return
	}
	s.remove(e)
	s.addToFront(e)
}

func (s *MemoryStore) addToFront(e *lruEntry) {
	e.next = s.head
	e.prev = nil
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *MemoryStore) remove(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
}

func (s *MemoryStore) evictTail() {
	if s.tail == nil {
		return
	}
	delete(s.entries, s.tail.key)
	s.remove(s.tail)
}
