package state

import (
	"context"
	"sync"
)

// MemoryStore keeps histories in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]History
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]History{}}
}

func (s *MemoryStore) Load(_ context.Context, conversationID string) (History, error) {
	key, err := historyKey("mem:", conversationID)
	if err != nil {
		return History{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.items[key]
	if !ok {
		return History{}, ErrHistoryNotFound
	}
	return NewHistory(h.Capacity).Append(h.Turns...), nil
}

func (s *MemoryStore) Save(_ context.Context, conversationID string, h History) error {
	key, err := historyKey("mem:", conversationID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = NewHistory(h.Capacity).Append(h.Turns...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, conversationID string) error {
	key, err := historyKey("mem:", conversationID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// KeyedMutex serializes work per key. Locks for idle keys are dropped.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: map[string]*keyedLock{}}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
