package store

import (
	"encoding/json"
	"errors"
	"sync"
)

// MemoryStore is an in-memory Store used in tests and as a fallback when no
// database is configured. FailWrites makes every Save/Clear return a
// StorageError so callers' degraded-storage paths can be exercised.
type MemoryStore struct {
	mu         sync.Mutex
	slots      map[string]string
	FailWrites bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]string)}
}

func (s *MemoryStore) Save(slot string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return &StorageError{Slot: slot, Op: "save", Err: errors.New("write failure injected")}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return &StorageError{Slot: slot, Op: "save", Err: err}
	}
	s.slots[slot] = string(data)
	return nil
}

func (s *MemoryStore) Load(slot string, dest any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.slots[slot]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Clear(slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return &StorageError{Slot: slot, Op: "clear", Err: errors.New("write failure injected")}
	}
	delete(s.slots, slot)
	return nil
}

func (s *MemoryStore) Exists(slot string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.slots[slot]
	return ok, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// SetRaw stores a raw payload directly, bypassing JSON marshalling. Tests
// use it to plant malformed slot contents.
func (s *MemoryStore) SetRaw(slot, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot] = raw
}
