package services

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string][]Message)}
}

func (s *MemoryStore) Append(_ context.Context, room string, message Message) error {
	if room == "" {
		return ErrInvalidRoom
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[room] = append(s.rooms[room], message)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, room string, limit int) ([]Message, error) {
	limit = clampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := s.rooms[room]
	start := max(len(messages)-limit, 0)

	result := make([]Message, len(messages)-start)
	copy(result, messages[start:])
	return result, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
