package audit

import (
	"context"
	"sync"
)

// MemoryStore backs unit tests and single-process setups without Postgres.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter, limit, offset int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := s.filtered(filter)
	// newest first
	var out []Event
	for i := len(matched) - 1; i >= 0; i-- {
		out = append(out, matched[i])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context, filter Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.filtered(filter)), nil
}

func (s *MemoryStore) filtered(filter Filter) []Event {
	var matched []Event
	for _, evt := range s.events {
		if filter.Action != "" && evt.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && evt.EntityType != filter.EntityType {
			continue
		}
		matched = append(matched, evt)
	}
	return matched
}
