package retention

import (
	"context"
	"sync"
)

// MemoryStore keeps policies and purge history in process memory for
// tests and single-process setups.
type MemoryStore struct {
	mu       sync.Mutex
	policies map[Category]Policy
	reports  []PurgeReport
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{policies: map[Category]Policy{}}
}

func (s *MemoryStore) Policy(_ context.Context, category Category) (*Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	policy, ok := s.policies[category]
	if !ok {
		return nil, nil
	}
	return &policy, nil
}

func (s *MemoryStore) SavePolicy(_ context.Context, policy Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[policy.Category] = policy
	return nil
}

func (s *MemoryStore) AppendReport(_ context.Context, report PurgeReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	if excess := len(s.reports) - ReportCap; excess > 0 {
		s.reports = s.reports[excess:]
	}
	return nil
}

func (s *MemoryStore) LatestReport(_ context.Context) (*PurgeReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reports) == 0 {
		return nil, nil
	}
	report := s.reports[len(s.reports)-1]
	return &report, nil
}

func (s *MemoryStore) Reports(_ context.Context, limit int) ([]PurgeReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PurgeReport
	for i := len(s.reports) - 1; i >= 0; i-- {
		out = append(out, s.reports[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
