package consent

import (
	"context"
	"sort"
	"sync"
)

type memoryRecord struct {
	Record
	seq uint64
}

// MemoryStore keeps records in process memory. It backs unit tests and
// mirrors the append/prune behavior of the Postgres store, including
// insertion-order tie-breaking for records sharing a timestamp.
type MemoryStore struct {
	mu      sync.Mutex
	nextSeq uint64
	byType  map[Type][]memoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byType: map[Type][]memoryRecord{}}
}

func (s *MemoryStore) AppendRecords(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.nextSeq++
		s.byType[record.Type] = append(s.byType[record.Type], memoryRecord{Record: record, seq: s.nextSeq})
		if excess := len(s.byType[record.Type]) - AuditCap; excess > 0 {
			s.byType[record.Type] = s.byType[record.Type][excess:]
		}
	}
	return nil
}

func (s *MemoryStore) RecordsByType(_ context.Context, t Type, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.byType[t]
	var out []Record
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i].Record)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) LatestByType(_ context.Context) (map[Type]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Type]Record, len(s.byType))
	for t, stored := range s.byType {
		if len(stored) > 0 {
			out[t] = stored[len(stored)-1].Record
		}
	}
	return out, nil
}

func (s *MemoryStore) AllRecords(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []memoryRecord
	for _, stored := range s.byType {
		all = append(all, stored...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq > all[j].seq })
	out := make([]Record, 0, len(all))
	for _, record := range all {
		out = append(out, record.Record)
	}
	return out, nil
}
