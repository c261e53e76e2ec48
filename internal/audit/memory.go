package audit

import (
	"context"
	"sync"
)

// MemorySink is an in-memory sink useful for tests and local development.
// It mirrors the keyed-overwrite semantics of the real sink.
type MemorySink struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemorySink() *MemorySink {
	return &MemorySink{records: make(map[string]Record)}
}

func (s *MemorySink) Write(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.RequestID] = rec
	return nil
}

// Records returns a snapshot of all stored records.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out
}

// Get returns the record for a request ID, if present.
func (s *MemorySink) Get(requestID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[requestID]
	return rec, ok
}
