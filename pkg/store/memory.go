package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stackaudit/stackaudit/pkg/aggregator"
	"github.com/stackaudit/stackaudit/pkg/errors"
)

// MemoryStore keeps reports in process memory. Reports are stored as
// JSON snapshots so later mutation of a saved result never leaks into a
// stored report.
//
// Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string][]byte
	order   []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string][]byte)}
}

// SaveResult stores a JSON snapshot of the result under requestID.
func (s *MemoryStore) SaveResult(_ context.Context, requestID string, result *aggregator.AggregationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "encoding report")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[requestID]; !exists {
		s.order = append(s.order, requestID)
	}
	s.reports[requestID] = data
	return nil
}

// GetResult retrieves a stored report.
func (s *MemoryStore) GetResult(_ context.Context, requestID string) (*aggregator.AggregationResult, error) {
	s.mu.RLock()
	data, ok := s.reports[requestID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeReportNotFound, "no report for request %s", requestID)
	}

	var result aggregator.AggregationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decoding report")
	}
	return &result, nil
}

// ListRequestIDs returns stored ids in reverse insertion order, so the
// newest report leads.
func (s *MemoryStore) ListRequestIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		ids = append(ids, s.order[i])
	}
	return ids, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(context.Context) error { return nil }
