package glimpse

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned by stores when no record exists for an
// identifier.
var ErrRecordNotFound = errors.New("request record not found")

// PersistenceStore saves diagnostic records and serves them back to the
// resource endpoints. Save failures are caught by the runtime and logged;
// they never propagate to the host.
type PersistenceStore interface {
	// SaveMetadata persists the runtime metadata snapshot.
	SaveMetadata(ctx context.Context, md *Metadata) error

	// Save persists a request record.
	Save(ctx context.Context, rec *RequestRecord) error

	// Get retrieves a record by request identifier.
	Get(ctx context.Context, id uuid.UUID) (*RequestRecord, error)

	// Recent returns up to n records, most recent first.
	Recent(ctx context.Context, n int) ([]*RequestRecord, error)
}

// memoryStore is an in-memory PersistenceStore bounded to the most recent
// records.
type memoryStore struct {
	mu       sync.RWMutex
	capacity int
	records  map[uuid.UUID]*RequestRecord
	order    []uuid.UUID
	metadata *Metadata
}

// NewMemoryStore creates an in-memory store holding at most capacity
// records. Older records are evicted first.
func NewMemoryStore(capacity int) PersistenceStore {
	if capacity <= 0 {
		capacity = 50
	}
	return &memoryStore{
		capacity: capacity,
		records:  make(map[uuid.UUID]*RequestRecord),
	}
}

// SaveMetadata persists the runtime metadata snapshot.
func (s *memoryStore) SaveMetadata(ctx context.Context, md *Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = md
	return nil
}

// Save persists a request record, evicting the oldest once over capacity.
func (s *memoryStore) Save(ctx context.Context, rec *RequestRecord) error {
	if rec == nil {
		return errors.New("record cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec

	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.records, oldest)
	}
	return nil
}

// Get retrieves a record by request identifier.
func (s *memoryStore) Get(ctx context.Context, id uuid.UUID) (*RequestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

// Recent returns up to n records, most recent first.
func (s *memoryStore) Recent(ctx context.Context, n int) ([]*RequestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.order) {
		n = len(s.order)
	}

	out := make([]*RequestRecord, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[s.order[i]])
	}
	return out, nil
}

// Metadata returns the stored metadata snapshot (useful for stats/testing).
func (s *memoryStore) Metadata() *Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}
