// Package redisstore persists glimpse request records in Redis. Records are
// stored under glimpse:request:<id> with a TTL and indexed by recency in a
// capped list, so the resource endpoints can serve both point lookups and
// the most recent activity.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/glimpse-go/glimpse"
)

const (
	metadataKey = "glimpse:metadata"
	recentKey   = "glimpse:requests:recent"
	recordKey   = "glimpse:request:"
)

// Store is a Redis-backed glimpse.PersistenceStore.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	keep   int64
}

// Option customizes a Store.
type Option func(*Store)

// WithTTL sets how long records stay readable. Defaults to one hour.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithRecentLimit caps the recency index. Defaults to 100 records.
func WithRecentLimit(n int64) Option {
	return func(s *Store) { s.keep = n }
}

// New creates a Store over an existing Redis client.
func New(client *redis.Client, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	s := &Store{
		client: client,
		ttl:    time.Hour,
		keep:   100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SaveMetadata persists the runtime metadata snapshot.
func (s *Store) SaveMetadata(ctx context.Context, md *glimpse.Metadata) error {
	raw, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := s.client.Set(ctx, metadataKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to store metadata: %w", err)
	}
	return nil
}

// Save persists a request record and records it in the recency index.
func (s *Store) Save(ctx context.Context, rec *glimpse.RequestRecord) error {
	if rec == nil {
		return errors.New("record cannot be nil")
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
	}

	key := recordKey + rec.ID.String()
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store record %s: %w", rec.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, recentKey, rec.ID.String())
	pipe.LTrim(ctx, recentKey, 0, s.keep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index record %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves a record by request identifier.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*glimpse.RequestRecord, error) {
	raw, err := s.client.Get(ctx, recordKey+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, glimpse.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}

	var rec glimpse.RequestRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	return &rec, nil
}

// Recent returns up to n records, most recent first. Records evicted by TTL
// are skipped.
func (s *Store) Recent(ctx context.Context, n int) ([]*glimpse.RequestRecord, error) {
	if n <= 0 || int64(n) > s.keep {
		n = int(s.keep)
	}

	ids, err := s.client.LRange(ctx, recentKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recency index: %w", err)
	}

	out := make([]*glimpse.RequestRecord, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		rec, err := s.Get(ctx, id)
		if errors.Is(err, glimpse.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
