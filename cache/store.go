package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTTL is the time-to-live applied when a store is created without
// an explicit one.
const DefaultTTL = 24 * time.Hour

// Store caches entities of one type as JSON documents under a shared key
// prefix, typically the table or collection name the repository reads
// from.
type Store[E any] struct {
	cache  *Cache
	prefix string
	ttl    time.Duration
}

// NewStore creates an entity store on a cache. A non-positive ttl falls
// back to DefaultTTL.
func NewStore[E any](c *Cache, prefix string, ttl time.Duration) *Store[E] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store[E]{cache: c, prefix: prefix, ttl: ttl}
}

// Get retrieves a cached entity by id. Returns ErrCacheMiss when the key
// is absent; a corrupted entry is treated as a miss and dropped.
func (s *Store[E]) Get(ctx context.Context, id string) (E, error) {
	var out E

	data, err := s.cache.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		return out, ErrCacheMiss
	}

	if err := json.Unmarshal(data, &out); err != nil {
		s.cache.client.Del(ctx, s.key(id))
		return out, ErrCacheMiss
	}
	return out, nil
}

// Set caches an entity under its id.
func (s *Store[E]) Set(ctx context.Context, id string, record E) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal cached entity: %w", err)
	}
	return s.cache.client.Set(ctx, s.key(id), data, s.ttl).Err()
}

// Delete removes a cached entity. Missing keys are not an error.
func (s *Store[E]) Delete(ctx context.Context, id string) error {
	return s.cache.client.Del(ctx, s.key(id)).Err()
}

// GetOrFetch returns the cached entity when present, otherwise loads it
// through fetch and caches the result. Caching failures do not fail the
// read.
func (s *Store[E]) GetOrFetch(ctx context.Context, id string, fetch func(context.Context) (E, error)) (E, error) {
	if record, err := s.Get(ctx, id); err == nil {
		return record, nil
	}

	record, err := fetch(ctx)
	if err != nil {
		return record, err
	}

	_ = s.Set(ctx, id, record)
	return record, nil
}

// Invalidate removes every cached entity under the store's prefix. It
// scans the keyspace, so it is meant for administrative flushes rather
// than request paths.
func (s *Store[E]) Invalidate(ctx context.Context) error {
	iter := s.cache.client.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("invalidate %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

func (s *Store[E]) key(id string) string {
	return s.prefix + ":" + id
}
