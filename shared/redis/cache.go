package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TombstoneTTL bounds how long an invalidated key refuses read fills. It must
// outlive any read that started before the invalidation.
const TombstoneTTL = time.Minute

const tombstone = "~"

// ViewCache is a JSON-backed Redis cache of T keyed by prefix+id.
// A zero TTL stores keys without expiry.
type ViewCache[T any] struct {
	client goredis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewViewCache[T any](client goredis.Cmdable, prefix string, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{client: client, prefix: prefix, ttl: ttl}
}

func (c *ViewCache[T]) key(id string) string {
	return c.prefix + id
}

// Get returns (nil, false) on a miss, a tombstone, a Redis error, or
// undecodable data.
func (c *ViewCache[T]) Get(ctx context.Context, id string) (*T, bool) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			log.Printf("ViewCache: read error for key %s: %v", c.key(id), err)
		}
		return nil, false
	}
	if string(data) == tombstone {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		log.Printf("ViewCache: decode error for key %s: %v", c.key(id), err)
		return nil, false
	}
	return &v, true
}

// Set writes value unconditionally. Writers use it so the cache holds the
// row they just committed. Errors are logged, never returned.
func (c *ViewCache[T]) Set(ctx context.Context, id string, value *T) {
	data, ok := c.encode(id, value)
	if !ok {
		return
	}
	if err := c.client.Set(ctx, c.key(id), data, c.ttl).Err(); err != nil {
		log.Printf("ViewCache: write error for key %s: %v", c.key(id), err)
	}
}

// Fill stores value only when the key is absent. Readers use it so a row
// loaded before a concurrent write or invalidation cannot replace it.
func (c *ViewCache[T]) Fill(ctx context.Context, id string, value *T) {
	data, ok := c.encode(id, value)
	if !ok {
		return
	}
	if err := c.client.SetNX(ctx, c.key(id), data, c.ttl).Err(); err != nil {
		log.Printf("ViewCache: fill error for key %s: %v", c.key(id), err)
	}
}

func (c *ViewCache[T]) encode(id string, value *T) ([]byte, bool) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("ViewCache: marshal error for key %s: %v", c.key(id), err)
		return nil, false
	}
	return data, true
}

// Invalidate replaces the entries for all ids with short-lived tombstones in
// one round trip, so in-flight reads cannot refill them with stale data.
func (c *ViewCache[T]) Invalidate(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	pipe := c.client.Pipeline()
	for _, id := range ids {
		pipe.Set(ctx, c.key(id), tombstone, TombstoneTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("ViewCache: invalidate error for %d key(s): %v", len(ids), err)
	}
}
