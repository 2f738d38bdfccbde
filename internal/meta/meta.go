// Package meta stores one cache-freshness record per destination category
// in a lightweight key-value store, and decides when cached data for a
// category has gone stale.
package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultWindow is how long cached category data stays fresh.
const DefaultWindow = 24 * time.Hour

const keyPrefix = "cachemeta:"

// Metadata records the last successful save of one category key.
type Metadata struct {
	Key           string        `json:"key"`
	LastRefreshed time.Time     `json:"last_refreshed"`
	Window        time.Duration `json:"window"`
}

// Store keeps Metadata records in redis with upsert semantics: exactly one
// record per key, overwritten on every successful category save.
type Store struct {
	client *redis.Client
	window time.Duration
	now    func() time.Time
}

// NewStore constructs a Store with the default 24h expiration window.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client, window: DefaultWindow, now: time.Now}
}

// NewStoreWithWindow constructs a Store with a custom window (for tests).
func NewStoreWithWindow(client *redis.Client, window time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{client: client, window: window, now: now}
}

// Get retrieves the metadata record for key. Returns nil, nil when no
// record exists; absence is treated as expired by the policy.
func (s *Store) Get(ctx context.Context, key string) (*Metadata, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("metadata get for %s: %w", key, err)
	}

	var md Metadata
	if err := json.Unmarshal([]byte(val), &md); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata for %s: %w", key, err)
	}

	return &md, nil
}

// Put upserts the record for key with LastRefreshed set to now.
func (s *Store) Put(ctx context.Context, key string) error {
	md := Metadata{Key: key, LastRefreshed: s.now(), Window: s.window}

	b, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %s: %w", key, err)
	}

	// No redis TTL: expiration is the policy's call, and an expired record
	// must still be readable to distinguish stale from never-fetched.
	if err := s.client.Set(ctx, keyPrefix+key, b, 0).Err(); err != nil {
		return fmt.Errorf("metadata put for %s: %w", key, err)
	}

	return nil
}

// Delete removes the record for key. Deleting an absent key is not an
// error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("metadata delete for %s: %w", key, err)
	}
	return nil
}

// IsExpired reports whether cached data for key should be considered
// stale: true when no record exists or the record's window has elapsed.
func (s *Store) IsExpired(ctx context.Context, key string) (bool, error) {
	md, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return Expired(md, s.now()), nil
}

// Expired is the pure freshness rule: a nil record is expired, otherwise
// the record is expired once strictly more than Window has passed since
// LastRefreshed. At exactly the window boundary the record is still fresh.
func Expired(md *Metadata, now time.Time) bool {
	if md == nil {
		return true
	}
	return now.Sub(md.LastRefreshed) > md.Window
}
