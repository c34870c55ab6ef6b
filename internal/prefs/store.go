// Package prefs persists per-user UI preferences as JSON documents in Redis.
//
// The core consumes this through narrow reads; preference shape is owned by
// the callers, the store only round-trips JSON.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-gov/meridian/internal/shared"
)

// Store reads and writes preference documents keyed by user and name.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore builds Store instance. A ttl of zero keeps preferences forever.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get unmarshals the stored preference into dest. shared.ErrNotFound when
// the user has no such preference.
func (s *Store) Get(ctx context.Context, userID, name string, dest any) error {
	if s == nil || s.client == nil {
		return shared.ErrNotFound
	}
	payload, err := s.client.HGet(ctx, prefsKey(userID), name).Bytes()
	if errors.Is(err, redis.Nil) {
		return shared.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}

// Set stores the preference value as JSON.
func (s *Store) Set(ctx context.Context, userID, name string, value any) error {
	if s == nil || s.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	key := prefsKey(userID)
	if err := s.client.HSet(ctx, key, name, raw).Err(); err != nil {
		return err
	}
	if s.ttl > 0 {
		return s.client.Expire(ctx, key, s.ttl).Err()
	}
	return nil
}

// Delete removes one preference. Missing entries are not an error.
func (s *Store) Delete(ctx context.Context, userID, name string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.HDel(ctx, prefsKey(userID), name).Err()
}

// All returns every preference document stored for the user.
func (s *Store) All(ctx context.Context, userID string) (map[string]json.RawMessage, error) {
	if s == nil || s.client == nil {
		return map[string]json.RawMessage{}, nil
	}
	entries, err := s.client.HGetAll(ctx, prefsKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(entries))
	for name, raw := range entries {
		out[name] = json.RawMessage(raw)
	}
	return out, nil
}

func prefsKey(userID string) string {
	return "prefs:" + userID
}
