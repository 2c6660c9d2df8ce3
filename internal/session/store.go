// Package session persists the set of currently-valid tokens in Redis.
//
// A record's presence in the store is what makes a token "active": deleting
// it revokes access immediately, regardless of the token's own signed
// expiry. Redis key TTLs provide the passive expiry sweep, so no in-process
// timer is needed.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a token has no active session record,
// either because it was never issued, was revoked, or has expired.
var ErrNotFound = errors.New("session not found")

const keyPrefix = "session:"

// Store records active sessions as Redis keys with a TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a Store over the given Redis client. Every record it
// writes expires after ttl, which must match the signed token lifetime.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Save records token as an active session for userID.
func (s *Store) Save(ctx context.Context, token, userID string) error {
	return s.rdb.Set(ctx, keyPrefix+token, userID, s.ttl).Err()
}

// UserID returns the owning user of an active session, or ErrNotFound.
func (s *Store) UserID(ctx context.Context, token string) (string, error) {
	userID, err := s.rdb.Get(ctx, keyPrefix+token).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// Delete revokes a session. It returns ErrNotFound when no record matched,
// so callers can distinguish revocation from an already-absent token.
func (s *Store) Delete(ctx context.Context, token string) error {
	deleted, err := s.rdb.Del(ctx, keyPrefix+token).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

// Count reports the number of active sessions. Used by the stats updater;
// it scans rather than keeping a counter, which is fine at this scale.
func (s *Store) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return 0, err
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}
