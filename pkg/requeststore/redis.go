// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey-rp.
//
// go-passkey-rp is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package requeststore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-passkey-rp/pkg/ceremony"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces and versions ceremony keys so schema changes never
// collide with older deployments sharing the same Redis.
const keyPrefix = "ceremony:v1:"

// RedisStore is a Redis-backed request store. Expiry rides on Redis key TTLs
// and consume-once rides on GETDEL, so the single-use guarantee holds across
// relying-party instances sharing the store.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed request store and verifies
// connectivity. A non-positive ttl falls back to DefaultTTL.
func NewRedisStore(ctx context.Context, opts *redis.Options, ttl time.Duration) (*RedisStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// NewRedisStoreFromClient wraps an existing client, for tests and callers
// that manage connections themselves.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return keyPrefix + id
}

// Put stores the pending request with the configured TTL. Request ids are
// freshly minted, so an existing key means an id collision and is rejected.
func (s *RedisStore) Put(ctx context.Context, id string, req *ceremony.PendingRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode pending request: %w", err)
	}
	ok, err := s.client.SetNX(ctx, redisKey(id), payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store pending request: %w", err)
	}
	if !ok {
		return fmt.Errorf("pending request id already in use")
	}
	return nil
}

// GetIfPresent returns the pending request without consuming it.
func (s *RedisStore) GetIfPresent(ctx context.Context, id string) (*ceremony.PendingRequest, error) {
	payload, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ceremony.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to read pending request: %w", err)
	}
	return decodePending(payload)
}

// Invalidate removes the pending request.
func (s *RedisStore) Invalidate(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate pending request: %w", err)
	}
	return nil
}

// Consume atomically retrieves and removes the pending request via GETDEL.
func (s *RedisStore) Consume(ctx context.Context, id string) (*ceremony.PendingRequest, error) {
	payload, err := s.client.GetDel(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ceremony.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to consume pending request: %w", err)
	}
	return decodePending(payload)
}

// Ping verifies connectivity to the Redis server.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodePending(payload []byte) (*ceremony.PendingRequest, error) {
	var req ceremony.PendingRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("failed to decode pending request: %w", err)
	}
	return &req, nil
}
