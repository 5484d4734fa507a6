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

// Package requeststore provides ceremony.RequestStore implementations: an
// in-memory store for single-instance deployments and tests, and a Redis
// store for deployments where any instance may finish a ceremony another
// instance started.
package requeststore

import (
	"context"
	"sync"
	"time"

	"github.com/jeremyhahn/go-passkey-rp/pkg/ceremony"
)

// DefaultTTL matches the few minutes a user reasonably needs to complete an
// authenticator interaction.
const DefaultTTL = 5 * time.Minute

type memoryEntry struct {
	req       *ceremony.PendingRequest
	expiresAt time.Time
}

// MemoryStore is an in-memory request store with TTL-based expiry. Expired
// entries are rejected on read and reaped by Cleanup.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	clock   func() time.Time
}

// NewMemoryStore creates a memory-backed request store. A non-positive ttl
// falls back to DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		clock:   time.Now,
	}
}

// Put stores the pending request under id, resetting its TTL.
func (s *MemoryStore) Put(ctx context.Context, id string, req *ceremony.PendingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{req: req, expiresAt: s.clock().Add(s.ttl)}
	return nil
}

// GetIfPresent returns the pending request without consuming it. Expired
// entries read as absent.
func (s *MemoryStore) GetIfPresent(ctx context.Context, id string) (*ceremony.PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ceremony.ErrRequestNotFound
	}
	if s.clock().After(entry.expiresAt) {
		delete(s.entries, id)
		return nil, ceremony.ErrRequestNotFound
	}
	return entry.req, nil
}

// Invalidate removes the pending request. Removing an absent id is not an
// error.
func (s *MemoryStore) Invalidate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Consume atomically retrieves and removes the pending request. Of two
// racing consumers exactly one succeeds; the other sees ErrRequestNotFound.
func (s *MemoryStore) Consume(ctx context.Context, id string) (*ceremony.PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ceremony.ErrRequestNotFound
	}
	delete(s.entries, id)
	if s.clock().After(entry.expiresAt) {
		return nil, ceremony.ErrRequestNotFound
	}
	return entry.req, nil
}

// Cleanup removes all expired entries and returns how many were removed.
func (s *MemoryStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	removed := 0
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries, including not-yet-reaped expired
// ones.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartCleanupRoutine reaps expired entries every interval until the context
// is cancelled.
func (s *MemoryStore) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}
