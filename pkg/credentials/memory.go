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

package credentials

import (
	"context"
	"encoding/hex"
	"sync"
	"time"
)

// MemoryRepository is an in-memory implementation of Repository, intended
// for development and testing.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]*Registration
	byUsername map[string]map[string]*Registration
}

// NewMemoryRepository creates a new in-memory credential repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[string]*Registration),
		byUsername: make(map[string]map[string]*Registration),
	}
}

func (r *MemoryRepository) RegistrationsByUsername(ctx context.Context, username string) ([]*Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := make([]*Registration, 0, len(r.byUsername[username]))
	for _, reg := range r.byUsername[username] {
		regs = append(regs, reg.Clone())
	}
	return regs, nil
}

func (r *MemoryRepository) RegistrationsByUserHandle(ctx context.Context, handle []byte) ([]*Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := hex.EncodeToString(handle)
	var regs []*Registration
	for _, reg := range r.byID {
		if hex.EncodeToString(reg.User.ID) == key {
			regs = append(regs, reg.Clone())
		}
	}
	return regs, nil
}

func (r *MemoryRepository) RegistrationByUsernameAndCredentialID(ctx context.Context, username string, credentialID []byte) (*Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byUsername[username][hex.EncodeToString(credentialID)]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	return reg.Clone(), nil
}

func (r *MemoryRepository) UserExists(ctx context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUsername[username]) > 0, nil
}

func (r *MemoryRepository) CredentialIDsForUsername(ctx context.Context, username string) ([]Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]Descriptor, 0, len(r.byUsername[username]))
	for _, reg := range r.byUsername[username] {
		descs = append(descs, reg.Descriptor())
	}
	return descs, nil
}

// AddRegistration stores a new registration. The credential-id index is
// global, so the duplicate check spans all users.
func (r *MemoryRepository) AddRegistration(ctx context.Context, username string, reg *Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	credKey := hex.EncodeToString(reg.CredentialID)
	if _, ok := r.byID[credKey]; ok {
		return ErrDuplicateCredential
	}

	stored := reg.Clone()
	r.byID[credKey] = stored
	if r.byUsername[username] == nil {
		r.byUsername[username] = make(map[string]*Registration)
	}
	r.byUsername[username][credKey] = stored
	return nil
}

func (r *MemoryRepository) UpdateCredentialNickname(ctx context.Context, username string, credentialID []byte, nickname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.byUsername[username][hex.EncodeToString(credentialID)]
	if !ok {
		return ErrRegistrationNotFound
	}
	reg.Nickname = nickname
	reg.LastUpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) UpdateSignatureCount(ctx context.Context, upd CounterUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.byUsername[upd.Username][hex.EncodeToString(upd.CredentialID)]
	if !ok {
		return ErrRegistrationNotFound
	}
	if upd.NewSignatureCount < reg.SignatureCount {
		return ErrCounterRegression
	}
	reg.SignatureCount = upd.NewSignatureCount
	reg.LastUsedAt = upd.UsedAt
	reg.LastUpdatedAt = upd.UsedAt
	return nil
}

func (r *MemoryRepository) RemoveRegistration(ctx context.Context, username string, credentialID []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	credKey := hex.EncodeToString(credentialID)
	if _, ok := r.byUsername[username][credKey]; !ok {
		return false, nil
	}
	delete(r.byUsername[username], credKey)
	if len(r.byUsername[username]) == 0 {
		delete(r.byUsername, username)
	}
	delete(r.byID, credKey)
	return true, nil
}

func (r *MemoryRepository) RemoveAllRegistrations(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for credKey := range r.byUsername[username] {
		delete(r.byID, credKey)
	}
	delete(r.byUsername, username)
	return nil
}

// Count returns the total number of registrations in the repository.
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Clear removes all registrations.
func (r *MemoryRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*Registration)
	r.byUsername = make(map[string]map[string]*Registration)
}
