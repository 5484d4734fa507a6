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

// Package credentials defines the durable credential repository used by the
// ceremony orchestrator and, on its read side, by the WebAuthn verifier when
// it validates assertions.
package credentials

import (
	"context"
	"errors"
)

// Sentinel errors for repository operations.
var (
	// ErrDuplicateCredential is returned when a credential id already exists
	// anywhere in the repository, for any user.
	ErrDuplicateCredential = errors.New("credential already registered")

	// ErrRegistrationNotFound is returned when no registration matches the
	// given username and credential id.
	ErrRegistrationNotFound = errors.New("registration not found")

	// ErrCounterRegression is returned when a signature-counter update would
	// move the counter backwards, which signals a possibly cloned
	// authenticator.
	ErrCounterRegression = errors.New("signature counter regression")
)

// Reader is the lookup contract. The verifier consumes it to resolve
// credentials by username or user handle during assertion validation.
type Reader interface {
	// RegistrationsByUsername returns all registrations for a username.
	// Unknown usernames yield an empty slice, not an error.
	RegistrationsByUsername(ctx context.Context, username string) ([]*Registration, error)

	// RegistrationsByUserHandle returns all registrations whose user handle
	// matches, supporting discoverable-credential assertion lookups.
	RegistrationsByUserHandle(ctx context.Context, handle []byte) ([]*Registration, error)

	// RegistrationByUsernameAndCredentialID returns the matching
	// registration, or ErrRegistrationNotFound.
	RegistrationByUsernameAndCredentialID(ctx context.Context, username string, credentialID []byte) (*Registration, error)

	// UserExists reports whether the username has at least one registration.
	UserExists(ctx context.Context, username string) (bool, error)

	// CredentialIDsForUsername returns descriptors for all of the user's
	// credentials.
	CredentialIDsForUsername(ctx context.Context, username string) ([]Descriptor, error)
}

// Repository is the full credential repository contract. All mutating
// operations are atomic per credential: no partial update is ever
// observable.
type Repository interface {
	Reader

	// AddRegistration stores a new registration. Fails with
	// ErrDuplicateCredential if the credential id exists for any user.
	AddRegistration(ctx context.Context, username string, reg *Registration) error

	// UpdateCredentialNickname renames a credential. Fails with
	// ErrRegistrationNotFound if no registration matches.
	UpdateCredentialNickname(ctx context.Context, username string, credentialID []byte, nickname string) error

	// UpdateSignatureCount applies a verifier-reported counter value.
	// A value lower than the stored one fails with ErrCounterRegression.
	UpdateSignatureCount(ctx context.Context, upd CounterUpdate) error

	// RemoveRegistration deletes one credential. Returns false when no
	// registration matched.
	RemoveRegistration(ctx context.Context, username string, credentialID []byte) (bool, error)

	// RemoveAllRegistrations deletes every credential for a username.
	RemoveAllRegistrations(ctx context.Context, username string) error
}
