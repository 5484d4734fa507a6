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

package ceremony

import (
	"errors"
	"fmt"
)

// Sentinel errors for ceremony operations.
var (
	// ErrMalformedRequest is returned when a required field is missing or
	// invalid. Always a client error.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrUnknownUser is returned when authentication is started for a named
	// user with no registrations.
	ErrUnknownUser = errors.New("username is not registered")

	// ErrUnknownCeremony is returned when a finish call references a request
	// id that is absent, expired, or already consumed.
	ErrUnknownCeremony = errors.New("no such ceremony in progress")

	// ErrVerificationFailed is returned when the verifier rejects a
	// registration or assertion response. Terminal for the ceremony.
	ErrVerificationFailed = errors.New("ceremony verification failed")

	// ErrRequestNotFound is returned by a RequestStore when the id is absent
	// or expired. The orchestrator surfaces it as ErrUnknownCeremony.
	ErrRequestNotFound = errors.New("pending request not found")

	// ErrStorage is returned when the credential repository is unavailable.
	// Transient; the whole ceremony is safe to retry from start.
	ErrStorage = errors.New("storage failure")
)

// Error wraps an error with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// IsUnknownCeremony returns true if the error indicates a missing, expired,
// or already-consumed ceremony.
func IsUnknownCeremony(err error) bool {
	return errors.Is(err, ErrUnknownCeremony)
}

// IsVerificationFailed returns true if the error indicates the verifier
// rejected the response.
func IsVerificationFailed(err error) bool {
	return errors.Is(err, ErrVerificationFailed)
}
