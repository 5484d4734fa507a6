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
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-passkey-rp/pkg/credentials"
)

// Kind distinguishes the two ceremony state machines.
type Kind string

const (
	KindRegistration   Kind = "registration"
	KindAuthentication Kind = "authentication"
)

// Attachment constrains the authenticator form factor a registration accepts.
type Attachment string

const (
	AttachmentAny           Attachment = ""
	AttachmentPlatform      Attachment = "platform"
	AttachmentCrossPlatform Attachment = "cross-platform"
)

// ParseAttachment maps the wire values accepted by the start-registration
// operation. Unrecognized values mean "any", matching the permissive
// handling clients rely on.
func ParseAttachment(value string) Attachment {
	switch value {
	case "PLATFORM":
		return AttachmentPlatform
	case "CROSS_PLATFORM":
		return AttachmentCrossPlatform
	}
	return AttachmentAny
}

// AuthenticatorSelection parameterizes the verifier's challenge construction
// for a registration ceremony.
type AuthenticatorSelection struct {
	// ResidentKey is the resident-key requirement: "required", "preferred"
	// or "discouraged".
	ResidentKey string

	// Attachment optionally forces platform or cross-platform authenticators.
	Attachment Attachment

	// UserVerification is the user-verification preference.
	UserVerification string
}

// ChallengeOptions is the verifier-issued challenge state for one ceremony.
// PublicKey is the client-facing options document; SessionState is
// verifier-private and never leaves the server. Both are opaque to the
// orchestrator.
type ChallengeOptions struct {
	PublicKey    json.RawMessage `json:"public_key"`
	SessionState []byte          `json:"session_state,omitempty"`
}

// PendingRequest is the server-side state of a started ceremony, held by the
// request store until it is consumed exactly once or expires.
type PendingRequest struct {
	RequestID string                   `json:"request_id"`
	Kind      Kind                     `json:"kind"`
	Username  string                   `json:"username,omitempty"`
	User      credentials.UserIdentity `json:"user,omitempty"`
	Selection AuthenticatorSelection   `json:"selection,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	Options   ChallengeOptions         `json:"options"`
}

// RegistrationResult is what the verifier reports for an accepted
// registration response.
type RegistrationResult struct {
	CredentialID    []byte
	PublicKey       []byte
	SignatureCount  uint64
	AAGUID          uuid.UUID
	AttestationType string

	// TrustPath holds the DER-encoded attestation certificate chain, used
	// by the metadata source to locate entries for the trust anchor.
	TrustPath [][]byte

	Transports []string
	Attachment Attachment
}

// AssertionResult is what the verifier reports for an assertion response.
// Success false without an error is still a verification failure.
type AssertionResult struct {
	Success           bool   `json:"success"`
	Username          string `json:"username"`
	UserHandle        []byte `json:"user_handle,omitempty"`
	CredentialID      []byte `json:"credential_id"`
	NewSignatureCount uint64 `json:"new_signature_count"`

	// CloneWarning is set when the verifier observed a counter regression
	// it chose to tolerate (a possible cloned authenticator).
	CloneWarning bool `json:"clone_warning,omitempty"`
}

// Verifier is the external WebAuthn verification capability. It constructs
// challenges and performs all cryptographic and protocol validation; the
// orchestrator treats its inputs and outputs as opaque.
type Verifier interface {
	StartRegistration(ctx context.Context, user credentials.UserIdentity, sel AuthenticatorSelection) (*ChallengeOptions, error)
	FinishRegistration(ctx context.Context, opts ChallengeOptions, response []byte) (*RegistrationResult, error)

	// StartAssertion builds assertion options. An empty username selects the
	// discoverable-credential flow.
	StartAssertion(ctx context.Context, username string, userVerification string) (*ChallengeOptions, error)
	FinishAssertion(ctx context.Context, opts ChallengeOptions, response []byte) (*AssertionResult, error)
}

// AttestationResolver resolves optional attestation metadata for a completed
// registration. Failures are absorbed by the orchestrator; resolution never
// blocks ceremony success.
type AttestationResolver interface {
	Resolve(ctx context.Context, result *RegistrationResult) (*credentials.AttestationMetadata, error)
}

// RequestStore holds pending ceremony requests keyed by request id.
//
// Consume must be atomic with respect to other consumers of the same id:
// of two racing Consume calls, exactly one receives the request and the
// other receives ErrRequestNotFound. Entries expire after the store's TTL;
// an expired entry is indistinguishable from an absent one.
type RequestStore interface {
	Put(ctx context.Context, id string, req *PendingRequest) error
	GetIfPresent(ctx context.Context, id string) (*PendingRequest, error)
	Invalidate(ctx context.Context, id string) error

	// Consume atomically retrieves and invalidates the request.
	Consume(ctx context.Context, id string) (*PendingRequest, error)
}
