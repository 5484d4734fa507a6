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
	"bytes"
	"time"
)

// UserIdentity identifies a relying-party user. The ID is the WebAuthn user
// handle: generated once per username and shared by every credential the
// user registers afterwards.
type UserIdentity struct {
	// ID is the opaque user handle presented to authenticators.
	ID []byte `json:"id"`

	// Name is the unique, user-chosen username.
	Name string `json:"name"`

	// DisplayName is the human-friendly name shown in authenticator prompts.
	DisplayName string `json:"display_name"`
}

// AttestationMetadata is enrichment data derived from a FIDO metadata
// statement at registration time. It is immutable once attached to a
// Registration and never persisted independently.
type AttestationMetadata struct {
	AAGUID          string   `json:"aaguid,omitempty"`
	AAID            string   `json:"aaid,omitempty"`
	AttachmentHints []string `json:"attachment_hints,omitempty"`
	Icon            string   `json:"icon,omitempty"`
	Description     string   `json:"description,omitempty"`
	Transports      []string `json:"transports,omitempty"`
}

// Registration is a credential registered with the relying party.
//
// CredentialID is globally unique across the whole repository; the signature
// counter only moves forward (a regression is rejected by the repository,
// never silently accepted).
type Registration struct {
	// User is the identity the credential belongs to.
	User UserIdentity `json:"user"`

	// CredentialID is the credential identifier assigned by the authenticator.
	CredentialID []byte `json:"credential_id"`

	// PublicKey is the credential public key in COSE format.
	PublicKey []byte `json:"public_key"`

	// SignatureCount is the authenticator's signature counter as last
	// reported by a verified ceremony.
	SignatureCount uint64 `json:"signature_count"`

	// Nickname is the human-facing label, derived from attestation metadata
	// or a default at registration and editable afterwards.
	Nickname string `json:"nickname,omitempty"`

	// Transports lists the transports the authenticator reported supporting.
	Transports []string `json:"transports,omitempty"`

	RegisteredAt  time.Time `json:"registered_at"`
	LastUsedAt    time.Time `json:"last_used_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`

	// Attestation is optional metadata enrichment; nil when no metadata
	// statement was resolved.
	Attestation *AttestationMetadata `json:"attestation,omitempty"`
}

// Clone returns a deep copy so stored registrations cannot be mutated
// through returned pointers.
func (r *Registration) Clone() *Registration {
	if r == nil {
		return nil
	}
	out := *r
	out.User.ID = bytes.Clone(r.User.ID)
	out.CredentialID = bytes.Clone(r.CredentialID)
	out.PublicKey = bytes.Clone(r.PublicKey)
	out.Transports = append([]string(nil), r.Transports...)
	if r.Attestation != nil {
		att := *r.Attestation
		att.AttachmentHints = append([]string(nil), r.Attestation.AttachmentHints...)
		att.Transports = append([]string(nil), r.Attestation.Transports...)
		out.Attestation = &att
	}
	return &out
}

// Descriptor is a public-key credential descriptor, the shape the client
// needs to scope an assertion to known credentials.
type Descriptor struct {
	Type         string   `json:"type"`
	CredentialID []byte   `json:"id"`
	Transports   []string `json:"transports,omitempty"`
}

// CredentialType is the only credential type WebAuthn defines.
const CredentialType = "public-key"

// Descriptor returns the registration's credential descriptor.
func (r *Registration) Descriptor() Descriptor {
	return Descriptor{
		Type:         CredentialType,
		CredentialID: bytes.Clone(r.CredentialID),
		Transports:   append([]string(nil), r.Transports...),
	}
}

// CounterUpdate carries the verifier-reported result of a successful
// assertion to the repository's signature-counter bookkeeping.
type CounterUpdate struct {
	Username          string
	CredentialID      []byte
	NewSignatureCount uint64
	UsedAt            time.Time
}
