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

// Package metadata resolves FIDO Metadata Service (MDS) attestation metadata
// for newly registered credentials. The resolver is best-effort by contract:
// a lookup failure or an empty result never fails the registration it
// enriches.
package metadata

import (
	"context"

	"github.com/jeremyhahn/go-passkey-rp/pkg/ceremony"
)

// Entry is one MDS BLOB payload entry, reduced to the fields the relying
// party consumes.
type Entry struct {
	// AAGUID identifies FIDO2 authenticator models, lowercase hex with
	// dashes as published in the BLOB.
	AAGUID string `json:"aaguid,omitempty"`

	// AAID identifies UAF authenticator models.
	AAID string `json:"aaid,omitempty"`

	// MetadataStatement may be absent for entries published for status
	// reporting only.
	MetadataStatement *Statement `json:"metadataStatement,omitempty"`
}

// Statement is the entry's metadata statement, reduced to the fields the
// relying party consumes.
type Statement struct {
	AAGUID      string `json:"aaguid,omitempty"`
	AAID        string `json:"aaid,omitempty"`
	Description string `json:"description,omitempty"`

	// Icon is a data: URL with a PNG image of the authenticator.
	Icon string `json:"icon,omitempty"`

	// AttachmentHint describes how the authenticator connects ("internal",
	// "external", "wired", "wireless", "nfc", ...).
	AttachmentHint []string `json:"attachmentHint,omitempty"`

	AuthenticatorGetInfo *GetInfo `json:"authenticatorGetInfo,omitempty"`
}

// GetInfo mirrors the authenticatorGetInfo section of a metadata statement.
type GetInfo struct {
	Transports []string `json:"transports,omitempty"`
}

// Transports returns the statement's transports, empty when no
// authenticatorGetInfo section is present.
func (s *Statement) Transports() []string {
	if s.AuthenticatorGetInfo == nil {
		return nil
	}
	return s.AuthenticatorGetInfo.Transports
}

// Source yields candidate metadata entries for a completed registration.
// Implementations may pre-filter by trust anchor or return the whole BLOB
// payload; the resolver narrows candidates by AAGUID afterwards.
type Source interface {
	FindEntries(ctx context.Context, result *ceremony.RegistrationResult) ([]Entry, error)
}

// StaticSource serves a fixed entry set. For tests and development setups
// without a cached MDS BLOB.
type StaticSource struct {
	Entries []Entry
}

// FindEntries returns the configured entries.
func (s *StaticSource) FindEntries(ctx context.Context, result *ceremony.RegistrationResult) ([]Entry, error) {
	return s.Entries, nil
}
