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

package metadata

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-passkey-rp/pkg/ceremony"
	"github.com/jeremyhahn/go-passkey-rp/pkg/credentials"
	"github.com/jeremyhahn/go-passkey-rp/pkg/metrics"
)

// Resolver narrows a Source's candidate entries to the metadata for one
// registration. It implements ceremony.AttestationResolver.
type Resolver struct {
	source Source
}

// NewResolver creates a resolver over the given source.
func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Resolve selects metadata for the registration: the first entry whose
// AAGUID matches wins; with no AAGUID match an arbitrary candidate serves as
// fallback, which keeps U2F-era authenticators (that have no AAGUID) usable
// with sources pre-filtered by trust anchor. No candidates, or a candidate
// without a metadata statement, resolves to no metadata without error.
func (r *Resolver) Resolve(ctx context.Context, result *ceremony.RegistrationResult) (*credentials.AttestationMetadata, error) {
	entries, err := r.source.FindEntries(ctx, result)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		metrics.RecordMetadataResolution(metrics.OutcomeNone)
		return nil, nil
	}

	entry := &entries[0]
	outcome := metrics.OutcomeFallback
	if result.AAGUID != uuid.Nil {
		want := strings.ToLower(result.AAGUID.String())
		for i := range entries {
			if entryAAGUID(&entries[i]) == want {
				entry = &entries[i]
				outcome = metrics.OutcomeMatched
				break
			}
		}
	}

	stmt := entry.MetadataStatement
	if stmt == nil {
		metrics.RecordMetadataResolution(metrics.OutcomeNone)
		return nil, nil
	}

	metrics.RecordMetadataResolution(outcome)
	return &credentials.AttestationMetadata{
		AAGUID:          entry.AAGUID,
		AAID:            entry.AAID,
		AttachmentHints: stmt.AttachmentHint,
		Icon:            stmt.Icon,
		Description:     stmt.Description,
		Transports:      stmt.Transports(),
	}, nil
}

// entryAAGUID returns the entry's AAGUID, falling back to the statement's,
// normalized for comparison.
func entryAAGUID(entry *Entry) string {
	aaguid := entry.AAGUID
	if aaguid == "" && entry.MetadataStatement != nil {
		aaguid = entry.MetadataStatement.AAGUID
	}
	return strings.ToLower(aaguid)
}
