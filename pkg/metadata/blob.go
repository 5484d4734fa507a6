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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jeremyhahn/go-passkey-rp/pkg/ceremony"
)

// blobPayload is the decoded form of an MDS BLOB payload JSON document, the
// JWT payload of the published BLOB cached to disk by an external refresh
// job. BLOB signature and trust chain validation happen in that job, not
// here.
type blobPayload struct {
	Number      int     `json:"no"`
	NextUpdate  string  `json:"nextUpdate"`
	LegalHeader string  `json:"legalHeader,omitempty"`
	Entries     []Entry `json:"entries"`
}

// BlobSource serves entries from a locally cached MDS BLOB payload, indexed
// by AAGUID at load time. It is immutable after LoadBlobSource and safe for
// concurrent use.
type BlobSource struct {
	byAAGUID map[string][]Entry
	entries  []Entry
}

// LoadBlobSource reads and indexes a cached MDS BLOB payload JSON file.
func LoadBlobSource(path string) (*BlobSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata blob: %w", err)
	}
	return ParseBlobSource(raw)
}

// ParseBlobSource indexes an MDS BLOB payload JSON document.
func ParseBlobSource(raw []byte) (*BlobSource, error) {
	var payload blobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode metadata blob: %w", err)
	}

	source := &BlobSource{
		byAAGUID: make(map[string][]Entry, len(payload.Entries)),
		entries:  payload.Entries,
	}
	for _, entry := range payload.Entries {
		if aaguid := entryAAGUID(&entry); aaguid != "" {
			source.byAAGUID[aaguid] = append(source.byAAGUID[aaguid], entry)
		}
	}
	return source, nil
}

// FindEntries returns the entries indexed under the registration's AAGUID.
// Registrations without an AAGUID (all-zero) yield no candidates; a BLOB is
// far too broad for the resolver's arbitrary-entry fallback to be meaningful.
func (s *BlobSource) FindEntries(ctx context.Context, result *ceremony.RegistrationResult) ([]Entry, error) {
	aaguid := strings.ToLower(result.AAGUID.String())
	return s.byAAGUID[aaguid], nil
}

// Len returns the number of entries in the payload.
func (s *BlobSource) Len() int {
	return len(s.entries)
}
