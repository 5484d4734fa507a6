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
	"crypto/rand"
	"encoding/base64"
)

// requestIDBytes gives 256 bits of entropy. Possession of the id is the only
// capability needed to finish a ceremony, so it must not be guessable.
const requestIDBytes = 32

// NewRequestID returns a fresh ceremony request id from a cryptographically
// secure random source, base64url-encoded without padding.
func NewRequestID() (string, error) {
	buf := make([]byte, requestIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DecodeBase64URL decodes base64url input with or without padding. Request
// payloads arrive from a variety of clients and both forms are seen in
// practice.
func DecodeBase64URL(value string) ([]byte, error) {
	if decoded, err := base64.RawURLEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.URLEncoding.DecodeString(value)
}
