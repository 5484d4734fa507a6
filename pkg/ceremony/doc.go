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

// Package ceremony orchestrates WebAuthn registration and authentication
// as two-phase ceremonies.
//
// A start operation issues a challenge through the Verifier and parks the
// resulting server-side state in a RequestStore under a random request id.
// The matching finish operation consumes that state exactly once, hands the
// client response to the Verifier for validation, and commits the outcome to
// the credential repository. Request ids are single-use and expire, so a
// challenge can never be replayed and an abandoned ceremony cleans itself up.
package ceremony
