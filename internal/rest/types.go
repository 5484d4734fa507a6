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

package rest

// UpdateNicknameRequest is the request body for renaming a credential.
type UpdateNicknameRequest struct {
	Nickname string `json:"nickname"`
}

// RemovedResponse reports whether a removal matched a registration.
type RemovedResponse struct {
	Removed bool `json:"removed"`
}

// StatusResponse is the health endpoint response.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the response format for errors.
type ErrorResponse struct {
	// Error is the error code.
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// Error codes returned in ErrorResponse.
const (
	ErrorCodeInvalidRequest      = "invalid_request"
	ErrorCodeUserNotFound        = "user_not_found"
	ErrorCodeUnknownCeremony     = "unknown_ceremony"
	ErrorCodeVerificationFailed  = "verification_failed"
	ErrorCodeDuplicateCredential = "duplicate_credential"
	ErrorCodeCredentialNotFound  = "credential_not_found"
	ErrorCodeStorageUnavailable  = "storage_unavailable"
	ErrorCodeInternalError       = "internal_error"
)
