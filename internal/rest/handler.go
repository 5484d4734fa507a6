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

// Package rest exposes the ceremony orchestrator over HTTP.
package rest

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jeremyhahn/go-passkey-rp/pkg/ceremony"
	"github.com/jeremyhahn/go-passkey-rp/pkg/credentials"
	"github.com/jeremyhahn/go-passkey-rp/pkg/logging"
)

// Handler provides HTTP handlers for ceremony and credential management
// operations. The handlers can be mounted on any chi router.
type Handler struct {
	service *ceremony.Service
	logger  *logging.Logger
}

// NewHandler creates a new REST handler.
func NewHandler(service *ceremony.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Handler{service: service, logger: logger}
}

// StartRegistration handles POST /register
//
// Request body:
//
//	{
//	    "username": "alice",
//	    "displayName": "Alice Example",
//	    "requireResidentKey": false,
//	    "requireAuthenticatorAttachment": "PLATFORM", // optional
//	    "uid": "base64url-user-handle"                // optional
//	}
//
// Response: request id plus PublicKeyCredentialCreationOptions.
func (h *Handler) StartRegistration(w http.ResponseWriter, r *http.Request) {
	var params ceremony.StartRegistrationParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	// Clients that don't manage user handles get a server-generated one.
	// Existing usernames keep their original handle regardless.
	if params.UID == "" {
		uid, err := newUserHandle()
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
			return
		}
		params.UID = uid
	}

	result, err := h.service.StartRegistration(r.Context(), params)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// FinishRegistration handles POST /register/finish
//
// Request body:
//
//	{
//	    "requestId": "...",
//	    "credential": { ... } // PublicKeyCredential with attestation response
//	}
func (h *Handler) FinishRegistration(w http.ResponseWriter, r *http.Request) {
	var params ceremony.FinishRegistrationParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	reg, err := h.service.FinishRegistration(r.Context(), params)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, reg)
}

// StartAuthentication handles POST /authenticate
//
// Request body (optional; empty body selects the discoverable flow):
//
//	{"username": "alice"}
func (h *Handler) StartAuthentication(w http.ResponseWriter, r *http.Request) {
	var params ceremony.StartAuthenticationParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		// Allow empty body for discoverable credentials
		params = ceremony.StartAuthenticationParams{}
	}

	result, err := h.service.StartAuthentication(r.Context(), params)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// FinishAuthentication handles POST /authenticate/finish
//
// Request body:
//
//	{
//	    "requestId": "...",
//	    "credential": { ... } // PublicKeyCredential with assertion response
//	}
func (h *Handler) FinishAuthentication(w http.ResponseWriter, r *http.Request) {
	var params ceremony.FinishAuthenticationParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	outcome, err := h.service.FinishAuthentication(r.Context(), params)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, outcome)
}

// ListRegistrations handles GET /users/{username}/credentials
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	regs, err := h.service.RegistrationsByUsername(r.Context(), username)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, regs)
}

// ListCredentialIDs handles GET /users/{username}/credentialIds
func (h *Handler) ListCredentialIDs(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	ids, err := h.service.CredentialIDsForUsername(r.Context(), username)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ids)
}

// UpdateNickname handles PUT /users/{username}/credentials/{credentialId}/nickname
func (h *Handler) UpdateNickname(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	credentialID, err := decodeCredentialID(chi.URLParam(r, "credentialId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid credential id encoding")
		return
	}

	var req UpdateNicknameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Nickname == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "nickname is required")
		return
	}

	if err := h.service.UpdateCredentialNickname(r.Context(), username, credentialID, req.Nickname); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// RemoveRegistration handles DELETE /users/{username}/credentials/{credentialId}
func (h *Handler) RemoveRegistration(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	credentialID, err := decodeCredentialID(chi.URLParam(r, "credentialId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid credential id encoding")
		return
	}

	removed, err := h.service.RemoveRegistration(r.Context(), username, credentialID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, RemovedResponse{Removed: removed})
}

// RemoveAllRegistrations handles DELETE /users/{username}/credentials
func (h *Handler) RemoveAllRegistrations(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := h.service.RemoveAllRegistrations(r.Context(), username); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleServiceError maps ceremony and repository errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ceremony.ErrMalformedRequest):
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
	case errors.Is(err, ceremony.ErrUnknownUser):
		h.writeError(w, http.StatusNotFound, ErrorCodeUserNotFound, "username is not registered")
	case errors.Is(err, ceremony.ErrUnknownCeremony):
		h.writeError(w, http.StatusBadRequest, ErrorCodeUnknownCeremony, "no such ceremony in progress")
	case errors.Is(err, ceremony.ErrVerificationFailed):
		h.writeError(w, http.StatusUnauthorized, ErrorCodeVerificationFailed, "ceremony verification failed")
	case errors.Is(err, credentials.ErrDuplicateCredential):
		h.writeError(w, http.StatusConflict, ErrorCodeDuplicateCredential, "credential already registered")
	case errors.Is(err, credentials.ErrRegistrationNotFound):
		h.writeError(w, http.StatusNotFound, ErrorCodeCredentialNotFound, "registration not found")
	case errors.Is(err, ceremony.ErrStorage):
		h.writeError(w, http.StatusServiceUnavailable, ErrorCodeStorageUnavailable, "storage unavailable")
	default:
		h.logger.Errorf("unhandled service error: %v", err)
		h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response headers already written, can only log the error
		h.logger.Errorf("failed to encode JSON response: %v", err)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// decodeCredentialID decodes the base64url credential id path segment.
func decodeCredentialID(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("credential id is required")
	}
	return ceremony.DecodeBase64URL(value)
}

// newUserHandle generates a random 32-byte user handle, base64url-encoded.
func newUserHandle() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
