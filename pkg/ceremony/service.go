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
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-passkey-rp/pkg/credentials"
	"github.com/jeremyhahn/go-passkey-rp/pkg/logging"
	"github.com/jeremyhahn/go-passkey-rp/pkg/metrics"
)

// Default nicknames applied when no attestation metadata description is
// available for a new credential.
const (
	NicknamePlatform    = "My Trusted Device"
	NicknameSecurityKey = "My Security Key"

	// nicknamePending seeds the registration request before metadata
	// resolution decides the real nickname.
	nicknamePending = "New Credential"
)

// Service orchestrates registration and authentication ceremonies: it
// issues challenges through the Verifier, correlates start and finish calls
// through the RequestStore's consume-once contract, and commits results to
// the credential repository.
type Service struct {
	verifier Verifier
	requests RequestStore
	repo     credentials.Repository
	resolver AttestationResolver // optional
	logger   *logging.Logger
	clock    func() time.Time
}

// ServiceParams contains dependencies for creating a ceremony service.
type ServiceParams struct {
	// Verifier is the external WebAuthn verification capability (required).
	Verifier Verifier

	// RequestStore holds pending ceremony state (required).
	RequestStore RequestStore

	// Repository is the durable credential store (required).
	Repository credentials.Repository

	// AttestationResolver enriches new registrations with metadata.
	// Optional; when nil, credentials are stored without metadata.
	AttestationResolver AttestationResolver

	// Logger defaults to logging.DefaultLogger().
	Logger *logging.Logger

	// Clock defaults to time.Now. Injectable for tests.
	Clock func() time.Time
}

// NewService creates a new ceremony service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	if params.RequestStore == nil {
		return nil, fmt.Errorf("request store is required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("credential repository is required")
	}
	if params.Logger == nil {
		params.Logger = logging.DefaultLogger()
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &Service{
		verifier: params.Verifier,
		requests: params.RequestStore,
		repo:     params.Repository,
		resolver: params.AttestationResolver,
		logger:   params.Logger,
		clock:    params.Clock,
	}, nil
}

// StartRegistrationParams carries the fields required to begin registration.
type StartRegistrationParams struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`

	// RequireResidentKey requests a discoverable credential.
	RequireResidentKey bool `json:"requireResidentKey"`

	// RequireAuthenticatorAttachment optionally forces "PLATFORM" or
	// "CROSS_PLATFORM" authenticators.
	RequireAuthenticatorAttachment string `json:"requireAuthenticatorAttachment,omitempty"`

	// UID seeds the user handle for first-time usernames, base64url-encoded.
	// Ignored when the username already has registrations, which all share
	// the originally generated handle.
	UID string `json:"uid"`
}

// StartRegistrationResult is returned to the caller to drive the client-side
// create() call and correlate the later finish.
type StartRegistrationResult struct {
	RequestID          string          `json:"requestId"`
	Username           string          `json:"username"`
	CredentialNickname string          `json:"credentialNickname"`
	PublicKey          json.RawMessage `json:"publicKeyCredentialCreationOptions"`
}

// StartRegistration begins a registration ceremony: it resolves or creates
// the user identity, obtains challenge options from the verifier, and stores
// the pending request under a fresh request id.
func (s *Service) StartRegistration(ctx context.Context, params StartRegistrationParams) (*StartRegistrationResult, error) {
	if params.Username == "" || params.DisplayName == "" || params.UID == "" {
		return nil, WrapError("start registration", ErrMalformedRequest)
	}

	handle, err := DecodeBase64URL(params.UID)
	if err != nil || len(handle) == 0 {
		return nil, WrapError("start registration: decode uid", ErrMalformedRequest)
	}

	// Reuse the existing user handle when the username already has
	// registrations so every credential shares one stable identity.
	existing, err := s.repo.RegistrationsByUsername(ctx, params.Username)
	if err != nil {
		return nil, &Error{Op: "start registration: lookup user", Err: errors.Join(ErrStorage, err)}
	}
	user := credentials.UserIdentity{
		ID:          handle,
		Name:        params.Username,
		DisplayName: params.DisplayName,
	}
	if len(existing) > 0 {
		user = existing[0].User
	}

	selection := AuthenticatorSelection{
		ResidentKey:      residentKeyRequirement(params.RequireResidentKey),
		Attachment:       ParseAttachment(params.RequireAuthenticatorAttachment),
		UserVerification: "preferred",
	}

	options, err := s.verifier.StartRegistration(ctx, user, selection)
	if err != nil {
		return nil, WrapError("start registration: verifier", err)
	}

	requestID, err := NewRequestID()
	if err != nil {
		return nil, WrapError("start registration: request id", err)
	}

	pending := &PendingRequest{
		RequestID: requestID,
		Kind:      KindRegistration,
		Username:  params.Username,
		User:      user,
		Selection: selection,
		CreatedAt: s.clock().UTC(),
		Options:   *options,
	}
	if err := s.requests.Put(ctx, storeKey(KindRegistration, requestID), pending); err != nil {
		return nil, WrapError("start registration: store request", err)
	}

	metrics.RecordCeremonyStart(string(KindRegistration))
	s.logger.Debug("registration started",
		"username", params.Username, "request_id", requestID)

	return &StartRegistrationResult{
		RequestID:          requestID,
		Username:           params.Username,
		CredentialNickname: nicknamePending,
		PublicKey:          options.PublicKey,
	}, nil
}

// FinishRegistrationParams correlates the client's attestation response with
// its pending ceremony.
type FinishRegistrationParams struct {
	RequestID string          `json:"requestId"`
	Response  json.RawMessage `json:"credential"`
}

// FinishRegistration completes a registration ceremony. The pending request
// is consumed exactly once; racing finish calls for the same id yield one
// success and one ErrUnknownCeremony. On verifier acceptance, attestation
// metadata is resolved best-effort and the new credential is committed.
func (s *Service) FinishRegistration(ctx context.Context, params FinishRegistrationParams) (reg *credentials.Registration, err error) {
	started := s.clock()
	defer func() { metrics.RecordCeremonyFinish(string(KindRegistration), err, started) }()

	if params.RequestID == "" || len(params.Response) == 0 {
		return nil, WrapError("finish registration", ErrMalformedRequest)
	}

	pending, err := s.requests.Consume(ctx, storeKey(KindRegistration, params.RequestID))
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, WrapError("finish registration", ErrUnknownCeremony)
		}
		return nil, WrapError("finish registration: consume request", err)
	}

	result, err := s.verifier.FinishRegistration(ctx, pending.Options, params.Response)
	if err != nil {
		s.logger.Warn("registration rejected by verifier",
			"username", pending.Username, "request_id", params.RequestID, "error", err)
		return nil, &Error{Op: "finish registration", Err: errors.Join(ErrVerificationFailed, err)}
	}

	meta := s.resolveAttestation(ctx, result)
	now := s.clock().UTC()
	reg = &credentials.Registration{
		User:           pending.User,
		CredentialID:   result.CredentialID,
		PublicKey:      result.PublicKey,
		SignatureCount: result.SignatureCount,
		Nickname:       deriveNickname(meta, pending.Selection.Attachment),
		Transports:     result.Transports,
		RegisteredAt:   now,
		LastUsedAt:     now,
		LastUpdatedAt:  now,
		Attestation:    meta,
	}

	if err := s.repo.AddRegistration(ctx, pending.Username, reg); err != nil {
		if errors.Is(err, credentials.ErrDuplicateCredential) {
			return nil, WrapError("finish registration", err)
		}
		return nil, &Error{Op: "finish registration: store credential", Err: errors.Join(ErrStorage, err)}
	}

	s.logger.Info("credential registered",
		"username", pending.Username, "nickname", reg.Nickname)
	return reg, nil
}

// StartAuthenticationParams carries the optional username for an
// authentication ceremony. An empty username selects the
// discoverable-credential flow.
type StartAuthenticationParams struct {
	Username string `json:"username,omitempty"`
}

// StartAuthenticationResult drives the client-side get() call.
type StartAuthenticationResult struct {
	RequestID string          `json:"requestId"`
	PublicKey json.RawMessage `json:"publicKeyCredentialRequestOptions"`
}

// StartAuthentication begins an authentication ceremony. A named user that
// has no registrations fails with ErrUnknownUser; the usernameless flow
// bypasses the existence check entirely.
func (s *Service) StartAuthentication(ctx context.Context, params StartAuthenticationParams) (*StartAuthenticationResult, error) {
	if params.Username != "" {
		exists, err := s.repo.UserExists(ctx, params.Username)
		if err != nil {
			return nil, &Error{Op: "start authentication: lookup user", Err: errors.Join(ErrStorage, err)}
		}
		if !exists {
			return nil, WrapError("start authentication", ErrUnknownUser)
		}
	}

	options, err := s.verifier.StartAssertion(ctx, params.Username, "preferred")
	if err != nil {
		return nil, WrapError("start authentication: verifier", err)
	}

	requestID, err := NewRequestID()
	if err != nil {
		return nil, WrapError("start authentication: request id", err)
	}

	pending := &PendingRequest{
		RequestID: requestID,
		Kind:      KindAuthentication,
		Username:  params.Username,
		CreatedAt: s.clock().UTC(),
		Options:   *options,
	}
	if err := s.requests.Put(ctx, storeKey(KindAuthentication, requestID), pending); err != nil {
		return nil, WrapError("start authentication: store request", err)
	}

	metrics.RecordCeremonyStart(string(KindAuthentication))
	s.logger.Debug("authentication started",
		"username", params.Username, "request_id", requestID)

	return &StartAuthenticationResult{
		RequestID: requestID,
		PublicKey: options.PublicKey,
	}, nil
}

// FinishAuthenticationParams correlates the client's assertion response with
// its pending ceremony.
type FinishAuthenticationParams struct {
	RequestID string          `json:"requestId"`
	Response  json.RawMessage `json:"credential"`
}

// AuthenticationOutcome is the result of a successful authentication finish.
// CounterUpdateError reports a bookkeeping failure that did not affect the
// ceremony outcome.
type AuthenticationOutcome struct {
	Result *AssertionResult `json:"result"`

	// CounterUpdateError is set when the signature-counter update failed
	// after a successful assertion (storage error or counter regression).
	CounterUpdateError string `json:"counterUpdateError,omitempty"`
}

// FinishAuthentication completes an authentication ceremony. A signature
// counter update failure is logged and reported on the outcome but never
// converts a verified assertion into a ceremony failure.
func (s *Service) FinishAuthentication(ctx context.Context, params FinishAuthenticationParams) (out *AuthenticationOutcome, err error) {
	started := s.clock()
	defer func() { metrics.RecordCeremonyFinish(string(KindAuthentication), err, started) }()

	if params.RequestID == "" || len(params.Response) == 0 {
		return nil, WrapError("finish authentication", ErrMalformedRequest)
	}

	pending, err := s.requests.Consume(ctx, storeKey(KindAuthentication, params.RequestID))
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, WrapError("finish authentication", ErrUnknownCeremony)
		}
		return nil, WrapError("finish authentication: consume request", err)
	}

	result, err := s.verifier.FinishAssertion(ctx, pending.Options, params.Response)
	if err != nil {
		s.logger.Warn("assertion rejected by verifier",
			"username", pending.Username, "request_id", params.RequestID, "error", err)
		return nil, &Error{Op: "finish authentication", Err: errors.Join(ErrVerificationFailed, err)}
	}
	if !result.Success {
		return nil, WrapError("finish authentication", ErrVerificationFailed)
	}

	outcome := &AuthenticationOutcome{Result: result}
	upd := credentials.CounterUpdate{
		Username:          result.Username,
		CredentialID:      result.CredentialID,
		NewSignatureCount: result.NewSignatureCount,
		UsedAt:            s.clock().UTC(),
	}
	if err := s.repo.UpdateSignatureCount(ctx, upd); err != nil {
		// The assertion already verified; bookkeeping failure is reported
		// separately, never conflated with ceremony failure.
		s.logger.Errorf("failed to update signature count for user %q: %v",
			result.Username, err)
		metrics.RecordCounterUpdateFailure()
		outcome.CounterUpdateError = err.Error()
	}

	s.logger.Info("authentication succeeded", "username", result.Username)
	return outcome, nil
}

// CredentialIDsForUsername returns descriptors for the user's credentials.
func (s *Service) CredentialIDsForUsername(ctx context.Context, username string) ([]credentials.Descriptor, error) {
	if username == "" {
		return nil, WrapError("credential ids", ErrMalformedRequest)
	}
	return s.repo.CredentialIDsForUsername(ctx, username)
}

// RegistrationsByUsername returns all registrations for the user.
func (s *Service) RegistrationsByUsername(ctx context.Context, username string) ([]*credentials.Registration, error) {
	if username == "" {
		return nil, WrapError("registrations", ErrMalformedRequest)
	}
	return s.repo.RegistrationsByUsername(ctx, username)
}

// UpdateCredentialNickname renames one of the user's credentials.
func (s *Service) UpdateCredentialNickname(ctx context.Context, username string, credentialID []byte, nickname string) error {
	if username == "" || len(credentialID) == 0 {
		return WrapError("update nickname", ErrMalformedRequest)
	}
	return s.repo.UpdateCredentialNickname(ctx, username, credentialID, nickname)
}

// RemoveRegistration removes one credential; returns false when no
// registration matched.
func (s *Service) RemoveRegistration(ctx context.Context, username string, credentialID []byte) (bool, error) {
	if username == "" || len(credentialID) == 0 {
		return false, WrapError("remove registration", ErrMalformedRequest)
	}
	if _, err := s.repo.RegistrationByUsernameAndCredentialID(ctx, username, credentialID); err != nil {
		if errors.Is(err, credentials.ErrRegistrationNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.repo.RemoveRegistration(ctx, username, credentialID)
}

// RemoveAllRegistrations removes every credential for the user.
func (s *Service) RemoveAllRegistrations(ctx context.Context, username string) error {
	if username == "" {
		return WrapError("remove all registrations", ErrMalformedRequest)
	}
	return s.repo.RemoveAllRegistrations(ctx, username)
}

// resolveAttestation runs the metadata resolver best-effort. Lookup failures
// downgrade to missing enrichment and are only logged.
func (s *Service) resolveAttestation(ctx context.Context, result *RegistrationResult) *credentials.AttestationMetadata {
	if s.resolver == nil {
		return nil
	}
	meta, err := s.resolver.Resolve(ctx, result)
	if err != nil {
		s.logger.Warn("attestation metadata lookup failed",
			"aaguid", result.AAGUID.String(), "error", err)
		metrics.RecordMetadataResolution(metrics.OutcomeError)
		return nil
	}
	return meta
}

// deriveNickname prefers the resolved metadata description, then the
// platform default when platform attachment was requested, then the generic
// security-key default.
func deriveNickname(meta *credentials.AttestationMetadata, attachment Attachment) string {
	if meta != nil && meta.Description != "" {
		return meta.Description
	}
	if attachment == AttachmentPlatform {
		return NicknamePlatform
	}
	return NicknameSecurityKey
}

func residentKeyRequirement(required bool) string {
	if required {
		return "required"
	}
	return "preferred"
}

// storeKey namespaces pending requests per ceremony kind so a finish call of
// one kind can never consume the other kind's pending state.
func storeKey(kind Kind, requestID string) string {
	return string(kind) + ":" + requestID
}
