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

// Package verifier implements the ceremony.Verifier contract on top of
// github.com/go-webauthn/webauthn. It owns all cryptographic and protocol
// validation; ceremony state travels through the opaque ChallengeOptions the
// orchestrator stores between start and finish.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/jeremyhahn/go-passkey-rp/pkg/ceremony"
	"github.com/jeremyhahn/go-passkey-rp/pkg/credentials"
)

// Verifier validates WebAuthn ceremonies against credentials read from the
// repository.
type Verifier struct {
	webauthn *webauthn.WebAuthn
	reader   credentials.Reader
}

// New creates a verifier from the config and the credential read side.
func New(config *Config, reader credentials.Reader) (*Verifier, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("credential reader is required")
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	wa, err := webauthn.New(config.ToWebAuthnConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create webauthn instance: %w", err)
	}

	return &Verifier{webauthn: wa, reader: reader}, nil
}

// StartRegistration builds creation options for the user, excluding their
// already-registered credentials so an authenticator is never enrolled twice.
func (v *Verifier) StartRegistration(ctx context.Context, user credentials.UserIdentity, sel ceremony.AuthenticatorSelection) (*ceremony.ChallengeOptions, error) {
	exclusions, err := v.exclusionList(ctx, user.Name)
	if err != nil {
		return nil, err
	}

	options, session, err := v.webauthn.BeginRegistration(
		&verifierUser{identity: user},
		webauthn.WithAuthenticatorSelection(toProtocolSelection(sel)),
		webauthn.WithExclusions(exclusions),
	)
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}

	return encodeChallenge(options, session)
}

// FinishRegistration validates an attestation response against the stored
// session state and reports the new credential.
func (v *Verifier) FinishRegistration(ctx context.Context, opts ceremony.ChallengeOptions, response []byte) (*ceremony.RegistrationResult, error) {
	session, err := decodeSession(opts)
	if err != nil {
		return nil, err
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(response))
	if err != nil {
		return nil, fmt.Errorf("parse attestation response: %w", err)
	}

	user := &verifierUser{identity: credentials.UserIdentity{ID: session.UserID}}
	credential, err := v.webauthn.CreateCredential(user, *session, parsed)
	if err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}

	aaguid, err := uuid.FromBytes(credential.Authenticator.AAGUID)
	if err != nil {
		// U2F-era authenticators report no AAGUID.
		aaguid = uuid.Nil
	}

	return &ceremony.RegistrationResult{
		CredentialID:    credential.ID,
		PublicKey:       credential.PublicKey,
		SignatureCount:  uint64(credential.Authenticator.SignCount),
		AAGUID:          aaguid,
		AttestationType: credential.AttestationType,
		TrustPath:       trustPath(parsed),
		Transports:      transportStrings(credential.Transport),
		Attachment:      ceremony.Attachment(credential.Authenticator.Attachment),
	}, nil
}

// StartAssertion builds assertion options. An empty username selects the
// discoverable-credential flow.
func (v *Verifier) StartAssertion(ctx context.Context, username string, userVerification string) (*ceremony.ChallengeOptions, error) {
	uv := webauthn.WithUserVerification(protocol.UserVerificationRequirement(userVerification))

	if username == "" {
		options, session, err := v.webauthn.BeginDiscoverableLogin(uv)
		if err != nil {
			return nil, fmt.Errorf("begin discoverable login: %w", err)
		}
		return encodeChallenge(options, session)
	}

	user, err := v.loadUser(ctx, username)
	if err != nil {
		return nil, err
	}

	options, session, err := v.webauthn.BeginLogin(user, uv)
	if err != nil {
		return nil, fmt.Errorf("begin login: %w", err)
	}
	return encodeChallenge(options, session)
}

// FinishAssertion validates an assertion response against the stored session
// state. The flow is identified vs discoverable by whether the session
// carries a user handle.
func (v *Verifier) FinishAssertion(ctx context.Context, opts ceremony.ChallengeOptions, response []byte) (*ceremony.AssertionResult, error) {
	session, err := decodeSession(opts)
	if err != nil {
		return nil, err
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(response))
	if err != nil {
		return nil, fmt.Errorf("parse assertion response: %w", err)
	}

	var user *verifierUser
	var credential *webauthn.Credential

	if len(session.UserID) == 0 {
		credential, err = v.webauthn.ValidateDiscoverableLogin(
			func(rawID, userHandle []byte) (webauthn.User, error) {
				u, handlerErr := v.loadUserByHandle(ctx, userHandle)
				if handlerErr != nil {
					return nil, handlerErr
				}
				user = u
				return u, nil
			},
			*session,
			parsed,
		)
		if err != nil {
			return nil, fmt.Errorf("validate discoverable login: %w", err)
		}
	} else {
		user, err = v.loadUserByHandle(ctx, session.UserID)
		if err != nil {
			return nil, err
		}
		credential, err = v.webauthn.ValidateLogin(user, *session, parsed)
		if err != nil {
			return nil, fmt.Errorf("validate login: %w", err)
		}
	}

	return &ceremony.AssertionResult{
		Success:           true,
		Username:          user.identity.Name,
		UserHandle:        user.identity.ID,
		CredentialID:      credential.ID,
		NewSignatureCount: uint64(credential.Authenticator.SignCount),
		CloneWarning:      credential.Authenticator.CloneWarning,
	}, nil
}

// loadUser builds the library-facing user from the username's registrations.
func (v *Verifier) loadUser(ctx context.Context, username string) (*verifierUser, error) {
	regs, err := v.reader.RegistrationsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}
	if len(regs) == 0 {
		return nil, fmt.Errorf("no credentials registered for %q", username)
	}
	return userFromRegistrations(regs), nil
}

// loadUserByHandle builds the library-facing user from the handle's
// registrations.
func (v *Verifier) loadUserByHandle(ctx context.Context, handle []byte) (*verifierUser, error) {
	regs, err := v.reader.RegistrationsByUserHandle(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}
	if len(regs) == 0 {
		return nil, fmt.Errorf("no credentials registered for user handle")
	}
	return userFromRegistrations(regs), nil
}

// exclusionList converts the username's registrations to credential
// descriptors. Unknown usernames exclude nothing.
func (v *Verifier) exclusionList(ctx context.Context, username string) ([]protocol.CredentialDescriptor, error) {
	regs, err := v.reader.RegistrationsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}

	exclusions := make([]protocol.CredentialDescriptor, len(regs))
	for i, reg := range regs {
		exclusions[i] = protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: reg.CredentialID,
			Transport:    protocolTransports(reg.Transports),
		}
	}
	return exclusions, nil
}

// encodeChallenge packs the client-facing options and the library session
// into the opaque challenge state the orchestrator stores.
func encodeChallenge(options any, session *webauthn.SessionData) (*ceremony.ChallengeOptions, error) {
	publicKey, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	state, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return &ceremony.ChallengeOptions{PublicKey: publicKey, SessionState: state}, nil
}

func decodeSession(opts ceremony.ChallengeOptions) (*webauthn.SessionData, error) {
	var session webauthn.SessionData
	if err := json.Unmarshal(opts.SessionState, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// trustPath extracts the DER attestation certificate chain, when the
// attestation statement carries one.
func trustPath(parsed *protocol.ParsedCredentialCreationData) [][]byte {
	x5c, ok := parsed.Response.AttestationObject.AttStatement["x5c"].([]any)
	if !ok {
		return nil
	}
	chain := make([][]byte, 0, len(x5c))
	for _, cert := range x5c {
		if der, ok := cert.([]byte); ok {
			chain = append(chain, der)
		}
	}
	return chain
}

func toProtocolSelection(sel ceremony.AuthenticatorSelection) protocol.AuthenticatorSelection {
	out := protocol.AuthenticatorSelection{
		ResidentKey:             protocol.ResidentKeyRequirement(sel.ResidentKey),
		UserVerification:        protocol.UserVerificationRequirement(sel.UserVerification),
		AuthenticatorAttachment: protocol.AuthenticatorAttachment(sel.Attachment),
	}
	if out.ResidentKey == protocol.ResidentKeyRequirementRequired {
		out.RequireResidentKey = protocol.ResidentKeyRequired()
	}
	return out
}

func transportStrings(transports []protocol.AuthenticatorTransport) []string {
	if len(transports) == 0 {
		return nil
	}
	out := make([]string, len(transports))
	for i, t := range transports {
		out[i] = string(t)
	}
	return out
}

func protocolTransports(transports []string) []protocol.AuthenticatorTransport {
	if len(transports) == 0 {
		return nil
	}
	out := make([]protocol.AuthenticatorTransport, len(transports))
	for i, t := range transports {
		out[i] = protocol.AuthenticatorTransport(t)
	}
	return out
}
