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

package verifier

import (
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/jeremyhahn/go-passkey-rp/pkg/credentials"
)

// verifierUser adapts a repository identity and its registrations to the
// webauthn.User interface the library validates against.
type verifierUser struct {
	identity    credentials.UserIdentity
	webauthnCds []webauthn.Credential
}

// userFromRegistrations builds the library-facing user from one user's
// registrations. All registrations of a username share the same identity.
func userFromRegistrations(regs []*credentials.Registration) *verifierUser {
	user := &verifierUser{
		identity:    regs[0].User,
		webauthnCds: make([]webauthn.Credential, len(regs)),
	}
	for i, reg := range regs {
		user.webauthnCds[i] = webauthn.Credential{
			ID:        reg.CredentialID,
			PublicKey: reg.PublicKey,
			Transport: protocolTransports(reg.Transports),
			Authenticator: webauthn.Authenticator{
				SignCount: uint32(reg.SignatureCount),
			},
		}
	}
	return user
}

func (u *verifierUser) WebAuthnID() []byte {
	return u.identity.ID
}

func (u *verifierUser) WebAuthnName() string {
	return u.identity.Name
}

func (u *verifierUser) WebAuthnDisplayName() string {
	return u.identity.DisplayName
}

func (u *verifierUser) WebAuthnCredentials() []webauthn.Credential {
	return u.webauthnCds
}
