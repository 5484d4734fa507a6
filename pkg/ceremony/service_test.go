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
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-passkey-rp/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVerifier returns canned results and records the inputs it saw.
type fakeVerifier struct {
	startRegistrationFn  func(user credentials.UserIdentity, sel AuthenticatorSelection) (*ChallengeOptions, error)
	finishRegistrationFn func(opts ChallengeOptions, response []byte) (*RegistrationResult, error)
	startAssertionFn     func(username string) (*ChallengeOptions, error)
	finishAssertionFn    func(opts ChallengeOptions, response []byte) (*AssertionResult, error)
}

func (v *fakeVerifier) StartRegistration(_ context.Context, user credentials.UserIdentity, sel AuthenticatorSelection) (*ChallengeOptions, error) {
	if v.startRegistrationFn != nil {
		return v.startRegistrationFn(user, sel)
	}
	return &ChallengeOptions{
		PublicKey:    json.RawMessage(`{"challenge":"abc"}`),
		SessionState: []byte("session"),
	}, nil
}

func (v *fakeVerifier) FinishRegistration(_ context.Context, opts ChallengeOptions, response []byte) (*RegistrationResult, error) {
	if v.finishRegistrationFn != nil {
		return v.finishRegistrationFn(opts, response)
	}
	return &RegistrationResult{
		CredentialID:   []byte("cred-1"),
		PublicKey:      []byte("pubkey"),
		SignatureCount: 0,
		AAGUID:         uuid.MustParse("0bb43545-fd2c-4185-87dd-feb0b2916ace"),
	}, nil
}

func (v *fakeVerifier) StartAssertion(_ context.Context, username string, _ string) (*ChallengeOptions, error) {
	if v.startAssertionFn != nil {
		return v.startAssertionFn(username)
	}
	return &ChallengeOptions{
		PublicKey:    json.RawMessage(`{"challenge":"xyz"}`),
		SessionState: []byte("session"),
	}, nil
}

func (v *fakeVerifier) FinishAssertion(_ context.Context, opts ChallengeOptions, response []byte) (*AssertionResult, error) {
	if v.finishAssertionFn != nil {
		return v.finishAssertionFn(opts, response)
	}
	return &AssertionResult{
		Success:           true,
		Username:          "alice",
		CredentialID:      []byte("cred-1"),
		NewSignatureCount: 7,
	}, nil
}

// mapStore is a minimal in-memory RequestStore for orchestrator tests.
type mapStore struct {
	mu   sync.Mutex
	reqs map[string]*PendingRequest
}

func newMapStore() *mapStore {
	return &mapStore{reqs: make(map[string]*PendingRequest)}
}

func (s *mapStore) Put(_ context.Context, id string, req *PendingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs[id] = req
	return nil
}

func (s *mapStore) GetIfPresent(_ context.Context, id string) (*PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.reqs[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

func (s *mapStore) Invalidate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reqs, id)
	return nil
}

func (s *mapStore) Consume(_ context.Context, id string) (*PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.reqs[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	delete(s.reqs, id)
	return req, nil
}

type staticResolver struct {
	meta *credentials.AttestationMetadata
	err  error
}

func (r *staticResolver) Resolve(context.Context, *RegistrationResult) (*credentials.AttestationMetadata, error) {
	return r.meta, r.err
}

func newTestService(t *testing.T, mutate func(*ServiceParams)) (*Service, *mapStore, *credentials.MemoryRepository) {
	t.Helper()
	store := newMapStore()
	repo := credentials.NewMemoryRepository()
	params := ServiceParams{
		Verifier:     &fakeVerifier{},
		RequestStore: store,
		Repository:   repo,
	}
	if mutate != nil {
		mutate(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc, store, repo
}

func testUID(t *testing.T) string {
	t.Helper()
	return base64.RawURLEncoding.EncodeToString([]byte("user-handle-1"))
}

func startRegistration(t *testing.T, svc *Service, username string) *StartRegistrationResult {
	t.Helper()
	result, err := svc.StartRegistration(context.Background(), StartRegistrationParams{
		Username:    username,
		DisplayName: "Alice Example",
		UID:         testUID(t),
	})
	require.NoError(t, err)
	return result
}

func TestNewService_Validation(t *testing.T) {
	store := newMapStore()
	repo := credentials.NewMemoryRepository()

	_, err := NewService(ServiceParams{RequestStore: store, Repository: repo})
	assert.ErrorContains(t, err, "verifier is required")

	_, err = NewService(ServiceParams{Verifier: &fakeVerifier{}, Repository: repo})
	assert.ErrorContains(t, err, "request store is required")

	_, err = NewService(ServiceParams{Verifier: &fakeVerifier{}, RequestStore: store})
	assert.ErrorContains(t, err, "credential repository is required")

	svc, err := NewService(ServiceParams{Verifier: &fakeVerifier{}, RequestStore: store, Repository: repo})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestStartRegistration(t *testing.T) {
	svc, store, _ := newTestService(t, nil)

	result := startRegistration(t, svc, "alice")
	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, "alice", result.Username)
	assert.Equal(t, "New Credential", result.CredentialNickname)
	assert.JSONEq(t, `{"challenge":"abc"}`, string(result.PublicKey))

	pending, err := store.GetIfPresent(context.Background(), storeKey(KindRegistration, result.RequestID))
	require.NoError(t, err)
	assert.Equal(t, KindRegistration, pending.Kind)
	assert.Equal(t, "alice", pending.Username)
	assert.Equal(t, []byte("user-handle-1"), pending.User.ID)
	assert.Equal(t, "preferred", pending.Selection.ResidentKey)
}

func TestStartRegistration_Malformed(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.StartRegistration(ctx, StartRegistrationParams{DisplayName: "A", UID: testUID(t)})
	assert.ErrorIs(t, err, ErrMalformedRequest)

	_, err = svc.StartRegistration(ctx, StartRegistrationParams{Username: "alice", UID: testUID(t)})
	assert.ErrorIs(t, err, ErrMalformedRequest)

	_, err = svc.StartRegistration(ctx, StartRegistrationParams{Username: "alice", DisplayName: "A"})
	assert.ErrorIs(t, err, ErrMalformedRequest)

	_, err = svc.StartRegistration(ctx, StartRegistrationParams{Username: "alice", DisplayName: "A", UID: "!!!not-base64!!!"})
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestStartRegistration_ResidentKeyAndAttachment(t *testing.T) {
	var seen AuthenticatorSelection
	svc, _, _ := newTestService(t, func(p *ServiceParams) {
		p.Verifier = &fakeVerifier{
			startRegistrationFn: func(_ credentials.UserIdentity, sel AuthenticatorSelection) (*ChallengeOptions, error) {
				seen = sel
				return &ChallengeOptions{PublicKey: json.RawMessage(`{}`)}, nil
			},
		}
	})

	_, err := svc.StartRegistration(context.Background(), StartRegistrationParams{
		Username:                       "alice",
		DisplayName:                    "Alice",
		UID:                            testUID(t),
		RequireResidentKey:             true,
		RequireAuthenticatorAttachment: "PLATFORM",
	})
	require.NoError(t, err)
	assert.Equal(t, "required", seen.ResidentKey)
	assert.Equal(t, AttachmentPlatform, seen.Attachment)
}

func TestStartRegistration_ReusesExistingUserHandle(t *testing.T) {
	var seen credentials.UserIdentity
	svc, _, repo := newTestService(t, func(p *ServiceParams) {
		p.Verifier = &fakeVerifier{
			startRegistrationFn: func(user credentials.UserIdentity, _ AuthenticatorSelection) (*ChallengeOptions, error) {
				seen = user
				return &ChallengeOptions{PublicKey: json.RawMessage(`{}`)}, nil
			},
		}
	})

	existing := &credentials.Registration{
		User:         credentials.UserIdentity{ID: []byte("original-handle"), Name: "alice", DisplayName: "Alice"},
		CredentialID: []byte("cred-0"),
		PublicKey:    []byte("pk"),
	}
	require.NoError(t, repo.AddRegistration(context.Background(), "alice", existing))

	// A second registration for the same username must keep the original
	// handle regardless of the uid the client sends.
	_, err := svc.StartRegistration(context.Background(), StartRegistrationParams{
		Username:    "alice",
		DisplayName: "Alice",
		UID:         base64.RawURLEncoding.EncodeToString([]byte("different-handle")),
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("original-handle"), seen.ID)
}

func TestFinishRegistration(t *testing.T) {
	svc, store, repo := newTestService(t, nil)
	ctx := context.Background()

	start := startRegistration(t, svc, "alice")
	reg, err := svc.FinishRegistration(ctx, FinishRegistrationParams{
		RequestID: start.RequestID,
		Response:  json.RawMessage(`{"id":"cred-1"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("cred-1"), reg.CredentialID)
	assert.Equal(t, "alice", reg.User.Name)
	assert.Equal(t, "My Security Key", reg.Nickname)
	assert.False(t, reg.RegisteredAt.IsZero())

	// Pending state is gone and the credential is durable.
	_, err = store.GetIfPresent(ctx, storeKey(KindRegistration, start.RequestID))
	assert.ErrorIs(t, err, ErrRequestNotFound)
	stored, err := repo.RegistrationByUsernameAndCredentialID(ctx, "alice", []byte("cred-1"))
	require.NoError(t, err)
	assert.Equal(t, reg.Nickname, stored.Nickname)
}

func TestFinishRegistration_UnknownCeremony(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.FinishRegistration(context.Background(), FinishRegistrationParams{
		RequestID: "never-issued",
		Response:  json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, ErrUnknownCeremony)
}

func TestFinishRegistration_SingleUse(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	start := startRegistration(t, svc, "alice")
	params := FinishRegistrationParams{RequestID: start.RequestID, Response: json.RawMessage(`{}`)}

	_, err := svc.FinishRegistration(ctx, params)
	require.NoError(t, err)
	_, err = svc.FinishRegistration(ctx, params)
	assert.ErrorIs(t, err, ErrUnknownCeremony)
}

func TestFinishRegistration_VerificationFailed(t *testing.T) {
	svc, store, _ := newTestService(t, func(p *ServiceParams) {
		p.Verifier = &fakeVerifier{
			finishRegistrationFn: func(ChallengeOptions, []byte) (*RegistrationResult, error) {
				return nil, errors.New("challenge mismatch")
			},
		}
	})
	ctx := context.Background()

	start := startRegistration(t, svc, "alice")
	_, err := svc.FinishRegistration(ctx, FinishRegistrationParams{
		RequestID: start.RequestID,
		Response:  json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.ErrorContains(t, err, "challenge mismatch")

	// Verification failure is terminal; the request stays consumed.
	_, err = store.GetIfPresent(ctx, storeKey(KindRegistration, start.RequestID))
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestFinishRegistration_DuplicateCredential(t *testing.T) {
	svc, _, repo := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, repo.AddRegistration(ctx, "bob", &credentials.Registration{
		User:         credentials.UserIdentity{ID: []byte("h"), Name: "bob"},
		CredentialID: []byte("cred-1"),
		PublicKey:    []byte("pk"),
	}))

	start := startRegistration(t, svc, "alice")
	_, err := svc.FinishRegistration(ctx, FinishRegistrationParams{
		RequestID: start.RequestID,
		Response:  json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, credentials.ErrDuplicateCredential)
}

func TestFinishRegistration_NicknameFromMetadata(t *testing.T) {
	svc, _, _ := newTestService(t, func(p *ServiceParams) {
		p.AttestationResolver = &staticResolver{
			meta: &credentials.AttestationMetadata{Description: "YubiKey 5C"},
		}
	})

	start := startRegistration(t, svc, "alice")
	reg, err := svc.FinishRegistration(context.Background(), FinishRegistrationParams{
		RequestID: start.RequestID,
		Response:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "YubiKey 5C", reg.Nickname)
	require.NotNil(t, reg.Attestation)
}

func TestFinishRegistration_PlatformNickname(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	result, err := svc.StartRegistration(ctx, StartRegistrationParams{
		Username:                       "alice",
		DisplayName:                    "Alice",
		UID:                            testUID(t),
		RequireAuthenticatorAttachment: "PLATFORM",
	})
	require.NoError(t, err)

	reg, err := svc.FinishRegistration(ctx, FinishRegistrationParams{
		RequestID: result.RequestID,
		Response:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "My Trusted Device", reg.Nickname)
}

func TestFinishRegistration_MetadataFailureAbsorbed(t *testing.T) {
	svc, _, _ := newTestService(t, func(p *ServiceParams) {
		p.AttestationResolver = &staticResolver{err: errors.New("mds unavailable")}
	})

	start := startRegistration(t, svc, "alice")
	reg, err := svc.FinishRegistration(context.Background(), FinishRegistrationParams{
		RequestID: start.RequestID,
		Response:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.Nil(t, reg.Attestation)
	assert.Equal(t, "My Security Key", reg.Nickname)
}

func TestFinishRegistration_ConcurrentExactlyOnce(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	start := startRegistration(t, svc, "alice")
	params := FinishRegistrationParams{RequestID: start.RequestID, Response: json.RawMessage(`{}`)}

	const racers = 16
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.FinishRegistration(ctx, params)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, unknown int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrUnknownCeremony):
			unknown++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, racers-1, unknown)
}

func TestStartAuthentication_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.StartAuthentication(context.Background(), StartAuthenticationParams{Username: "nobody"})
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestStartAuthentication_Usernameless(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	ctx := context.Background()

	// No registered users at all; the discoverable flow must still start.
	result, err := svc.StartAuthentication(ctx, StartAuthenticationParams{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.RequestID)

	pending, err := store.GetIfPresent(ctx, storeKey(KindAuthentication, result.RequestID))
	require.NoError(t, err)
	assert.Equal(t, KindAuthentication, pending.Kind)
	assert.Empty(t, pending.Username)
}

func registerAlice(t *testing.T, repo *credentials.MemoryRepository) {
	t.Helper()
	require.NoError(t, repo.AddRegistration(context.Background(), "alice", &credentials.Registration{
		User:           credentials.UserIdentity{ID: []byte("user-handle-1"), Name: "alice", DisplayName: "Alice"},
		CredentialID:   []byte("cred-1"),
		PublicKey:      []byte("pk"),
		SignatureCount: 3,
	}))
}

func TestFinishAuthentication(t *testing.T) {
	svc, _, repo := newTestService(t, nil)
	ctx := context.Background()
	registerAlice(t, repo)

	start, err := svc.StartAuthentication(ctx, StartAuthenticationParams{Username: "alice"})
	require.NoError(t, err)

	out, err := svc.FinishAuthentication(ctx, FinishAuthenticationParams{
		RequestID: start.RequestID,
		Response:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.True(t, out.Result.Success)
	assert.Equal(t, "alice", out.Result.Username)
	assert.Empty(t, out.CounterUpdateError)

	// Counter bookkeeping happened.
	stored, err := repo.RegistrationByUsernameAndCredentialID(ctx, "alice", []byte("cred-1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), stored.SignatureCount)
	assert.False(t, stored.LastUsedAt.IsZero())
}

func TestFinishAuthentication_CounterRegressionReported(t *testing.T) {
	svc, _, repo := newTestService(t, func(p *ServiceParams) {
		p.Verifier = &fakeVerifier{
			finishAssertionFn: func(ChallengeOptions, []byte) (*AssertionResult, error) {
				return &AssertionResult{
					Success:           true,
					Username:          "alice",
					CredentialID:      []byte("cred-1"),
					NewSignatureCount: 1, // behind the stored value of 3
				}, nil
			},
		}
	})
	ctx := context.Background()
	registerAlice(t, repo)

	start, err := svc.StartAuthentication(ctx, StartAuthenticationParams{Username: "alice"})
	require.NoError(t, err)

	// The ceremony still succeeds; the bookkeeping failure is reported
	// alongside the result.
	out, err := svc.FinishAuthentication(ctx, FinishAuthenticationParams{
		RequestID: start.RequestID,
		Response:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.True(t, out.Result.Success)
	assert.Contains(t, out.CounterUpdateError, "signature counter regression")

	stored, err := repo.RegistrationByUsernameAndCredentialID(ctx, "alice", []byte("cred-1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stored.SignatureCount)
}

func TestFinishAuthentication_VerifierRejects(t *testing.T) {
	svc, _, repo := newTestService(t, func(p *ServiceParams) {
		p.Verifier = &fakeVerifier{
			finishAssertionFn: func(ChallengeOptions, []byte) (*AssertionResult, error) {
				return nil, errors.New("signature invalid")
			},
		}
	})
	ctx := context.Background()
	registerAlice(t, repo)

	start, err := svc.StartAuthentication(ctx, StartAuthenticationParams{Username: "alice"})
	require.NoError(t, err)

	_, err = svc.FinishAuthentication(ctx, FinishAuthenticationParams{
		RequestID: start.RequestID,
		Response:  json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestFinishAuthentication_UnsuccessfulResult(t *testing.T) {
	svc, _, repo := newTestService(t, func(p *ServiceParams) {
		p.Verifier = &fakeVerifier{
			finishAssertionFn: func(ChallengeOptions, []byte) (*AssertionResult, error) {
				return &AssertionResult{Success: false}, nil
			},
		}
	})
	ctx := context.Background()
	registerAlice(t, repo)

	start, err := svc.StartAuthentication(ctx, StartAuthenticationParams{Username: "alice"})
	require.NoError(t, err)

	_, err = svc.FinishAuthentication(ctx, FinishAuthenticationParams{
		RequestID: start.RequestID,
		Response:  json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestFinish_KindsAreIsolated(t *testing.T) {
	svc, _, repo := newTestService(t, nil)
	ctx := context.Background()
	registerAlice(t, repo)

	// A registration request id must be invisible to authentication finish
	// and vice versa.
	regStart := startRegistration(t, svc, "alice")
	_, err := svc.FinishAuthentication(ctx, FinishAuthenticationParams{
		RequestID: regStart.RequestID,
		Response:  json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, ErrUnknownCeremony)

	authStart, err := svc.StartAuthentication(ctx, StartAuthenticationParams{Username: "alice"})
	require.NoError(t, err)
	_, err = svc.FinishRegistration(ctx, FinishRegistrationParams{
		RequestID: authStart.RequestID,
		Response:  json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, ErrUnknownCeremony)
}

func TestManagementOperations(t *testing.T) {
	svc, _, repo := newTestService(t, nil)
	ctx := context.Background()
	registerAlice(t, repo)

	ids, err := svc.CredentialIDsForUsername(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, credentials.CredentialType, ids[0].Type)

	regs, err := svc.RegistrationsByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, regs, 1)

	require.NoError(t, svc.UpdateCredentialNickname(ctx, "alice", []byte("cred-1"), "Work Key"))
	stored, err := repo.RegistrationByUsernameAndCredentialID(ctx, "alice", []byte("cred-1"))
	require.NoError(t, err)
	assert.Equal(t, "Work Key", stored.Nickname)

	removed, err := svc.RemoveRegistration(ctx, "alice", []byte("no-such-cred"))
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = svc.RemoveRegistration(ctx, "alice", []byte("cred-1"))
	require.NoError(t, err)
	assert.True(t, removed)

	registerAlice(t, repo)
	require.NoError(t, svc.RemoveAllRegistrations(ctx, "alice"))
	exists, err := repo.UserExists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestManagementOperations_Malformed(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.CredentialIDsForUsername(ctx, "")
	assert.ErrorIs(t, err, ErrMalformedRequest)
	_, err = svc.RegistrationsByUsername(ctx, "")
	assert.ErrorIs(t, err, ErrMalformedRequest)
	assert.ErrorIs(t, svc.UpdateCredentialNickname(ctx, "alice", nil, "x"), ErrMalformedRequest)
	_, err = svc.RemoveRegistration(ctx, "", []byte("cred-1"))
	assert.ErrorIs(t, err, ErrMalformedRequest)
	assert.ErrorIs(t, svc.RemoveAllRegistrations(ctx, ""), ErrMalformedRequest)
}

func TestNewRequestID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, err := NewRequestID()
		require.NoError(t, err)
		assert.Len(t, id, 43) // 32 bytes, base64url without padding
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}
