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

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jeremyhahn/go-passkey-rp/pkg/ceremony"
	"github.com/jeremyhahn/go-passkey-rp/pkg/credentials"
	"github.com/jeremyhahn/go-passkey-rp/pkg/health"
	"github.com/jeremyhahn/go-passkey-rp/pkg/ratelimit"
	"github.com/jeremyhahn/go-passkey-rp/pkg/requeststore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouterWithOptions(t *testing.T, opts RouterOptions) http.Handler {
	t.Helper()
	svc, err := ceremony.NewService(ceremony.ServiceParams{
		Verifier:     &stubVerifier{},
		RequestStore: requeststore.NewMemoryStore(time.Minute),
		Repository:   credentials.NewMemoryRepository(),
	})
	require.NoError(t, err)
	return NewRouter(NewHandler(svc, nil), opts)
}

func TestReadyz_NoChecker(t *testing.T) {
	router := newRouterWithOptions(t, RouterOptions{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusHealthy, resp.Status)
}

func TestReadyz_HealthyBackends(t *testing.T) {
	checker := health.NewChecker()
	checker.RegisterCheck("request_store", health.PingCheck("request_store",
		func(ctx context.Context) error { return nil }))
	router := newRouterWithOptions(t, RouterOptions{Checker: checker})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusHealthy, resp.Status)
	require.Len(t, resp.Checks, 1)
	assert.Equal(t, "request_store", resp.Checks[0].Name)
}

func TestReadyz_UnhealthyBackend(t *testing.T) {
	checker := health.NewChecker()
	checker.RegisterCheck("credential_repository", health.PingCheck("credential_repository",
		func(ctx context.Context) error { return errors.New("connection refused") }))
	router := newRouterWithOptions(t, RouterOptions{Checker: checker})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusUnhealthy, resp.Status)
}

func TestRateLimit_AppliesToAPIOnly(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             1,
	})
	defer limiter.Stop()
	router := newRouterWithOptions(t, RouterOptions{Limiter: limiter})

	do := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "192.0.2.7:4242"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("/api/v1/users/alice/credentials"))
	assert.Equal(t, http.StatusTooManyRequests, do("/api/v1/users/alice/credentials"))

	// Health endpoints bypass the limiter.
	assert.Equal(t, http.StatusOK, do("/healthz"))
	assert.Equal(t, http.StatusOK, do("/readyz"))
}
