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
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jeremyhahn/go-passkey-rp/pkg/health"
	"github.com/jeremyhahn/go-passkey-rp/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions controls optional router features.
type RouterOptions struct {
	// MetricsPath mounts the Prometheus endpoint when non-empty.
	MetricsPath string

	// Checker backs the /readyz endpoint. Nil reports always ready.
	Checker *health.Checker

	// Limiter applies per-client rate limiting to the API routes.
	Limiter *ratelimit.Limiter
}

// NewRouter builds the chi router with all relying-party routes mounted.
func NewRouter(h *Handler, opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Get("/readyz", readinessHandler(opts.Checker))
	if opts.MetricsPath != "" {
		r.Handle(opts.MetricsPath, promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		if opts.Limiter != nil && opts.Limiter.Enabled() {
			r.Use(opts.Limiter.Middleware)
		}
		r.Route("/api/v1", func(r chi.Router) {
			Mount(r, h)
		})
	})

	return r
}

// Mount mounts the ceremony and credential-management routes on a chi
// router.
func Mount(r chi.Router, h *Handler) {
	r.Post("/register", h.StartRegistration)
	r.Post("/register/finish", h.FinishRegistration)
	r.Post("/authenticate", h.StartAuthentication)
	r.Post("/authenticate/finish", h.FinishAuthentication)

	r.Route("/users/{username}", func(r chi.Router) {
		r.Get("/credentials", h.ListRegistrations)
		r.Delete("/credentials", h.RemoveAllRegistrations)
		r.Get("/credentialIds", h.ListCredentialIDs)
		r.Put("/credentials/{credentialId}/nickname", h.UpdateNickname)
		r.Delete("/credentials/{credentialId}", h.RemoveRegistration)
	})
}
