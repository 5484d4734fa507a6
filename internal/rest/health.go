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
	"encoding/json"
	"net/http"

	"github.com/jeremyhahn/go-passkey-rp/pkg/health"
)

// ReadinessResponse reports the aggregate status and individual backend
// check results.
type ReadinessResponse struct {
	Status health.Status        `json:"status"`
	Checks []health.CheckResult `json:"checks"`
}

// readinessHandler runs the registered backend checks and reports 503
// when any fails. A nil checker always reports ready.
func readinessHandler(checker *health.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(ReadinessResponse{Status: health.StatusHealthy})
			return
		}

		results := checker.Ready(r.Context())
		status := health.AggregateStatus(results)

		code := http.StatusOK
		if status == health.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(ReadinessResponse{Status: status, Checks: results})
	}
}
