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
	"errors"
	"fmt"
	"net/http"

	"github.com/jeremyhahn/go-passkey-rp/internal/config"
	"github.com/jeremyhahn/go-passkey-rp/pkg/health"
	"github.com/jeremyhahn/go-passkey-rp/pkg/logging"
	"github.com/jeremyhahn/go-passkey-rp/pkg/ratelimit"
)

// Server wraps the HTTP server lifecycle for the relying party.
type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	logger     *logging.Logger
	limiter    *ratelimit.Limiter
}

// NewServer creates the HTTP server from the loaded configuration and the
// fully-wired handler. The checker backs the /readyz endpoint and may be
// nil.
func NewServer(cfg *config.Config, handler *Handler, checker *health.Checker, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	limiter := ratelimit.New(ratelimit.Config{
		Enabled:           cfg.Server.RateLimit.Enabled,
		RequestsPerMinute: cfg.Server.RateLimit.RequestsPerMinute,
		Burst:             cfg.Server.RateLimit.Burst,
	})
	router := NewRouter(handler, RouterOptions{
		MetricsPath: metricsPath,
		Checker:     checker,
		Limiter:     limiter,
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		cfg:     cfg,
		logger:  logger,
		limiter: limiter,
	}
}

// Run serves until the context is cancelled, then shuts down gracefully
// within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	s.limiter.Stop()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
