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

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeremyhahn/go-passkey-rp/internal/config"
	"github.com/jeremyhahn/go-passkey-rp/internal/rest"
	"github.com/jeremyhahn/go-passkey-rp/pkg/ceremony"
	"github.com/jeremyhahn/go-passkey-rp/pkg/credentials"
	"github.com/jeremyhahn/go-passkey-rp/pkg/health"
	"github.com/jeremyhahn/go-passkey-rp/pkg/logging"
	"github.com/jeremyhahn/go-passkey-rp/pkg/metadata"
	"github.com/jeremyhahn/go-passkey-rp/pkg/requeststore"
	"github.com/jeremyhahn/go-passkey-rp/pkg/verifier"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "/etc/passkey-rp/config.yaml"

// serveCmd runs the relying-party HTTP server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relying-party server",
	Long:  `Run the relying-party HTTP server until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			path = defaultConfigPath
		}
		if envConfig := os.Getenv("PASSKEY_RP_CONFIG"); envConfig != "" && configFile == "" {
			path = envConfig
		}

		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg)
	},
}

// serve wires the configured backends together and runs the HTTP server
// until the context is cancelled.
func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.NewLogger(cfg.Logging.Debug)
	checker := health.NewChecker()

	repo, err := buildRepository(ctx, cfg, checker)
	if err != nil {
		return err
	}

	store, err := buildRequestStore(ctx, cfg, checker)
	if err != nil {
		return err
	}

	resolver, err := buildResolver(cfg, logger)
	if err != nil {
		return err
	}

	wv, err := verifier.New(&verifier.Config{
		RPID:                  cfg.RelyingParty.ID,
		RPDisplayName:         cfg.RelyingParty.DisplayName,
		RPOrigins:             cfg.RelyingParty.Origins,
		Timeout:               cfg.Ceremony.Timeout,
		AttestationPreference: cfg.RelyingParty.Attestation,
		Debug:                 cfg.Logging.Debug,
	}, repo)
	if err != nil {
		return fmt.Errorf("failed to create verifier: %w", err)
	}

	svc, err := ceremony.NewService(ceremony.ServiceParams{
		Verifier:            wv,
		RequestStore:        store,
		Repository:          repo,
		AttestationResolver: resolver,
		Logger:              logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create ceremony service: %w", err)
	}

	handler := rest.NewHandler(svc, logger)
	server := rest.NewServer(cfg, handler, checker, logger)

	logger.Infof("starting relying party %q for origins %v",
		cfg.RelyingParty.ID, cfg.RelyingParty.Origins)
	return server.Run(ctx)
}

// buildRepository creates the configured credential repository backend
// and registers its readiness check.
func buildRepository(ctx context.Context, cfg *config.Config, checker *health.Checker) (credentials.Repository, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := credentials.NewPostgresPool(ctx, cfg.Storage.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		repo := credentials.NewPostgresRepository(pool)
		if cfg.Storage.Postgres.EnsureSchema {
			if err := repo.EnsureSchema(ctx); err != nil {
				return nil, fmt.Errorf("failed to ensure schema: %w", err)
			}
		}
		checker.RegisterCheck("credential_repository", health.PingCheck("credential_repository", repo.Ping))
		return repo, nil
	default:
		return credentials.NewMemoryRepository(), nil
	}
}

// buildRequestStore creates the configured pending-request store backend
// and registers its readiness check.
func buildRequestStore(ctx context.Context, cfg *config.Config, checker *health.Checker) (ceremony.RequestStore, error) {
	switch cfg.Ceremony.RequestStore {
	case "redis":
		store, err := requeststore.NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.Ceremony.Redis.Addr,
			Password: cfg.Ceremony.Redis.Password,
			DB:       cfg.Ceremony.Redis.DB,
		}, cfg.Ceremony.Timeout)
		if err != nil {
			return nil, err
		}
		checker.RegisterCheck("request_store", health.PingCheck("request_store", store.Ping))
		return store, nil
	default:
		store := requeststore.NewMemoryStore(cfg.Ceremony.Timeout)
		store.StartCleanupRoutine(ctx, cfg.Ceremony.CleanupInterval)
		return store, nil
	}
}

// buildResolver creates the attestation metadata resolver, or nil when no
// BLOB is configured.
func buildResolver(cfg *config.Config, logger *logging.Logger) (ceremony.AttestationResolver, error) {
	if cfg.Metadata.BlobPath == "" {
		return nil, nil
	}
	source, err := metadata.LoadBlobSource(cfg.Metadata.BlobPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata blob: %w", err)
	}
	logger.Infof("loaded %d metadata entries from %s", source.Len(), cfg.Metadata.BlobPath)
	return metadata.NewResolver(source), nil
}
