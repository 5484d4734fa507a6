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

package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository persists credential registrations in PostgreSQL.
// The credential_id primary key enforces global credential-id uniqueness;
// counter updates run in a FOR UPDATE transaction so concurrent assertions
// for the same credential serialize.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a Postgres-backed credential repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Ping verifies connectivity to the database.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// NewPostgresPool configures and returns a PostgreSQL connection pool.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS credential_registrations (
    credential_id     BYTEA PRIMARY KEY,
    username          TEXT NOT NULL,
    user_handle       BYTEA NOT NULL,
    user_display_name TEXT NOT NULL,
    public_key        BYTEA NOT NULL,
    signature_count   BIGINT NOT NULL DEFAULT 0,
    nickname          TEXT NOT NULL DEFAULT '',
    transports        JSONB,
    registered_at     TIMESTAMPTZ NOT NULL,
    last_used_at      TIMESTAMPTZ NOT NULL,
    last_updated_at   TIMESTAMPTZ NOT NULL,
    attestation       JSONB
);
CREATE INDEX IF NOT EXISTS credential_registrations_username_idx
    ON credential_registrations (username);
CREATE INDEX IF NOT EXISTS credential_registrations_user_handle_idx
    ON credential_registrations (user_handle);
`

// EnsureSchema creates the credential_registrations table if it is missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

const selectColumns = `
    credential_id, username, user_handle, user_display_name, public_key,
    signature_count, nickname, transports, registered_at, last_used_at,
    last_updated_at, attestation`

func scanRegistration(row pgx.Row) (*Registration, error) {
	var (
		reg             Registration
		signatureCount  int64
		transportsJSON  []byte
		attestationJSON []byte
	)
	err := row.Scan(
		&reg.CredentialID, &reg.User.Name, &reg.User.ID, &reg.User.DisplayName,
		&reg.PublicKey, &signatureCount, &reg.Nickname, &transportsJSON,
		&reg.RegisteredAt, &reg.LastUsedAt, &reg.LastUpdatedAt, &attestationJSON,
	)
	if err != nil {
		return nil, err
	}
	reg.SignatureCount = uint64(signatureCount)
	if len(transportsJSON) > 0 {
		if err := json.Unmarshal(transportsJSON, &reg.Transports); err != nil {
			return nil, fmt.Errorf("decode transports: %w", err)
		}
	}
	if len(attestationJSON) > 0 {
		reg.Attestation = &AttestationMetadata{}
		if err := json.Unmarshal(attestationJSON, reg.Attestation); err != nil {
			return nil, fmt.Errorf("decode attestation: %w", err)
		}
	}
	return &reg, nil
}

func (r *PostgresRepository) queryRegistrations(ctx context.Context, query string, args ...any) ([]*Registration, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := make([]*Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *PostgresRepository) RegistrationsByUsername(ctx context.Context, username string) ([]*Registration, error) {
	return r.queryRegistrations(ctx,
		`SELECT`+selectColumns+` FROM credential_registrations WHERE username = $1`, username)
}

func (r *PostgresRepository) RegistrationsByUserHandle(ctx context.Context, handle []byte) ([]*Registration, error) {
	return r.queryRegistrations(ctx,
		`SELECT`+selectColumns+` FROM credential_registrations WHERE user_handle = $1`, handle)
}

func (r *PostgresRepository) RegistrationByUsernameAndCredentialID(ctx context.Context, username string, credentialID []byte) (*Registration, error) {
	row := r.db.QueryRow(ctx,
		`SELECT`+selectColumns+` FROM credential_registrations WHERE username = $1 AND credential_id = $2`,
		username, credentialID)
	reg, err := scanRegistration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRegistrationNotFound
	}
	return reg, err
}

func (r *PostgresRepository) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM credential_registrations WHERE username = $1)`,
		username).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) CredentialIDsForUsername(ctx context.Context, username string) ([]Descriptor, error) {
	regs, err := r.RegistrationsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	descs := make([]Descriptor, 0, len(regs))
	for _, reg := range regs {
		descs = append(descs, reg.Descriptor())
	}
	return descs, nil
}

func (r *PostgresRepository) AddRegistration(ctx context.Context, username string, reg *Registration) error {
	transportsJSON, err := json.Marshal(reg.Transports)
	if err != nil {
		return fmt.Errorf("encode transports: %w", err)
	}
	var attestationJSON []byte
	if reg.Attestation != nil {
		attestationJSON, err = json.Marshal(reg.Attestation)
		if err != nil {
			return fmt.Errorf("encode attestation: %w", err)
		}
	}

	tag, err := r.db.Exec(ctx, `
        INSERT INTO credential_registrations (
            credential_id, username, user_handle, user_display_name,
            public_key, signature_count, nickname, transports,
            registered_at, last_used_at, last_updated_at, attestation
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (credential_id) DO NOTHING`,
		reg.CredentialID, username, reg.User.ID, reg.User.DisplayName,
		reg.PublicKey, int64(reg.SignatureCount), reg.Nickname, transportsJSON,
		reg.RegisteredAt, reg.LastUsedAt, reg.LastUpdatedAt, attestationJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateCredential
	}
	return nil
}

func (r *PostgresRepository) UpdateCredentialNickname(ctx context.Context, username string, credentialID []byte, nickname string) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE credential_registrations
        SET nickname = $3, last_updated_at = NOW()
        WHERE username = $1 AND credential_id = $2`,
		username, credentialID, nickname)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateSignatureCount(ctx context.Context, upd CounterUpdate) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var stored int64
	err = tx.QueryRow(ctx, `
        SELECT signature_count FROM credential_registrations
        WHERE username = $1 AND credential_id = $2
        FOR UPDATE`,
		upd.Username, upd.CredentialID).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRegistrationNotFound
	}
	if err != nil {
		return err
	}

	if upd.NewSignatureCount < uint64(stored) {
		return ErrCounterRegression
	}

	if _, err := tx.Exec(ctx, `
        UPDATE credential_registrations
        SET signature_count = $3, last_used_at = $4, last_updated_at = $4
        WHERE username = $1 AND credential_id = $2`,
		upd.Username, upd.CredentialID, int64(upd.NewSignatureCount), upd.UsedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) RemoveRegistration(ctx context.Context, username string, credentialID []byte) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM credential_registrations WHERE username = $1 AND credential_id = $2`,
		username, credentialID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) RemoveAllRegistrations(ctx context.Context, username string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM credential_registrations WHERE username = $1`, username)
	return err
}
