// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

// Package postgres provides PostgreSQL-backed implementations of the auth
// storage interfaces for deployments that outlive a single process.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/machinenativeops/sentinel/internal/auth"
)

// poolIface is the subset of pgxpool.Pool used by the repositories.
// pgxmock.PgxPoolIface satisfies it for unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IdentityStore implements auth.IdentityStore using PostgreSQL.
type IdentityStore struct {
	pool poolIface
}

// NewIdentityStore creates a new IdentityStore.
func NewIdentityStore(pool poolIface) *IdentityStore {
	return &IdentityStore{pool: pool}
}

// Insert stores a new identity. A unique violation on the username column
// maps to auth.ErrDuplicateUsername.
func (s *IdentityStore) Insert(ctx context.Context, identity *auth.Identity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO identities (
			id, username, email, credential_digest, is_active,
			failed_attempts, locked_until, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		identity.ID.String(),
		identity.Username,
		identity.Email,
		identity.CredentialDigest,
		identity.IsActive,
		identity.FailedAttempts,
		identity.LockedUntil,
		identity.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("STORE_DUPLICATE_USERNAME").
				With("username", identity.Username).
				Wrap(auth.ErrDuplicateUsername)
		}
		return oops.Code("IDENTITY_INSERT_FAILED").
			With("operation", "insert identity").
			With("username", identity.Username).
			Wrap(err)
	}
	return nil
}

// FindActiveByUsername retrieves the first-inserted active identity with
// the given username (case-sensitive).
func (s *IdentityStore) FindActiveByUsername(ctx context.Context, username string) (*auth.Identity, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, email, credential_digest, is_active,
		       failed_attempts, locked_until, created_at
		FROM identities
		WHERE username = $1 AND is_active
		ORDER BY created_at, id
		LIMIT 1
	`, username)

	identity, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("STORE_IDENTITY_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_FIND_FAILED").
			With("operation", "find active identity by username").
			With("username", username).
			Wrap(err)
	}
	return identity, nil
}

// Update updates an existing identity by ID.
func (s *IdentityStore) Update(ctx context.Context, identity *auth.Identity) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE identities
		SET email = $2, credential_digest = $3, is_active = $4,
		    failed_attempts = $5, locked_until = $6
		WHERE id = $1
	`,
		identity.ID.String(),
		identity.Email,
		identity.CredentialDigest,
		identity.IsActive,
		identity.FailedAttempts,
		identity.LockedUntil,
	)
	if err != nil {
		return oops.Code("IDENTITY_UPDATE_FAILED").
			With("operation", "update identity").
			With("id", identity.ID.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("STORE_IDENTITY_NOT_FOUND").
			With("id", identity.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// All returns every identity in insertion order.
func (s *IdentityStore) All(ctx context.Context) ([]auth.Identity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, email, credential_digest, is_active,
		       failed_attempts, locked_until, created_at
		FROM identities
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, oops.Code("IDENTITY_LIST_FAILED").
			With("operation", "list identities").
			Wrap(err)
	}
	defer rows.Close()

	var identities []auth.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, oops.Code("IDENTITY_LIST_FAILED").
				With("operation", "scan identity row").
				Wrap(err)
		}
		identities = append(identities, *identity)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("IDENTITY_LIST_FAILED").
			With("operation", "iterate identities").
			Wrap(err)
	}
	return identities, nil
}

func scanIdentity(row pgx.Row) (*auth.Identity, error) {
	var identity auth.Identity
	var idStr string
	var lockedUntil *time.Time

	if err := row.Scan(
		&idStr,
		&identity.Username,
		&identity.Email,
		&identity.CredentialDigest,
		&identity.IsActive,
		&identity.FailedAttempts,
		&lockedUntil,
		&identity.CreatedAt,
	); err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("IDENTITY_CORRUPT_ID").
			With("id", idStr).
			Wrap(err)
	}
	identity.ID = id
	identity.LockedUntil = lockedUntil
	return &identity, nil
}
