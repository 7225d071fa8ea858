// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/machinenativeops/sentinel/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, identity_id, token_hash, expires_at, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		session.ID.String(),
		session.IdentityID.String(),
		session.TokenHash,
		session.ExpiresAt,
		session.CreatedAt,
		session.LastSeenAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, identity_id, token_hash, expires_at, created_at, last_seen_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("STORE_SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return session, nil
}

// UpdateLastSeen updates the LastSeenAt timestamp for a session.
func (r *SessionRepository) UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET last_seen_at = $2 WHERE id = $1`,
		id.String(), lastSeen)
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").
			With("operation", "update last seen").
			With("session_id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("STORE_SESSION_NOT_FOUND").
			With("session_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByTokenHash removes a session by its token hash.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("STORE_SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes all expired sessions and returns the count of
// deleted records.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, oops.Code("SESSION_REAP_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*auth.Session, error) {
	var session auth.Session
	var idStr, identityIDStr string

	if err := row.Scan(
		&idStr,
		&identityIDStr,
		&session.TokenHash,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.LastSeenAt,
	); err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_CORRUPT_ID").With("id", idStr).Wrap(err)
	}
	identityID, err := ulid.Parse(identityIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_CORRUPT_ID").With("identity_id", identityIDStr).Wrap(err)
	}
	session.ID = id
	session.IdentityID = identityID
	return &session, nil
}
