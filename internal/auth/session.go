// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32             // 32 bytes = 64 hex chars
	DefaultSessionTTL = 24 * time.Hour // default session lifetime

	// TokenPrefixLength is the number of leading token characters recorded
	// in audit events for correlation. The prefix is not reversible into
	// the token.
	TokenPrefixLength = 8
)

// Session is the record kept for an issued session token. Only the
// SHA-256 hash of the token is stored; the plaintext token is returned to
// the caller exactly once at issuance.
type Session struct {
	ID         ulid.ULID
	IdentityID ulid.ULID
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// NewSession creates a validated Session instance.
func NewSession(identityID ulid.ULID, tokenHash string, expiresAt time.Time) (*Session, error) {
	if identityID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_IDENTITY").Errorf("identity ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now()
	return &Session{
		ID:         ulid.Make(),
		IdentityID: identityID,
		TokenHash:  tokenHash,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsExpiredAt returns true if the session would be expired at the given time.
// Useful for testing with deterministic time values.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token goes to the caller; only the hash is retained.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashSessionToken(token)

	return token, hash, nil
}

// HashSessionToken computes the SHA-256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifySessionToken checks if the plaintext token matches the stored hash.
// Uses constant-time comparison to prevent timing attacks.
func VerifySessionToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	computed := HashSessionToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// TokenPrefix returns the audit-safe correlation prefix of a token.
func TokenPrefix(token string) string {
	if len(token) <= TokenPrefixLength {
		return token
	}
	return token[:TokenPrefixLength]
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	// Returns ErrNotFound if no session matches.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// UpdateLastSeen updates the LastSeenAt timestamp for a session.
	UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error

	// DeleteByTokenHash removes a session by its token hash.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteExpired removes all expired sessions and returns the count of
	// deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}
