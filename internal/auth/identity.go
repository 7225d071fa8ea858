// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Identity represents a stored principal.
//
// An empty CredentialDigest means no credential has been set; such an
// identity can never authenticate. Usernames are matched case-sensitively
// everywhere: "Admin" and "admin" are distinct identities.
type Identity struct {
	ID               ulid.ULID
	Username         string
	Email            string
	CredentialDigest string
	IsActive         bool
	FailedAttempts   int
	LockedUntil      *time.Time
	CreatedAt        time.Time
}

// NewIdentity creates a validated, active Identity. The credential digest
// may be empty for identities that cannot yet log in.
func NewIdentity(username, email, credentialDigest string) (*Identity, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	return &Identity{
		ID:               ulid.Make(),
		Username:         username,
		Email:            email,
		CredentialDigest: credentialDigest,
		IsActive:         true,
		CreatedAt:        time.Now(),
	}, nil
}

// IsLocked returns true if the identity is currently locked out.
func (i *Identity) IsLocked() bool {
	return IsLockedOut(i.LockedUntil)
}

// RecordFailure increments the failure counter and sets lockout if the
// threshold is reached.
func (i *Identity) RecordFailure() {
	i.FailedAttempts++
	i.LockedUntil = ComputeLockoutTime(i.FailedAttempts)
}

// RecordSuccess resets the failure counter and lockout.
func (i *Identity) RecordSuccess() {
	i.FailedAttempts = 0
	i.LockedUntil = nil
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// IdentityStore manages identity persistence.
type IdentityStore interface {
	// Insert stores a new identity. Returns ErrDuplicateUsername if the
	// username is already taken, including by an inactive identity.
	Insert(ctx context.Context, identity *Identity) error

	// FindActiveByUsername retrieves the first-inserted active identity
	// with the given username (case-sensitive exact match).
	// Returns ErrNotFound if no active identity matches.
	FindActiveByUsername(ctx context.Context, username string) (*Identity, error)

	// Update updates an existing identity by ID.
	Update(ctx context.Context, identity *Identity) error

	// All returns a copy of every identity in insertion order.
	All(ctx context.Context) ([]Identity, error)
}
