// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested identity or session does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned when inserting an identity whose
// username is already taken. Usernames are never reused, even after
// the original identity is deactivated.
var ErrDuplicateUsername = errors.New("duplicate username")

// ErrInvalidCredentials is the uniform authentication failure. Unknown
// username, inactive identity, missing credential, wrong credential, and
// lockout are indistinguishable through this error.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidSession is returned for unknown, expired, or revoked session
// tokens.
var ErrInvalidSession = errors.New("invalid session")
