// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

// Package auth provides the security core of sentinel: identity storage,
// credential hashing, and session issuance.
//
// # Domain Types
//
// Domain types (Identity, Session) should be created using their
// constructors:
//   - NewIdentity - creates an Identity with a validated username
//   - NewSession - creates a Session with a validated identity and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Store implementations receive pre-validated types from these
// constructors.
//
// # Session Authority
//
// Authority orchestrates the identity store, credential hasher, session
// registry, and audit log. It owns the one-time bootstrap that provisions
// a default administrative identity, and is safe for concurrent use.
//
// Authentication failures are deliberately uniform: an unknown username,
// an inactive identity, an identity with no credential set, and a wrong
// credential all produce ErrInvalidCredentials. The distinction is only
// observable through logs and the audit trail.
package auth
