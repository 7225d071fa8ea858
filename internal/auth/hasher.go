// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. The iteration count is configurable per hasher; the
// default matches the deployment baseline and is costly enough to resist
// offline brute force.
const (
	DefaultHashIterations = 100_000
	hashSaltLen           = 32 // 256-bit salt
	hashKeyLen            = 32 // 256-bit derived key
)

// ErrEmptyCredential is returned when attempting to hash an empty credential.
var ErrEmptyCredential = oops.Code("AUTH_EMPTY_CREDENTIAL").Errorf("credential cannot be empty")

// CredentialHasher provides credential hashing and verification.
type CredentialHasher interface {
	// Hash produces a salted digest record of the credential.
	Hash(credential string) (string, error)

	// Verify checks the credential against a digest record. It is total:
	// malformed records verify as false, never as an error.
	Verify(record, credential string) bool
}

// PBKDF2Hasher implements CredentialHasher using PBKDF2-HMAC-SHA256.
//
// Records have the form "hex(salt):hex(digest)". The colon separator is
// unambiguous because it cannot appear in hex output. There is no decode
// or extraction API; digests are irreversible by design.
type PBKDF2Hasher struct {
	iterations int
}

// NewPBKDF2Hasher creates a PBKDF2Hasher. Iteration counts below 1 fall
// back to DefaultHashIterations.
func NewPBKDF2Hasher(iterations int) *PBKDF2Hasher {
	if iterations < 1 {
		iterations = DefaultHashIterations
	}
	return &PBKDF2Hasher{iterations: iterations}
}

// Hash produces a salted PBKDF2 digest record of the credential.
func (h *PBKDF2Hasher) Hash(credential string) (string, error) {
	if credential == "" {
		return "", ErrEmptyCredential
	}

	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := pbkdf2.Key([]byte(credential), salt, h.iterations, hashKeyLen, sha256.New)

	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// Verify re-derives the digest from the credential using the record's salt
// and compares in constant time. Malformed records fail closed: wrong
// separator count or non-hex content returns false without surfacing why.
func (h *PBKDF2Hasher) Verify(record, credential string) bool {
	if record == "" || credential == "" {
		return false
	}

	parts := strings.Split(record, ":")
	if len(parts) != 2 {
		return false
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil || len(salt) == 0 {
		return false
	}

	stored, err := hex.DecodeString(parts[1])
	if err != nil || len(stored) == 0 {
		return false
	}

	computed := pbkdf2.Key([]byte(credential), salt, h.iterations, len(stored), sha256.New)

	return subtle.ConstantTimeCompare(computed, stored) == 1
}
