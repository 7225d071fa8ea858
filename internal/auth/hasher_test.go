// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machinenativeops/sentinel/internal/auth"
)

// testIterations keeps unit tests fast; production uses
// auth.DefaultHashIterations.
const testIterations = 1000

func TestHashCredential(t *testing.T) {
	hasher := auth.NewPBKDF2Hasher(testIterations)

	t.Run("produces salt:digest record", func(t *testing.T) {
		record, err := hasher.Hash("s3cret")
		require.NoError(t, err)

		parts := strings.Split(record, ":")
		require.Len(t, parts, 2)
		assert.Len(t, parts[0], 64) // 32-byte salt, hex-encoded
		assert.Len(t, parts[1], 64) // 32-byte digest, hex-encoded
	})

	t.Run("different credentials produce different records", func(t *testing.T) {
		record1, err := hasher.Hash("credential1")
		require.NoError(t, err)
		record2, err := hasher.Hash("credential2")
		require.NoError(t, err)
		assert.NotEqual(t, record1, record2)
	})

	t.Run("same credential produces different records (salt)", func(t *testing.T) {
		record1, err := hasher.Hash("samecredential")
		require.NoError(t, err)
		record2, err := hasher.Hash("samecredential")
		require.NoError(t, err)
		assert.NotEqual(t, record1, record2)

		// Both records still verify the credential.
		assert.True(t, hasher.Verify(record1, "samecredential"))
		assert.True(t, hasher.Verify(record2, "samecredential"))
	})

	t.Run("rejects empty credential", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, auth.ErrEmptyCredential)
	})

	t.Run("default iterations roundtrip", func(t *testing.T) {
		defaultHasher := auth.NewPBKDF2Hasher(0)
		record, err := defaultHasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, defaultHasher.Verify(record, "password123"))
	})
}

func TestVerifyCredential(t *testing.T) {
	hasher := auth.NewPBKDF2Hasher(testIterations)

	t.Run("correct credential verifies", func(t *testing.T) {
		record, err := hasher.Hash("correctcredential")
		require.NoError(t, err)
		assert.True(t, hasher.Verify(record, "correctcredential"))
	})

	t.Run("incorrect credential fails", func(t *testing.T) {
		record, err := hasher.Hash("correctcredential")
		require.NoError(t, err)
		assert.False(t, hasher.Verify(record, "wrongcredential"))
	})

	t.Run("empty record fails", func(t *testing.T) {
		assert.False(t, hasher.Verify("", "credential"))
	})

	t.Run("empty credential fails", func(t *testing.T) {
		record, err := hasher.Hash("credential")
		require.NoError(t, err)
		assert.False(t, hasher.Verify(record, ""))
	})

	t.Run("record without separator fails closed", func(t *testing.T) {
		assert.False(t, hasher.Verify("deadbeefdeadbeef", "credential"))
	})

	t.Run("record with extra separators fails closed", func(t *testing.T) {
		assert.False(t, hasher.Verify("dead:beef:dead", "credential"))
	})

	t.Run("non-hex salt fails closed", func(t *testing.T) {
		assert.False(t, hasher.Verify("zzzz:deadbeef", "credential"))
	})

	t.Run("non-hex digest fails closed", func(t *testing.T) {
		assert.False(t, hasher.Verify("deadbeef:zzzz", "credential"))
	})

	t.Run("empty salt or digest fails closed", func(t *testing.T) {
		assert.False(t, hasher.Verify(":deadbeef", "credential"))
		assert.False(t, hasher.Verify("deadbeef:", "credential"))
		assert.False(t, hasher.Verify(":", "credential"))
	})

	t.Run("iteration count mismatch fails", func(t *testing.T) {
		record, err := hasher.Hash("credential")
		require.NoError(t, err)

		other := auth.NewPBKDF2Hasher(testIterations + 1)
		assert.False(t, other.Verify(record, "credential"))
	})
}
