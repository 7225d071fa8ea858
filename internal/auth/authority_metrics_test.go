// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machinenativeops/sentinel/internal/audit"
)

// The gauge is process-global, so assertions are deltas against the value
// observed at the start of the test.
func TestSessionsActiveGauge(t *testing.T) {
	ctx := t.Context()

	newReadyAuthority := func(t *testing.T, opts AuthorityOptions) (*Authority, string) {
		t.Helper()
		var credential string
		notifier := NotifierFunc(func(_ context.Context, _, c string) error {
			credential = c
			return nil
		})
		authority, err := NewAuthority(
			NewMemoryIdentityStore(),
			NewMemorySessionRepository(),
			NewPBKDF2Hasher(1000),
			audit.NewLog(),
			notifier,
			opts,
		)
		require.NoError(t, err)
		require.NoError(t, authority.Bootstrap(ctx))
		return authority, credential
	}

	t.Run("tracks issue and logout", func(t *testing.T) {
		authority, credential := newReadyAuthority(t, AuthorityOptions{})
		before := testutil.ToFloat64(sessionsActive)

		token, err := authority.Authenticate(ctx, DefaultBootstrapUsername, credential)
		require.NoError(t, err)
		assert.Equal(t, before+1, testutil.ToFloat64(sessionsActive))

		require.NoError(t, authority.Logout(ctx, token))
		assert.Equal(t, before, testutil.ToFloat64(sessionsActive))

		// Logging out an already revoked token must not drive the gauge
		// below the number of stored sessions.
		require.NoError(t, authority.Logout(ctx, token))
		assert.Equal(t, before, testutil.ToFloat64(sessionsActive))
	})

	t.Run("tracks reaped sessions", func(t *testing.T) {
		authority, credential := newReadyAuthority(t, AuthorityOptions{SessionTTL: time.Nanosecond})
		before := testutil.ToFloat64(sessionsActive)

		_, err := authority.Authenticate(ctx, DefaultBootstrapUsername, credential)
		require.NoError(t, err)
		assert.Equal(t, before+1, testutil.ToFloat64(sessionsActive))

		time.Sleep(time.Millisecond)
		deleted, err := authority.DeleteExpiredSessions(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(1), deleted)
		assert.Equal(t, before, testutil.ToFloat64(sessionsActive))
	})

	t.Run("failed authentication leaves the gauge alone", func(t *testing.T) {
		authority, _ := newReadyAuthority(t, AuthorityOptions{})
		before := testutil.ToFloat64(sessionsActive)

		_, err := authority.Authenticate(ctx, DefaultBootstrapUsername, "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, before, testutil.ToFloat64(sessionsActive))
	})
}
