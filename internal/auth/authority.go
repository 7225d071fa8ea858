// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/oops"

	"github.com/machinenativeops/sentinel/internal/audit"
)

// Bootstrap defaults for the provisioned administrative identity.
const (
	DefaultBootstrapUsername = "admin"
	DefaultBootstrapEmail    = "admin@machinenativeops.ai"

	bootstrapCredentialBytes = 24 // 32 base64url chars
)

// dummyCredentialDigest is used when no identity matches a login attempt.
// Verification still runs against it so response time stays consistent
// whether or not the username exists. It is a well-formed record that can
// never match any credential; it is not a real secret.
//
//nolint:gosec // G101: intentionally fake digest for timing-attack prevention, not a credential.
const dummyCredentialDigest = "0000000000000000000000000000000000000000000000000000000000000000:0000000000000000000000000000000000000000000000000000000000000000"

var authAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_auth_attempts_total",
	Help: "Total number of authentication attempts by result",
}, []string{"result"})

var sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "sentinel_sessions_active",
	Help: "Number of sessions issued by this process and not yet revoked or reaped",
})

// Authority orchestrates identity lookup, credential verification, session
// issuance, and audit recording. It exclusively owns its identity store,
// session repository, and audit log for the process lifetime.
//
// Lifecycle: an Authority starts uninitialized and becomes ready exactly
// once via Bootstrap. All operations are safe for concurrent use.
type Authority struct {
	store    IdentityStore
	sessions SessionRepository
	hasher   CredentialHasher
	log      *audit.Log
	notifier CredentialNotifier
	logger   *slog.Logger

	sessionTTL        time.Duration
	bootstrapUsername string
	bootstrapEmail    string

	mu          sync.Mutex
	initialized bool
}

// AuthorityOptions tunes an Authority. Zero values select defaults.
type AuthorityOptions struct {
	// SessionTTL is the lifetime of issued sessions. Defaults to
	// DefaultSessionTTL.
	SessionTTL time.Duration

	// BootstrapUsername and BootstrapEmail shape the default identity
	// provisioned on an empty store.
	BootstrapUsername string
	BootstrapEmail    string

	// Logger receives internal warning and info events. Defaults to
	// slog.Default.
	Logger *slog.Logger
}

// NewAuthority creates an Authority. The store, session repository,
// hasher, audit log, and notifier are all required.
func NewAuthority(store IdentityStore, sessions SessionRepository, hasher CredentialHasher, log *audit.Log, notifier CredentialNotifier, opts AuthorityOptions) (*Authority, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("identity store is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("session repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("credential hasher is required")
	}
	if log == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("audit log is required")
	}
	if notifier == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("credential notifier is required")
	}

	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.BootstrapUsername == "" {
		opts.BootstrapUsername = DefaultBootstrapUsername
	}
	if opts.BootstrapEmail == "" {
		opts.BootstrapEmail = DefaultBootstrapEmail
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Authority{
		store:             store,
		sessions:          sessions,
		hasher:            hasher,
		log:               log,
		notifier:          notifier,
		logger:            opts.Logger,
		sessionTTL:        opts.SessionTTL,
		bootstrapUsername: opts.BootstrapUsername,
		bootstrapEmail:    opts.BootstrapEmail,
	}, nil
}

// Ready reports whether Bootstrap has completed.
func (a *Authority) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

// Bootstrap provisions a default administrative identity if the store is
// empty, then marks the Authority ready. It is idempotent: concurrent or
// repeated calls provision at most one identity and emit at most one audit
// event.
//
// The generated credential surfaces exactly once through the configured
// notifier and is never stored in plaintext anywhere, including the audit
// trail.
func (a *Authority) Bootstrap(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}

	identities, err := a.store.All(ctx)
	if err != nil {
		return oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "enumerate identities").
			Wrap(err)
	}

	if len(identities) == 0 {
		if err := a.provisionDefaultIdentity(ctx); err != nil {
			return err
		}
	}

	a.initialized = true
	a.logger.InfoContext(ctx, "session authority ready")
	return nil
}

func (a *Authority) provisionDefaultIdentity(ctx context.Context) error {
	credential, err := generateBootstrapCredential()
	if err != nil {
		return oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "generate credential").
			Wrap(err)
	}

	digest, err := a.hasher.Hash(credential)
	if err != nil {
		return oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "hash credential").
			Wrap(err)
	}

	identity, err := NewIdentity(a.bootstrapUsername, a.bootstrapEmail, digest)
	if err != nil {
		return oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "create identity").
			Wrap(err)
	}

	if err := a.store.Insert(ctx, identity); err != nil {
		return oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "insert identity").
			Wrap(err)
	}

	// If the operator never sees the credential the identity is unusable,
	// so a notifier failure fails the bootstrap.
	if err := a.notifier.NotifyInitialCredential(ctx, identity.Username, credential); err != nil {
		return oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "notify credential").
			Wrap(err)
	}

	if err := a.log.Append(ctx, audit.Event{
		Kind: audit.KindIdentityProvisioned,
		Details: map[string]string{
			"username": identity.Username,
		},
	}); err != nil {
		return oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "append audit event").
			Wrap(err)
	}

	a.logger.InfoContext(ctx, "provisioned default administrative identity",
		"username", identity.Username)
	return nil
}

// Authenticate verifies a (username, credential) pair and mints a session
// token on success.
//
// Every failure mode returns ErrInvalidCredentials: unknown username,
// inactive identity, missing stored credential, wrong credential, and
// lockout are indistinguishable to the caller. Only successes and
// provisioning are audited; misses surface as warning-level log events.
func (a *Authority) Authenticate(ctx context.Context, username, credential string) (string, error) {
	identity, lookupErr := a.store.FindActiveByUsername(ctx, username)
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return "", oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "find active identity").
			Wrap(lookupErr)
	}
	exists := lookupErr == nil

	// Verification always runs, against the dummy digest when there is
	// nothing real to check, so a lookup miss costs the same as a
	// credential mismatch.
	digest := dummyCredentialDigest
	if exists && identity.CredentialDigest != "" {
		digest = identity.CredentialDigest
	}
	valid := a.hasher.Verify(digest, credential)

	if !exists || identity.CredentialDigest == "" || !valid {
		if exists {
			identity.RecordFailure()
			_ = a.store.Update(ctx, identity) //nolint:errcheck // Best effort, miss is returned regardless
		}
		a.logger.WarnContext(ctx, "authentication failed", "username", username)
		authAttemptsTotal.WithLabelValues("failure").Inc()
		return "", ErrInvalidCredentials
	}

	// Lockout is checked after verification so locked and unlocked
	// attempts take the same time.
	if identity.IsLocked() {
		a.logger.WarnContext(ctx, "authentication rejected for locked identity", "username", username)
		authAttemptsTotal.WithLabelValues("failure").Inc()
		return "", ErrInvalidCredentials
	}

	if identity.FailedAttempts > 0 {
		identity.RecordSuccess()
		_ = a.store.Update(ctx, identity) //nolint:errcheck // Best effort, authentication succeeds regardless
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(identity.ID, tokenHash, time.Now().Add(a.sessionTTL))
	if err != nil {
		return "", oops.Code("AUTH_SESSION_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := a.sessions.Create(ctx, session); err != nil {
		return "", oops.Code("AUTH_SESSION_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	if err := a.log.Append(ctx, audit.Event{
		Kind: audit.KindIdentityAuthenticated,
		Details: map[string]string{
			"username":     username,
			"token_prefix": TokenPrefix(token),
		},
	}); err != nil {
		return "", oops.Code("AUTH_AUDIT_FAILED").
			With("operation", "append audit event").
			Wrap(err)
	}

	authAttemptsTotal.WithLabelValues("success").Inc()
	sessionsActive.Inc()
	return token, nil
}

// ValidateSession resolves a previously issued token to its session while
// it remains unexpired, and bumps the session's LastSeenAt. Unknown,
// expired, and revoked tokens all return ErrInvalidSession.
func (a *Authority) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	session, err := a.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, oops.Code("AUTH_SESSION_LOOKUP_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		return nil, ErrInvalidSession
	}

	_ = a.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck // Best effort, validation succeeds regardless

	return session, nil
}

// Logout revokes the session for a token. Revoking an unknown token is a
// no-op.
func (a *Authority) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := a.sessions.DeleteByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	sessionsActive.Dec()
	return nil
}

// DeleteExpiredSessions reaps expired sessions and returns the count of
// deleted records.
func (a *Authority) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	deleted, err := a.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("AUTH_REAP_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	sessionsActive.Sub(float64(deleted))
	return deleted, nil
}

// AuditSnapshot returns a copy of the audit trail in append order.
func (a *Authority) AuditSnapshot() []audit.Event {
	return a.log.Snapshot()
}

// generateBootstrapCredential returns a high-entropy one-time credential.
func generateBootstrapCredential() (string, error) {
	raw := make([]byte, bootstrapCredentialBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", oops.Code("AUTH_CREDENTIAL_GENERATE_FAILED").Wrap(err)
	}
	credential := base64.RawURLEncoding.EncodeToString(raw)
	// base64url never produces the record separator, but keep the
	// invariant explicit for future encoding changes.
	if strings.ContainsRune(credential, ':') {
		return "", oops.Code("AUTH_CREDENTIAL_GENERATE_FAILED").Errorf("credential contains separator")
	}
	return credential, nil
}
