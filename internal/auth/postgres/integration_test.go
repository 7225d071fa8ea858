// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/oklog/ulid/v2"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/machinenativeops/sentinel/internal/audit"
	"github.com/machinenativeops/sentinel/internal/auth"
	authpg "github.com/machinenativeops/sentinel/internal/auth/postgres"
	"github.com/machinenativeops/sentinel/internal/store"
)

// setupPostgresContainer starts a PostgreSQL container, applies migrations,
// and returns a connected pool.
func setupPostgresContainer() (*pgxpool.Pool, func(), error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("sentinel_test"),
		tcpostgres.WithUsername("sentinel"),
		tcpostgres.WithPassword("sentinel"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, err
	}
	_ = migrator.Close()

	pool, err := store.NewPool(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup, nil
}

var _ = Describe("Auth repositories", func() {
	var pool *pgxpool.Pool
	var cleanup func()

	BeforeEach(func() {
		var err error
		pool, cleanup, err = setupPostgresContainer()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	Describe("IdentityStore", func() {
		var identities *authpg.IdentityStore

		BeforeEach(func() {
			identities = authpg.NewIdentityStore(pool)
		})

		It("round-trips an identity", func() {
			ctx := context.Background()
			identity, err := auth.NewIdentity("alice", "alice@example.com", "salt:digest")
			Expect(err).NotTo(HaveOccurred())

			Expect(identities.Insert(ctx, identity)).To(Succeed())

			found, err := identities.FindActiveByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(identity.ID))
			Expect(found.Email).To(Equal("alice@example.com"))
			Expect(found.CredentialDigest).To(Equal("salt:digest"))
			Expect(found.IsActive).To(BeTrue())
		})

		It("enforces username uniqueness", func() {
			ctx := context.Background()
			first, err := auth.NewIdentity("alice", "", "salt:digest")
			Expect(err).NotTo(HaveOccurred())
			Expect(identities.Insert(ctx, first)).To(Succeed())

			second, err := auth.NewIdentity("alice", "", "salt:digest")
			Expect(err).NotTo(HaveOccurred())
			Expect(identities.Insert(ctx, second)).To(MatchError(auth.ErrDuplicateUsername))
		})

		It("matches usernames case-sensitively", func() {
			ctx := context.Background()
			identity, err := auth.NewIdentity("Alice", "", "salt:digest")
			Expect(err).NotTo(HaveOccurred())
			Expect(identities.Insert(ctx, identity)).To(Succeed())

			_, err = identities.FindActiveByUsername(ctx, "alice")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("skips inactive identities on lookup", func() {
			ctx := context.Background()
			identity, err := auth.NewIdentity("alice", "", "salt:digest")
			Expect(err).NotTo(HaveOccurred())
			Expect(identities.Insert(ctx, identity)).To(Succeed())

			identity.IsActive = false
			Expect(identities.Update(ctx, identity)).To(Succeed())

			_, err = identities.FindActiveByUsername(ctx, "alice")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("persists lockout state through updates", func() {
			ctx := context.Background()
			identity, err := auth.NewIdentity("alice", "", "salt:digest")
			Expect(err).NotTo(HaveOccurred())
			Expect(identities.Insert(ctx, identity)).To(Succeed())

			for range auth.LockoutThreshold {
				identity.RecordFailure()
			}
			Expect(identities.Update(ctx, identity)).To(Succeed())

			found, err := identities.FindActiveByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.FailedAttempts).To(Equal(auth.LockoutThreshold))
			Expect(found.LockedUntil).NotTo(BeNil())
			Expect(found.IsLocked()).To(BeTrue())
		})

		It("lists identities in insertion order", func() {
			ctx := context.Background()
			for _, name := range []string{"alice", "bob", "carol"} {
				identity, err := auth.NewIdentity(name, "", "salt:digest")
				Expect(err).NotTo(HaveOccurred())
				Expect(identities.Insert(ctx, identity)).To(Succeed())
				time.Sleep(time.Millisecond) // Ensure ULID ordering
			}

			all, err := identities.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
			Expect(all[0].Username).To(Equal("alice"))
			Expect(all[2].Username).To(Equal("carol"))
		})
	})

	Describe("SessionRepository", func() {
		var identities *authpg.IdentityStore
		var sessions *authpg.SessionRepository
		var identityID ulid.ULID

		BeforeEach(func() {
			identities = authpg.NewIdentityStore(pool)
			sessions = authpg.NewSessionRepository(pool)

			identity, err := auth.NewIdentity("alice", "", "salt:digest")
			Expect(err).NotTo(HaveOccurred())
			Expect(identities.Insert(context.Background(), identity)).To(Succeed())
			identityID = identity.ID
		})

		It("round-trips a session", func() {
			ctx := context.Background()
			session, err := auth.NewSession(identityID, "tokenhash", time.Now().Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(ctx, session)).To(Succeed())

			found, err := sessions.GetByTokenHash(ctx, "tokenhash")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(session.ID))
			Expect(found.IdentityID).To(Equal(identityID))
		})

		It("returns not found for unknown token hashes", func() {
			_, err := sessions.GetByTokenHash(context.Background(), "unknown")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("deletes sessions by token hash", func() {
			ctx := context.Background()
			session, err := auth.NewSession(identityID, "tokenhash", time.Now().Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(ctx, session)).To(Succeed())

			Expect(sessions.DeleteByTokenHash(ctx, "tokenhash")).To(Succeed())
			_, err = sessions.GetByTokenHash(ctx, "tokenhash")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("reaps only expired sessions", func() {
			ctx := context.Background()
			expired, err := auth.NewSession(identityID, "expired", time.Now().Add(-time.Minute))
			Expect(err).NotTo(HaveOccurred())
			live, err := auth.NewSession(identityID, "live", time.Now().Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(ctx, expired)).To(Succeed())
			Expect(sessions.Create(ctx, live)).To(Succeed())

			deleted, err := sessions.DeleteExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(1)))

			_, err = sessions.GetByTokenHash(ctx, "live")
			Expect(err).NotTo(HaveOccurred())
		})

		It("cascades deletion when the identity is removed", func() {
			ctx := context.Background()
			session, err := auth.NewSession(identityID, "tokenhash", time.Now().Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(ctx, session)).To(Succeed())

			_, err = pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, identityID.String())
			Expect(err).NotTo(HaveOccurred())

			_, err = sessions.GetByTokenHash(ctx, "tokenhash")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("Audit writer", func() {
		It("mirrors appended events to the database", func() {
			ctx := context.Background()
			log := audit.NewLogWithWriter(audit.NewPostgresWriter(pool))

			Expect(log.Append(ctx, audit.Event{
				Kind:    audit.KindIdentityProvisioned,
				Details: map[string]string{"username": "admin"},
			})).To(Succeed())

			var count int
			err := pool.QueryRow(ctx, `SELECT count(*) FROM audit_events`).Scan(&count)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})
	})

	Describe("End-to-end authority", func() {
		It("bootstraps and authenticates against PostgreSQL", func() {
			ctx := context.Background()

			identities := authpg.NewIdentityStore(pool)
			sessions := authpg.NewSessionRepository(pool)
			log := audit.NewLogWithWriter(audit.NewPostgresWriter(pool))

			var credential string
			notifier := auth.NotifierFunc(func(_ context.Context, _, c string) error {
				credential = c
				return nil
			})

			authority, err := auth.NewAuthority(identities, sessions,
				auth.NewPBKDF2Hasher(1000), log, notifier, auth.AuthorityOptions{})
			Expect(err).NotTo(HaveOccurred())

			Expect(authority.Bootstrap(ctx)).To(Succeed())
			Expect(credential).NotTo(BeEmpty())

			token, err := authority.Authenticate(ctx, auth.DefaultBootstrapUsername, credential)
			Expect(err).NotTo(HaveOccurred())

			session, err := authority.ValidateSession(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(session).NotTo(BeNil())

			Expect(authority.Logout(ctx, token)).To(Succeed())
			_, err = authority.ValidateSession(ctx, token)
			Expect(err).To(MatchError(auth.ErrInvalidSession))
		})
	})
})
