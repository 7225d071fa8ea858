// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/machinenativeops/sentinel/internal/audit"
	"github.com/machinenativeops/sentinel/internal/auth"
	authpg "github.com/machinenativeops/sentinel/internal/auth/postgres"
	"github.com/machinenativeops/sentinel/internal/config"
	"github.com/machinenativeops/sentinel/internal/logging"
	"github.com/machinenativeops/sentinel/internal/observability"
	"github.com/machinenativeops/sentinel/internal/store"
	"github.com/machinenativeops/sentinel/pkg/errutil"
)

// reapInterval is how often expired sessions are removed.
const reapInterval = time.Minute

// shutdownTimeout bounds graceful shutdown of the observability server.
const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the security core",
		Long: `Run the security core: bootstrap the session authority, expose
metrics and health endpoints, and reap expired sessions. Transports
attach to the authority in-process; sentinel itself exposes no
authentication wire protocol.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("log-format", "", "log format (json or text)")
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database-url", "", "PostgreSQL URL (empty = in-memory stores)")
	cmd.Flags().String("session-ttl", "", "session lifetime (Go duration)")
	cmd.Flags().Int("hash-iterations", 0, "PBKDF2 iteration count")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault("sentinel", version, cfg.LogFormat)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var identities auth.IdentityStore
	var sessions auth.SessionRepository
	var auditLog *audit.Log

	if cfg.DatabaseURL != "" {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			errutil.LogError(logger, "database connection failed", err)
			return err
		}
		defer pool.Close()

		identities = authpg.NewIdentityStore(pool)
		sessions = authpg.NewSessionRepository(pool)
		auditLog = audit.NewLogWithWriter(audit.NewPostgresWriter(pool))
		logger.Info("using postgres stores")
	} else {
		identities = auth.NewMemoryIdentityStore()
		sessions = auth.NewMemorySessionRepository()
		auditLog = audit.NewLog()
		logger.Info("using in-memory stores")
	}

	authority, err := auth.NewAuthority(
		identities,
		sessions,
		auth.NewPBKDF2Hasher(cfg.HashIterations),
		auditLog,
		auth.LogNotifier{Logger: logger},
		auth.AuthorityOptions{
			SessionTTL:        cfg.SessionTTLDuration(),
			BootstrapUsername: cfg.BootstrapUsername,
			BootstrapEmail:    cfg.BootstrapEmail,
			Logger:            logger,
		},
	)
	if err != nil {
		errutil.LogError(logger, "authority construction failed", err)
		return err
	}

	var obs *observability.Server
	var obsErrs <-chan error
	if cfg.MetricsAddr != "" {
		obs = observability.NewServer(cfg.MetricsAddr, authority.Ready)
		obsErrs, err = obs.Start()
		if err != nil {
			errutil.LogError(logger, "observability server failed to start", err)
			return err
		}
	}

	if err := authority.Bootstrap(ctx); err != nil {
		errutil.LogError(logger, "bootstrap failed", err)
		return err
	}

	reaperDone := make(chan struct{})
	go runReaper(ctx, authority, obs, reaperDone)

	awaitShutdown(ctx, stop, obsErrs, reaperDone, logger)

	if obs != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := obs.Stop(shutdownCtx); err != nil {
			errutil.LogError(logger, "observability server shutdown failed", err)
		}
	}

	return nil
}

// awaitShutdown blocks until the context is cancelled or the observability
// server reports a failure. A server failure cancels the context so the
// reaper unblocks; either way the reaper has exited before this returns.
func awaitShutdown(ctx context.Context, stop context.CancelFunc, obsErrs <-chan error, reaperDone <-chan struct{}, logger *slog.Logger) {
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-obsErrs:
		if err != nil {
			errutil.LogError(logger, "observability server failed", err)
		}
		stop()
	}

	<-reaperDone
}

// runReaper periodically removes expired sessions until ctx is cancelled.
func runReaper(ctx context.Context, authority *auth.Authority, obs *observability.Server, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := authority.DeleteExpiredSessions(ctx)
			if err != nil {
				errutil.LogError(slog.Default(), "session reap failed", err)
				continue
			}
			if deleted > 0 {
				slog.Debug("reaped expired sessions", "count", deleted)
				if obs != nil {
					obs.Metrics().SessionsReapedTotal.Add(float64(deleted))
				}
			}
		}
	}
}
