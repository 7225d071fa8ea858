// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

// Package store provides database connectivity and schema management for
// the optional PostgreSQL persistence backend.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection retry tuning. Startup races against the database becoming
// reachable, so the first pings back off exponentially.
const (
	connectBaseDelay  = 500 * time.Millisecond
	connectMaxRetries = 5
)

// NewPool connects a pgx pool and verifies connectivity with a retried
// ping before returning.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "create connection pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(connectMaxRetries, retry.NewExponential(connectBaseDelay))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	}); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			Wrap(err)
	}

	return pool, nil
}
