// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// poolIface is the subset of pgxpool.Pool used by PostgresWriter.
// pgxmock.PgxPoolIface satisfies it for unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresWriter mirrors audit events to PostgreSQL.
type PostgresWriter struct {
	pool poolIface
}

// NewPostgresWriter creates a new PostgresWriter.
func NewPostgresWriter(pool poolIface) *PostgresWriter {
	return &PostgresWriter{pool: pool}
}

// Write inserts one audit event.
func (w *PostgresWriter) Write(ctx context.Context, event Event) error {
	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		return oops.Code("AUDIT_PG_WRITE_FAILED").
			With("operation", "marshal details").
			Wrap(err)
	}

	_, err = w.pool.Exec(ctx, `
		INSERT INTO audit_events (id, kind, details, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		event.ID.String(),
		string(event.Kind),
		detailsJSON,
		event.Timestamp,
	)
	if err != nil {
		return oops.Code("AUDIT_PG_WRITE_FAILED").
			With("operation", "insert audit event").
			With("event_id", event.ID.String()).
			Wrap(err)
	}
	return nil
}
