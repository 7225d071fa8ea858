// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

// Package audit provides the append-only security event trail.
//
// # Overview
//
// The Log is a process-local, internally synchronized, append-only
// sequence of security events. Append is the only mutator; history can
// never be rewritten or truncated for the life of the process. Snapshot
// returns a deep copy, so no caller can mutate the log through it.
//
// Events must never carry secret material. Callers record usernames and
// truncated token prefixes for correlation, never full tokens, plaintext
// credentials, or digest components.
//
// # Persistence
//
// A Log may optionally mirror appends to a Writer (for example
// PostgresWriter). Mirror failures are surfaced to the appender so that
// audit integrity never degrades silently; the in-memory record is
// retained regardless.
//
// # Metrics
//
//   - sentinel_audit_events_total{kind}: events appended by kind
//   - sentinel_audit_log_entries: current in-memory log size
package audit
