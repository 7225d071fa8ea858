// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/oops"
)

// Kind is the enumerated category of a security event.
type Kind string

// Security event kinds.
const (
	KindIdentityProvisioned   Kind = "identity_provisioned"
	KindIdentityAuthenticated Kind = "identity_authenticated"
)

// Event is an immutable record of a security-relevant occurrence.
type Event struct {
	ID        ulid.ULID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      Kind              `json:"kind"`
	Details   map[string]string `json:"details"`
}

// Writer is the interface for mirroring audit entries to a backend.
type Writer interface {
	Write(ctx context.Context, event Event) error
}

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_audit_events_total",
		Help: "Total number of audit events appended by kind",
	}, []string{"kind"})

	logEntriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_audit_log_entries",
		Help: "Current number of entries in the in-memory audit log",
	})
)

// Log is the append-only in-memory audit trail.
type Log struct {
	mu     sync.RWMutex
	events []Event
	writer Writer
}

// NewLog creates an in-memory Log.
func NewLog() *Log {
	return &Log{}
}

// NewLogWithWriter creates a Log that mirrors every append to w.
func NewLogWithWriter(w Writer) *Log {
	return &Log{writer: w}
}

// Append adds one immutable record. The event is assigned an ID and
// timestamp if missing, and its details map is copied so later mutation by
// the caller cannot alter history.
//
// If a mirror writer is configured and fails, the error is returned to the
// caller; the in-memory record is kept either way.
func (l *Log) Append(ctx context.Context, event Event) error {
	if event.ID.Compare(ulid.ULID{}) == 0 {
		event.ID = ulid.Make()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Details = copyDetails(event.Details)

	l.mu.Lock()
	l.events = append(l.events, event)
	size := len(l.events)
	l.mu.Unlock()

	eventsTotal.WithLabelValues(string(event.Kind)).Inc()
	logEntriesGauge.Set(float64(size))

	if l.writer != nil {
		if err := l.writer.Write(ctx, event); err != nil {
			return oops.Code("AUDIT_WRITE_FAILED").
				With("kind", string(event.Kind)).
				With("event_id", event.ID.String()).
				Wrap(err)
		}
	}

	return nil
}

// Snapshot returns all events in append order. The returned slice and the
// details maps inside it are copies.
func (l *Log) Snapshot() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make([]Event, len(l.events))
	for i, event := range l.events {
		event.Details = copyDetails(event.Details)
		snapshot[i] = event
	}
	return snapshot
}

// Len returns the number of appended events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

func copyDetails(details map[string]string) map[string]string {
	if details == nil {
		return nil
	}
	out := make(map[string]string, len(details))
	for k, v := range details {
		out[k] = v
	}
	return out
}
