// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

// Package logging configures sentinel's structured logger. Every record
// carries the service name and build version, plus OpenTelemetry trace and
// span IDs when the context holds an active span, so security-relevant log
// lines can be correlated with traces and the audit trail.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// traceHandler decorates records with a fixed attribute set and the trace
// context of the calling span, then delegates to the wrapped handler.
type traceHandler struct {
	inner slog.Handler
	fixed []slog.Attr
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.fixed...)

	if span := trace.SpanContextFromContext(ctx); span.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", span.TraceID().String()))
		if span.HasSpanID() {
			r.AddAttrs(slog.String("span_id", span.SpanID().String()))
		}
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.inner.Handle(ctx, r)
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{inner: h.inner.WithAttrs(attrs), fixed: h.fixed}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{inner: h.inner.WithGroup(name), fixed: h.fixed}
}

// Setup builds a logger for the given service identity. Format selects the
// record encoding: "text" for human-readable output, anything else (the
// empty default included) for JSON. A nil writer targets os.Stderr.
func Setup(service, version, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	var base slog.Handler
	switch format {
	case "text":
		base = slog.NewTextHandler(w, opts)
	default:
		base = slog.NewJSONHandler(w, opts)
	}

	return slog.New(&traceHandler{
		inner: base,
		fixed: []slog.Attr{
			slog.String("service", service),
			slog.String("version", version),
		},
	})
}

// SetDefault installs a Setup-built logger as the process default.
func SetDefault(service, version, format string) {
	slog.SetDefault(Setup(service, version, format, nil))
}
