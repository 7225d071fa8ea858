// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/samber/oops"
)

// CredentialNotifier is the write-only operator channel that receives the
// generated bootstrap credential exactly once. The credential is never
// stored in plaintext and never appears in the audit trail; this sink is
// the only place it surfaces.
type CredentialNotifier interface {
	NotifyInitialCredential(ctx context.Context, username, credential string) error
}

// NotifierFunc adapts a function to CredentialNotifier.
type NotifierFunc func(ctx context.Context, username, credential string) error

// NotifyInitialCredential calls f.
func (f NotifierFunc) NotifyInitialCredential(ctx context.Context, username, credential string) error {
	return f(ctx, username, credential)
}

// LogNotifier surfaces the bootstrap credential through a slog logger at
// warning level, mirroring the operator console channel.
type LogNotifier struct {
	Logger *slog.Logger
}

// NotifyInitialCredential logs the one-time credential.
func (n LogNotifier) NotifyInitialCredential(ctx context.Context, username, credential string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "generated bootstrap credential; store it securely and rotate it immediately",
		"username", username,
		"credential", credential,
	)
	return nil
}

// WriterNotifier writes the bootstrap credential to an io.Writer, for
// deployments that direct it to a secrets channel instead of the log
// stream.
type WriterNotifier struct {
	W io.Writer
}

// NotifyInitialCredential writes the one-time credential.
func (n WriterNotifier) NotifyInitialCredential(_ context.Context, username, credential string) error {
	if n.W == nil {
		return oops.Code("AUTH_NOTIFY_FAILED").Errorf("notifier writer is nil")
	}
	if _, err := fmt.Fprintf(n.W, "bootstrap credential for %s: %s\n", username, credential); err != nil {
		return oops.Code("AUTH_NOTIFY_FAILED").
			With("username", username).
			Wrap(err)
	}
	return nil
}
