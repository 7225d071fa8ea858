// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

// Package errutil bridges coded errors and structured logging: sentinel
// wraps failure paths with oops codes and context, and this package
// unpacks them into slog attributes and test assertions.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError emits msg at error level together with whatever structured
// context the error carries. Coded errors contribute their code and
// context map as attributes; plain errors are logged as a bare string.
func LogError(logger *slog.Logger, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, "error", err)
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if errCtx := oopsErr.Context(); len(errCtx) > 0 {
		attrs = append(attrs, "context", errCtx)
	}
	logger.Error(msg, attrs...)
}
