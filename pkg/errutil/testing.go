// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected coded error, got %T", err)
	return oopsErr
}

// AssertErrorCode asserts that err carries the given oops code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	assert.Equal(t, code, requireOops(t, err).Code())
}

// AssertErrorContext asserts that err carries the given context key/value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	errCtx := requireOops(t, err).Context()
	assert.Contains(t, errCtx, key)
	assert.Equal(t, value, errCtx[key])
}
