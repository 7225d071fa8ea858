// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package auth

// Permission is a flat capability label attached to identities by callers.
// There is no hierarchy and no resource scoping; policy evaluation beyond
// membership checks belongs to the consumer.
type Permission string

// Known permissions.
const (
	PermissionRead    Permission = "read"
	PermissionWrite   Permission = "write"
	PermissionDelete  Permission = "delete"
	PermissionExecute Permission = "execute"
	PermissionAdmin   Permission = "admin"
)

// Permissions returns all known permissions.
func Permissions() []Permission {
	return []Permission{
		PermissionRead,
		PermissionWrite,
		PermissionDelete,
		PermissionExecute,
		PermissionAdmin,
	}
}

// Valid returns true if p is a known permission.
func (p Permission) Valid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionDelete, PermissionExecute, PermissionAdmin:
		return true
	}
	return false
}
