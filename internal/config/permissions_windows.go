// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build windows

package config

// PermissionProblem describes why a credential-bearing file is exposed.
type PermissionProblem string

// CheckPermissions always reports nothing on Windows, which uses ACLs
// instead of mode bits.
func CheckPermissions(string) []PermissionProblem { return nil }

// WarnInsecurePermissions is a no-op on Windows.
func WarnInsecurePermissions(...string) {}
