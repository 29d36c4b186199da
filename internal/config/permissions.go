// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// PermissionProblem describes why a credential-bearing file is exposed.
type PermissionProblem string

const (
	ProblemOthersRead  PermissionProblem = "readable by other users"
	ProblemOthersWrite PermissionProblem = "writable by other users"
)

// CheckPermissions reports the exposure problems of path. A missing file has
// none.
func CheckPermissions(path string) []PermissionProblem {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	perm := info.Mode().Perm()

	var problems []PermissionProblem
	if perm&0o044 != 0 {
		problems = append(problems, ProblemOthersRead)
	}
	// A writable config can redirect provider endpoints.
	if perm&0o022 != 0 {
		problems = append(problems, ProblemOthersWrite)
	}
	return problems
}

// WarnInsecurePermissions logs one warning per exposed file. The config file
// and .env may both carry provider API keys.
func WarnInsecurePermissions(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		for _, p := range CheckPermissions(path) {
			slog.Warn("file holding credentials is "+string(p),
				"path", path,
				"mode", modeOf(path),
				"recommended", "0600")
		}
	}
}

func modeOf(path string) fs.FileMode {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Mode().Perm()
}
