// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

//go:embed docintel.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/docintel/docintel.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "resolving home directory: %v", err)
	}
	return filepath.Join(home, ".config", "docintel", "docintel.yaml"), nil
}

// BootstrapConfig writes the commented default config to DefaultConfigPath
// when no file exists there. It returns the path written, or "" when nothing
// was written. Failures are logged, not returned.
func BootstrapConfig() string {
	path, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}
	if _, err := os.Stat(path); err == nil {
		return ""
	}
	if err := writePrivate(path, DefaultConfigYAML); err != nil {
		slog.Debug("skipping config bootstrap", "path", path, "error", err)
		return ""
	}
	slog.Info("created default config", "path", path)
	return path
}

// Save writes cfg to path as YAML with owner-only permissions.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeConfigBootstrapWriteFailure, "encoding config: %v", err)
	}
	if err := writePrivate(path, data); err != nil {
		return sigilerr.Errorf(sigilerr.CodeConfigBootstrapWriteFailure, "writing config %s: %v", path, err)
	}
	return nil
}

func writePrivate(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
