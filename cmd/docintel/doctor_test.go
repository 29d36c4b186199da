// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/docintel/internal/provider"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

func stubKeyValidator(t *testing.T, fn func(name provider.ProviderName, key string) error) {
	t.Helper()
	old := keyValidator
	keyValidator = func(_ context.Context, _ *http.Client, name provider.ProviderName, key string) error {
		return fn(name, key)
	}
	t.Cleanup(func() { keyValidator = old })
}

func TestDoctor_RunsAllChecks(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	var checked []string
	stubKeyValidator(t, func(name provider.ProviderName, key string) error {
		checked = append(checked, string(name)+"="+key)
		return nil
	})

	out, err := execute(t, "doctor", "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Binary:")
	assert.Contains(t, out, "loaded from "+cfgPath)
	assert.Contains(t, out, "Config:              valid")
	assert.Contains(t, out, "hashing, 1024 dimensions, offline")
	assert.Contains(t, out, `sqlite "doc_intel_eval", 0 entries`)
	assert.Contains(t, out, "Disk space:")
	assert.Contains(t, out, "Provider google:     key valid")
	assert.Equal(t, []string{"google=test-key"}, checked)
}

func TestDoctor_Offline(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	stubKeyValidator(t, func(provider.ProviderName, string) error {
		t.Fatal("offline doctor must not check keys")
		return nil
	})

	out, err := execute(t, "doctor", "--offline", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "key configured (not checked)")
}

func TestDoctor_ReportsBadKeyAndConfig(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	stubKeyValidator(t, func(provider.ProviderName, string) error {
		return sigilerr.New(sigilerr.CodeProviderKeyInvalid, "invalid API key (HTTP 401)")
	})

	out, err := execute(t, "doctor", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "error: invalid API key")

	badPath, _ := writeConfig(t, "  workers: -1\n")
	out, err = execute(t, "doctor", "--config", badPath)
	require.NoError(t, err)
	assert.Contains(t, out, "invalid:")
	assert.NotContains(t, out, "Vector store:")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 bytes", formatBytes(512))
	assert.Equal(t, "1.5 MB", formatBytes(3*512*1024))
	assert.Equal(t, "2.0 GB", formatBytes(2*1024*1024*1024))
}
