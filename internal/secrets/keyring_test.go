// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/sigil-dev/docintel/internal/secrets"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

func init() {
	keyring.MockInit()
}

func TestKeyringStore_RoundTrip(t *testing.T) {
	ks := secrets.NewKeyringStore()
	svc := "test-roundtrip"

	require.NoError(t, ks.Store(svc, "google-api-key", "AIza-1"))
	val, err := ks.Retrieve(svc, "google-api-key")
	require.NoError(t, err)
	assert.Equal(t, "AIza-1", val)

	require.NoError(t, ks.Store(svc, "google-api-key", "AIza-2"))
	val, err = ks.Retrieve(svc, "google-api-key")
	require.NoError(t, err)
	assert.Equal(t, "AIza-2", val)

	keys, err := ks.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"google-api-key"}, keys)
}

func TestKeyringStore_NotFound(t *testing.T) {
	ks := secrets.NewKeyringStore()

	_, err := ks.Retrieve("test-missing", "nope")
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeConfigSecretNotFound), "got %v", err)
	assert.True(t, sigilerr.IsNotFound(err))

	err = ks.Delete("test-missing", "nope")
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeConfigSecretNotFound), "got %v", err)
}

func TestKeyringStore_ListTracksDeletes(t *testing.T) {
	ks := secrets.NewKeyringStore()
	svc := "test-list"

	keys, err := ks.List(svc)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, ks.Store(svc, "a", "1"))
	require.NoError(t, ks.Store(svc, "b", "2"))
	require.NoError(t, ks.Store(svc, "c", "3"))
	require.NoError(t, ks.Delete(svc, "b"))

	keys, err = ks.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys)

	require.NoError(t, ks.Delete(svc, "a"))
	require.NoError(t, ks.Delete(svc, "c"))
	keys, err = ks.List(svc)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeyringStore_EmptyRef(t *testing.T) {
	ks := secrets.NewKeyringStore()

	for _, ref := range [][2]string{{"", "k"}, {"svc", ""}} {
		err := ks.Store(ref[0], ref[1], "v")
		require.Error(t, err)
		assert.True(t, sigilerr.IsInvalidInput(err))
		assert.True(t, sigilerr.IsConfigError(err))
	}
	assert.NoError(t, ks.Store("test-empty-value", "k", ""))
}
