// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/docintel/internal/secrets"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

func TestParseKeyringURI(t *testing.T) {
	tests := []struct {
		uri     string
		service string
		key     string
		wantErr bool
	}{
		{"keyring://docintel/google-api-key", "docintel", "google-api-key", false},
		{"keyring://docintel/path/to/key", "docintel", "path/to/key", false},
		{"vault://secret/key", "", "", true},
		{"keyring://docintel/", "", "", true},
		{"keyring:///key", "", "", true},
		{"keyring://", "", "", true},
		{"keyring://docintel", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			svc, key, err := secrets.ParseKeyringURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, sigilerr.HasCode(err, sigilerr.CodeConfigSecretInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.service, svc)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestURI(t *testing.T) {
	assert.Equal(t, "keyring://docintel/openai-api-key", secrets.URI("openai-api-key"))
	assert.True(t, secrets.IsKeyringURI(secrets.URI("x")))
	assert.False(t, secrets.IsKeyringURI("sk-literal"))
}

func TestResolve(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store(secrets.ServiceName, "resolve-key", "s3cret"))

	val, err := secrets.Resolve(ks, secrets.URI("resolve-key"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", val)

	val, err = secrets.Resolve(ks, "${GOOGLE_API_KEY}")
	require.NoError(t, err)
	assert.Equal(t, "${GOOGLE_API_KEY}", val)

	_, err = secrets.Resolve(ks, secrets.URI("missing"))
	require.Error(t, err)
	assert.True(t, sigilerr.IsNotFound(err))
}

func TestResolveViper(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store(secrets.ServiceName, "google", "AIza-secret"))

	v := viper.New()
	v.Set("providers.google.api_key", secrets.URI("google"))
	v.Set("vector_store.collection_name", "doc_intel_eval")
	v.Set("embeddings.dimensions", 256)

	require.NoError(t, secrets.ResolveViper(v, ks))
	assert.Equal(t, "AIza-secret", v.GetString("providers.google.api_key"))
	assert.Equal(t, "doc_intel_eval", v.GetString("vector_store.collection_name"))
	assert.Equal(t, 256, v.GetInt("embeddings.dimensions"))
}

func TestResolveViper_ReportsEveryFailure(t *testing.T) {
	ks := secrets.NewKeyringStore()

	v := viper.New()
	v.Set("providers.openai.api_key", secrets.URI("absent-openai"))
	v.Set("vector_store.api_key", "keyring://bad")

	err := secrets.ResolveViper(v, ks)
	require.Error(t, err)
	assert.True(t, sigilerr.IsConfigError(err))
	assert.Contains(t, err.Error(), "providers.openai.api_key")
	assert.Contains(t, err.Error(), "vector_store.api_key")
}
