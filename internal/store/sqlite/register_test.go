// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/docintel/internal/store"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

func TestRegisteredBackend(t *testing.T) {
	vs, err := store.New(store.Config{
		Backend:    "sqlite",
		Path:       testDBPath(t, "registered"),
		Collection: "registered",
		Dimensions: 3,
	})
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	assert.Equal(t, "registered", vs.Collection())
	assert.Equal(t, 3, vs.Dimensions())
}

func TestRegisteredBackend_OpenFailureCarriesContext(t *testing.T) {
	path := filepath.Join(testDir(t), "vectors.db")
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err := store.New(store.Config{Backend: "sqlite", Path: path, Collection: "docs", Dimensions: 3})
	require.Error(t, err)
	fields := sigilerr.FieldsOf(err)
	assert.Equal(t, "docs", fields["collection"])
	assert.Equal(t, path, fields["path"])
}
