// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sigil-dev/docintel/internal/store"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

func TestValidateCollectionName(t *testing.T) {
	for _, name := range []string{"doc_intel_eval", "a", "docs2"} {
		assert.NoError(t, store.ValidateCollectionName(name), name)
	}
	for _, name := range []string{"", "1docs", "drop table", "docs-v2", "_x", "Docs2", "DOC_INTEL"} {
		err := store.ValidateCollectionName(name)
		assert.True(t, sigilerr.IsInvalidInput(err), name)
	}
}

func TestValidateSave(t *testing.T) {
	meta := []map[string]any{nil}
	tests := []struct {
		name string
		ids  []string
		docs []string
		embs [][]float32
		want func(error) bool
	}{
		{"ok", []string{"a"}, []string{"x"}, [][]float32{{1, 2}}, nil},
		{"length mismatch", []string{"a"}, nil, [][]float32{{1, 2}}, sigilerr.IsInvalidInput},
		{"empty id", []string{""}, []string{"x"}, [][]float32{{1, 2}}, sigilerr.IsInvalidInput},
		{"wrong dims", []string{"a"}, []string{"x"}, [][]float32{{1, 2, 3}}, sigilerr.IsDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.ValidateSave(tt.ids, tt.docs, meta, tt.embs, 2)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, tt.want(err), "got %v", err)
		})
	}
}

func TestValidateQuery(t *testing.T) {
	assert.NoError(t, store.ValidateQuery([]float32{1, 2}, 1, 2))
	assert.True(t, sigilerr.IsInvalidInput(store.ValidateQuery([]float32{1, 2}, 0, 2)))
	assert.NoError(t, store.ValidateQuery([]float32{1, 2}, store.MaxResults, 2))
	assert.True(t, sigilerr.IsInvalidInput(store.ValidateQuery([]float32{1, 2}, store.MaxResults+1, 2)))
	assert.True(t, sigilerr.IsDimensionMismatch(store.ValidateQuery([]float32{1}, 3, 2)))
}
