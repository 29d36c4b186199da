// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package storetest holds the behaviour every store.VectorStore backend must
// share. Backend test files call Run with a constructor for a fresh, empty
// 3-dimensional store.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/docintel/internal/store"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Dimensions is the embedding size Run expects the opened store to use.
const Dimensions = 3

// Opener returns a fresh, empty store with Dimensions dimensions. The test
// owns closing it.
type Opener func(t *testing.T) store.VectorStore

func Run(t *testing.T, open Opener) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, vs store.VectorStore)
	}{
		{"QueryReturnsNearestFirst", testQueryNearestFirst},
		{"RecallOfSelf", testRecallOfSelf},
		{"FewerEntriesThanRequested", testFewerEntries},
		{"EmptyStoreReturnsNoHits", testEmptyStore},
		{"SaveUpsertsExistingIDs", testUpsert},
		{"DuplicateIDsInOneCallLastWins", testDuplicateInCall},
		{"DimensionMismatch", testDimensionMismatch},
		{"InvalidInput", testInvalidInput},
		{"DeleteOwnCollection", testDeleteOwnCollection},
		{"DeleteUnknownCollection", testDeleteUnknownCollection},
		{"MetadataRoundTrip", testMetadataRoundTrip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := open(t)
			t.Cleanup(func() { _ = vs.Close() })
			require.Equal(t, Dimensions, vs.Dimensions())
			tt.fn(t, vs)
		})
	}
}

func seed(t *testing.T, vs store.VectorStore) {
	t.Helper()
	err := vs.Save(context.Background(),
		[]string{"v1", "v2", "v3"},
		[]string{"east", "north", "mostly east"},
		[]map[string]any{
			{store.MetaSource: "a.pdf", store.MetaSequenceIndex: 0},
			{store.MetaSource: "b.pdf", store.MetaSequenceIndex: 1},
			{store.MetaSource: "c.pdf", store.MetaSequenceIndex: 2},
		},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0.1, 0}},
	)
	require.NoError(t, err)
}

func testQueryNearestFirst(t *testing.T, vs store.VectorStore) {
	seed(t, vs)

	hits, err := vs.Query(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "v1", hits[0].ID)
	assert.Equal(t, "v3", hits[1].ID)
	assert.Equal(t, "east", hits[0].Document)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-5)
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
}

func testRecallOfSelf(t *testing.T, vs store.VectorStore) {
	seed(t, vs)

	for id, vec := range map[string][]float32{"v1": {1, 0, 0}, "v2": {0, 1, 0}, "v3": {0.9, 0.1, 0}} {
		hits, err := vs.Query(context.Background(), vec, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, id, hits[0].ID)
		assert.InDelta(t, 0.0, hits[0].Distance, 1e-5)
	}
}

func testFewerEntries(t *testing.T, vs store.VectorStore) {
	seed(t, vs)

	hits, err := vs.Query(context.Background(), []float32{0, 0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}
}

func testEmptyStore(t *testing.T, vs store.VectorStore) {
	hits, err := vs.Query(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	n, err := vs.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testUpsert(t *testing.T, vs store.VectorStore) {
	ctx := context.Background()
	seed(t, vs)
	seed(t, vs)

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	err = vs.Save(ctx, []string{"v1"}, []string{"now north"},
		[]map[string]any{{store.MetaSource: "z.pdf"}}, [][]float32{{0, 1, 0}})
	require.NoError(t, err)

	n, err = vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := vs.Query(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v3", hits[0].ID)

	hits, err = vs.Query(ctx, []float32{0, 1, 0}, 3)
	require.NoError(t, err)
	var found bool
	for _, h := range hits {
		if h.ID == "v1" {
			found = true
			assert.Equal(t, "now north", h.Document)
			assert.Equal(t, "z.pdf", h.Source())
			assert.InDelta(t, 0.0, h.Distance, 1e-5)
		}
	}
	assert.True(t, found)
}

func testDuplicateInCall(t *testing.T, vs store.VectorStore) {
	ctx := context.Background()
	err := vs.Save(ctx,
		[]string{"d", "d"},
		[]string{"first", "second"},
		[]map[string]any{{}, {}},
		[][]float32{{1, 0, 0}, {0, 0, 1}},
	)
	require.NoError(t, err)

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := vs.Query(ctx, []float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "second", hits[0].Document)
}

func testDimensionMismatch(t *testing.T, vs store.VectorStore) {
	ctx := context.Background()
	err := vs.Save(ctx, []string{"x"}, []string{"x"}, []map[string]any{{}}, [][]float32{{1, 0}})
	require.Error(t, err)
	assert.True(t, sigilerr.IsDimensionMismatch(err))

	_, err = vs.Query(ctx, []float32{1, 0, 0, 0}, 1)
	require.Error(t, err)
	assert.True(t, sigilerr.IsDimensionMismatch(err))

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testInvalidInput(t *testing.T, vs store.VectorStore) {
	ctx := context.Background()
	err := vs.Save(ctx, []string{"a", "b"}, []string{"a"}, []map[string]any{{}, {}}, [][]float32{{1, 0, 0}, {0, 1, 0}})
	require.Error(t, err)
	assert.True(t, sigilerr.IsInvalidInput(err))

	err = vs.Save(ctx, []string{""}, []string{"a"}, []map[string]any{{}}, [][]float32{{1, 0, 0}})
	require.Error(t, err)
	assert.True(t, sigilerr.IsInvalidInput(err))

	_, err = vs.Query(ctx, []float32{1, 0, 0}, 0)
	require.Error(t, err)
	assert.True(t, sigilerr.IsInvalidInput(err))

	_, err = vs.Query(ctx, []float32{1, 0, 0}, store.MaxResults+1)
	require.Error(t, err)
	assert.True(t, sigilerr.IsInvalidInput(err))
}

func testDeleteOwnCollection(t *testing.T, vs store.VectorStore) {
	ctx := context.Background()
	seed(t, vs)

	require.NoError(t, vs.DeleteCollection(ctx, vs.Collection()))
	require.NoError(t, vs.DeleteCollection(ctx, vs.Collection()))

	hits, err := vs.Query(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	seed(t, vs)
	n, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func testDeleteUnknownCollection(t *testing.T, vs store.VectorStore) {
	ctx := context.Background()
	seed(t, vs)

	require.NoError(t, vs.DeleteCollection(ctx, "never_created"))

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func testMetadataRoundTrip(t *testing.T, vs store.VectorStore) {
	seed(t, vs)

	hits, err := vs.Query(context.Background(), []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v2", hits[0].ID)
	assert.Equal(t, "b.pdf", hits[0].Source())
	assert.EqualValues(t, 1, hits[0].Metadata[store.MetaSequenceIndex])
}
