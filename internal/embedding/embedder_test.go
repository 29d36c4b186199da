// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package embedding_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/docintel/internal/embedding"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// countingClient returns a deterministic vector per text and records each call.
type countingClient struct {
	calls    []embedding.Request
	failOn   int // 1-based call number that fails; 0 never fails
	dropLast bool
	wrongDim bool
}

func (c *countingClient) Name() string { return "counting" }
func (c *countingClient) Close() error { return nil }

func (c *countingClient) EmbedContent(_ context.Context, req embedding.Request) ([][]float32, error) {
	c.calls = append(c.calls, req)
	if c.failOn == len(c.calls) {
		return nil, errors.New("quota exhausted")
	}

	dims := req.OutputDimensionality
	if c.wrongDim {
		dims++
	}
	out := make([][]float32, 0, len(req.Texts))
	for _, text := range req.Texts {
		v := make([]float32, dims)
		for i := range v {
			v[i] = float32(len(text)*(i+1)) / 100
		}
		out = append(out, v)
	}
	if c.dropLast {
		out = out[:len(out)-1]
	}
	return out, nil
}

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("passage number %d %s", i, strings.Repeat("x", i))
	}
	return out
}

func newEmbedder(t *testing.T, c embedding.Client, opts embedding.Options) *embedding.Embedder {
	t.Helper()
	e, err := embedding.New(c, opts)
	require.NoError(t, err)
	return e
}

func TestNewRejectsNilClient(t *testing.T) {
	_, err := embedding.New(nil, embedding.Options{})
	require.Error(t, err)
	assert.True(t, sigilerr.IsConfigError(err))
}

func TestNewAppliesDefaults(t *testing.T) {
	e := newEmbedder(t, &countingClient{}, embedding.Options{})
	assert.Equal(t, embedding.DefaultDimensions, e.Dimensions())
	assert.Equal(t, "counting", e.Provider())
}

func TestEmbedReturnsOneVectorPerText(t *testing.T) {
	c := &countingClient{}
	e := newEmbedder(t, c, embedding.Options{Dimensions: 8})

	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 8)
	}
	require.Len(t, c.calls, 1)
	assert.Equal(t, embedding.DefaultTaskType, c.calls[0].TaskType)
	assert.Equal(t, 8, c.calls[0].OutputDimensionality)
}

func TestEmbedEmptyInputMakesNoCall(t *testing.T) {
	c := &countingClient{}
	e := newEmbedder(t, c, embedding.Options{})

	vecs, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)

	vecs, err = e.EmbedBatch(context.Background(), []string{}, embedding.BatchOptions{BatchSize: 2})
	require.NoError(t, err)
	assert.Empty(t, vecs)

	assert.Empty(t, c.calls)
}

func TestEmbedBatchMatchesUnbatched(t *testing.T) {
	input := texts(7)

	whole := &countingClient{}
	want, err := newEmbedder(t, whole, embedding.Options{Dimensions: 4}).Embed(context.Background(), input)
	require.NoError(t, err)

	for _, size := range []int{1, 2, 3, 7, 100} {
		t.Run(fmt.Sprintf("batch_%d", size), func(t *testing.T) {
			c := &countingClient{}
			got, err := newEmbedder(t, c, embedding.Options{Dimensions: 4}).
				EmbedBatch(context.Background(), input, embedding.BatchOptions{BatchSize: size})
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Len(t, c.calls, (len(input)+size-1)/size)
			for _, call := range c.calls {
				assert.LessOrEqual(t, len(call.Texts), size)
			}
		})
	}
}

func TestEmbedBatchOverridesTaskAndDimensions(t *testing.T) {
	c := &countingClient{}
	e := newEmbedder(t, c, embedding.Options{Dimensions: 4})

	vecs, err := e.EmbedBatch(context.Background(), texts(3), embedding.BatchOptions{
		BatchSize:            2,
		TaskType:             "retrieval_document",
		OutputDimensionality: 6,
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Len(t, vecs[0], 6)
	for _, call := range c.calls {
		assert.Equal(t, "retrieval_document", call.TaskType)
		assert.Equal(t, 6, call.OutputDimensionality)
	}
}

func TestEmbedBatchUsesConfiguredBatchSize(t *testing.T) {
	c := &countingClient{}
	e := newEmbedder(t, c, embedding.Options{Dimensions: 2, BatchSize: 3})

	_, err := e.EmbedBatch(context.Background(), texts(7), embedding.BatchOptions{})
	require.NoError(t, err)
	assert.Len(t, c.calls, 3)
}

func TestEmbedBatchAbortsOnChunkFailure(t *testing.T) {
	c := &countingClient{failOn: 2}
	e := newEmbedder(t, c, embedding.Options{Dimensions: 2})

	vecs, err := e.EmbedBatch(context.Background(), texts(5), embedding.BatchOptions{BatchSize: 2})
	require.Error(t, err)
	assert.Nil(t, vecs)
	assert.True(t, sigilerr.IsProviderError(err))
	assert.Len(t, c.calls, 2)
}

func TestEmbedBatchRejectsNegativeBatchSize(t *testing.T) {
	e := newEmbedder(t, &countingClient{}, embedding.Options{})
	_, err := e.EmbedBatch(context.Background(), texts(2), embedding.BatchOptions{BatchSize: -1})
	require.Error(t, err)
	assert.True(t, sigilerr.IsInvalidInput(err))
}

func TestEmbedRejectsShortResponse(t *testing.T) {
	e := newEmbedder(t, &countingClient{dropLast: true}, embedding.Options{Dimensions: 2})
	_, err := e.Embed(context.Background(), texts(3))
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeEmbeddingResponseInvalid))
	assert.True(t, sigilerr.IsProviderError(err))
}

func TestEmbedRejectsWrongDimensions(t *testing.T) {
	e := newEmbedder(t, &countingClient{wrongDim: true}, embedding.Options{Dimensions: 2})
	_, err := e.Embed(context.Background(), texts(1))
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeEmbeddingResponseInvalid))
}

func TestEmbedHonoursCancelledContextWithPacing(t *testing.T) {
	c := &countingClient{}
	e := newEmbedder(t, c, embedding.Options{Dimensions: 2, RequestsPerSecond: 0.001})

	// First call consumes the single burst token.
	_, err := e.Embed(context.Background(), texts(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Embed(ctx, texts(1))
	require.Error(t, err)
	assert.Len(t, c.calls, 1)
}
