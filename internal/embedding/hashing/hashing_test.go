// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package hashing_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/docintel/internal/embedding"
	"github.com/sigil-dev/docintel/internal/embedding/hashing"
)

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"what", "is", "the", "capital", "of", "france"},
		hashing.Tokens("What is the capital of France?"))
	assert.Empty(t, hashing.Tokens("  ?! "))
}

func TestVectorIsDeterministicAndNormalised(t *testing.T) {
	a := hashing.Vector("Paris is the capital of France.", 64)
	b := hashing.Vector("Paris is the capital of France.", 64)
	require.Len(t, a, 64)
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestVectorEmptyTextIsZero(t *testing.T) {
	v := hashing.Vector("", 8)
	assert.Equal(t, make([]float32, 8), v)
}

func TestSharedVocabularyIsCloser(t *testing.T) {
	q := hashing.Vector("What is the capital of France?", 256)
	paris := hashing.Vector("Paris is the capital of France.", 256)
	berlin := hashing.Vector("Berlin is the capital of Germany.", 256)

	assert.Less(t, l2(q, paris), l2(q, berlin))
}

func TestEmbedContentHonoursDimensions(t *testing.T) {
	c := hashing.New()
	vecs, err := c.EmbedContent(context.Background(), embedding.Request{
		Texts:                []string{"a b", "c"},
		OutputDimensionality: 32,
	})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 32)

	vecs, err = c.EmbedContent(context.Background(), embedding.Request{Texts: []string{"a"}})
	require.NoError(t, err)
	assert.Len(t, vecs[0], embedding.DefaultDimensions)
}

func TestEmbedContentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := hashing.New().EmbedContent(ctx, embedding.Request{Texts: []string{"a"}})
	assert.ErrorIs(t, err, context.Canceled)
}
