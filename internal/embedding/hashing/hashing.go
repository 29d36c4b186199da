// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package hashing is an offline embedding client. It projects lower-cased
// word tokens into a fixed number of buckets with signed FNV-1a feature
// hashing and L2-normalises the result. Texts sharing vocabulary land close
// together, which is enough for tests and air-gapped smoke runs.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/sigil-dev/docintel/internal/embedding"
)

// Client implements embedding.Client without any network access.
type Client struct{}

var _ embedding.Client = (*Client)(nil)

func New() *Client { return &Client{} }

func (c *Client) Name() string { return "hashing" }

func (c *Client) EmbedContent(ctx context.Context, req embedding.Request) ([][]float32, error) {
	dims := req.OutputDimensionality
	if dims <= 0 {
		dims = embedding.DefaultDimensions
	}

	out := make([][]float32, 0, len(req.Texts))
	for _, text := range req.Texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, Vector(text, dims))
	}
	return out, nil
}

func (c *Client) Close() error { return nil }

// Vector embeds a single text into dims buckets.
func Vector(text string, dims int) []float32 {
	acc := make([]float64, dims)
	for _, tok := range Tokens(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()

		sign := 1.0
		if sum>>63 == 1 {
			sign = -1.0
		}
		acc[sum%uint64(dims)] += sign
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, dims)
	if norm == 0 {
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

// Tokens splits text into lower-cased runs of letters and digits.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
