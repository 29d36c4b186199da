// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package embedding turns text into fixed-length vectors through a remote or
// local embedding model.
package embedding

import (
	"context"
)

const (
	// DefaultTaskType is the embedding task sent when the caller does not
	// override it.
	DefaultTaskType = "semantic_similarity"

	// DefaultDimensions is the output dimensionality requested by default.
	DefaultDimensions = 256

	// DefaultBatchSize caps how many texts go into one provider call.
	DefaultBatchSize = 100
)

// Service embeds text. Every successful call returns exactly one vector per
// input text, in input order, each of length Dimensions().
//
// Implementations wrap long-lived client handles and are not required to be
// safe for concurrent use.
type Service interface {
	// Embed sends all texts in a single provider call.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedBatch splits texts into chunks of at most opts.BatchSize and makes
	// one provider call per chunk. Any failed chunk aborts the whole call.
	EmbedBatch(ctx context.Context, texts []string, opts BatchOptions) ([][]float32, error)

	// Dimensions reports the length of every vector this service produces.
	Dimensions() int

	Close() error
}

// BatchOptions tunes one EmbedBatch run. Zero values fall back to the
// service defaults.
type BatchOptions struct {
	BatchSize            int
	TaskType             string
	OutputDimensionality int
}

// Request is a single provider call.
type Request struct {
	Texts                []string
	TaskType             string
	OutputDimensionality int
}

// Client is implemented by each embedding provider. A client makes exactly one
// remote call per EmbedContent and does no batching of its own.
type Client interface {
	Name() string
	EmbedContent(ctx context.Context, req Request) ([][]float32, error)
	Close() error
}
