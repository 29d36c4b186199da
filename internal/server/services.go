// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"

	"github.com/sigil-dev/docintel/internal/rag"
	"github.com/sigil-dev/docintel/pkg/health"
)

// QueryService answers questions. *rag.Querier implements it.
type QueryService interface {
	Ask(ctx context.Context, question string, opts rag.QueryOptions) (*rag.Answer, error)
}

// IndexService indexes chunks. *rag.Indexer implements it.
type IndexService interface {
	Index(ctx context.Context, chunks []rag.ChunkRecord) (int, error)
}

// CollectionService is the subset of store.VectorStore the API exposes.
type CollectionService interface {
	DeleteCollection(ctx context.Context, name string) error
	Count(ctx context.Context) (int, error)
	Collection() string
	Dimensions() int
}

// Services are the dependencies behind the API routes. A nil field makes its
// routes answer 503.
type Services struct {
	Query       QueryService
	Index       IndexService
	Collections CollectionService

	// ProviderHealth reports chat provider health for the status route.
	ProviderHealth func() health.Report

	// Defaults fill fields a query request leaves unset.
	Defaults rag.QueryOptions
}
