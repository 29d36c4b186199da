// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package rag

import (
	"context"
	"log/slog"

	"github.com/sigil-dev/docintel/internal/embedding"
	"github.com/sigil-dev/docintel/internal/store"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Indexer embeds chunks and saves them into a collection.
type Indexer struct {
	embedder embedding.Service
	store    store.VectorStore
	batch    embedding.BatchOptions
}

// NewIndexer creates an Indexer. batch is passed to every EmbedBatch run;
// zero values use the embedding service defaults.
func NewIndexer(emb embedding.Service, vs store.VectorStore, batch embedding.BatchOptions) (*Indexer, error) {
	if emb == nil || vs == nil {
		return nil, sigilerr.New(sigilerr.CodeConfigValidateInvalidValue,
			"rag: indexer needs an embedding service and a vector store")
	}
	return &Indexer{embedder: emb, store: vs, batch: batch}, nil
}

// Index embeds every chunk in one batched run and saves them in one call.
// Each entry records its source and its position in chunks as
// sequence_index. Re-indexing the same ids replaces them in place.
func (ix *Indexer) Index(ctx context.Context, chunks []ChunkRecord) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	ids := make([]string, len(chunks))
	texts := make([]string, len(chunks))
	metadatas := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		texts[i] = c.Text
		metadatas[i] = map[string]any{
			store.MetaSource:        c.Source,
			store.MetaSequenceIndex: i,
		}
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts, ix.batch)
	if err != nil {
		return 0, err
	}
	if err := ix.store.Save(ctx, ids, texts, metadatas, vectors); err != nil {
		return 0, err
	}

	slog.Info("indexed chunks", "collection", ix.store.Collection(), "count", len(chunks))
	return len(chunks), nil
}
