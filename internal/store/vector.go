// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import "context"

// VectorStore persists embedded documents in one named collection and answers
// nearest-neighbour queries against it.
//
// Backends share the same observable behaviour:
//   - Save upserts: an existing ID has its document, metadata and embedding
//     replaced, so re-saving never grows the collection. Within one call the
//     last occurrence of a duplicate ID wins.
//   - Query on an empty collection returns zero hits and no error.
//   - Distances are Euclidean (L2) and hits come back nearest first.
//   - A successful Save is visible to the next Query on the same handle.
//
// Implementations hold long-lived connections and are not required to be
// safe for concurrent mutation.
type VectorStore interface {
	Save(ctx context.Context, ids, documents []string, metadatas []map[string]any, embeddings [][]float32) error
	Query(ctx context.Context, embedding []float32, nResults int) ([]Hit, error)

	// DeleteCollection drops the named collection. Unknown names are a no-op.
	// Dropping the handle's own collection empties it; the handle stays usable.
	DeleteCollection(ctx context.Context, name string) error

	Count(ctx context.Context) (int, error)
	Collection() string
	Dimensions() int
	Close() error
}

// Entry is one stored document.
type Entry struct {
	ID        string
	Document  string
	Metadata  map[string]any
	Embedding []float32
}

// Hit is one query result. Distance is smaller for closer matches; 0.0 is an
// exact match.
type Hit struct {
	ID       string         `json:"id"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Distance float64        `json:"distance"`
}

// Source returns the "source" metadata value, or "" when absent.
func (h Hit) Source() string {
	if s, ok := h.Metadata[MetaSource].(string); ok {
		return s
	}
	return ""
}

// Metadata keys written by the indexer.
const (
	MetaSource        = "source"
	MetaSequenceIndex = "sequence_index"
)
