// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package memory is a brute-force, process-local vector store. Ties in
// distance are broken by insertion order.
package memory

import (
	"cmp"
	"context"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/sigil-dev/docintel/internal/store"
)

func init() {
	store.RegisterBackend("memory", func(cfg store.Config) (store.VectorStore, error) {
		return New(cfg.Collection, cfg.Dimensions), nil
	})
}

var _ store.VectorStore = (*VectorStore)(nil)

// VectorStore keeps entries in a slice in insertion order. An upsert replaces
// the entry in place so it keeps its original position.
type VectorStore struct {
	mu         sync.RWMutex
	collection string
	dimensions int
	entries    []store.Entry
	index      map[string]int
}

func New(collection string, dimensions int) *VectorStore {
	return &VectorStore{
		collection: collection,
		dimensions: dimensions,
		index:      make(map[string]int),
	}
}

func (v *VectorStore) Collection() string { return v.collection }
func (v *VectorStore) Dimensions() int    { return v.dimensions }

func (v *VectorStore) Save(_ context.Context, ids, documents []string, metadatas []map[string]any, embeddings [][]float32) error {
	if err := store.ValidateSave(ids, documents, metadatas, embeddings, v.dimensions); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	for i, id := range ids {
		e := store.Entry{
			ID:        id,
			Document:  documents[i],
			Metadata:  maps.Clone(metadatas[i]),
			Embedding: slices.Clone(embeddings[i]),
		}
		if pos, ok := v.index[id]; ok {
			v.entries[pos] = e
			continue
		}
		v.index[id] = len(v.entries)
		v.entries = append(v.entries, e)
	}
	return nil
}

func (v *VectorStore) Query(_ context.Context, embedding []float32, nResults int) ([]store.Hit, error) {
	if err := store.ValidateQuery(embedding, nResults, v.dimensions); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	hits := make([]store.Hit, 0, len(v.entries))
	for _, e := range v.entries {
		hits = append(hits, store.Hit{
			ID:       e.ID,
			Document: e.Document,
			Metadata: maps.Clone(e.Metadata),
			Distance: l2(embedding, e.Embedding),
		})
	}
	slices.SortStableFunc(hits, func(a, b store.Hit) int {
		return cmp.Compare(a.Distance, b.Distance)
	})

	if len(hits) > nResults {
		hits = hits[:nResults]
	}
	return hits, nil
}

func (v *VectorStore) DeleteCollection(_ context.Context, name string) error {
	if name != v.collection {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = nil
	v.index = make(map[string]int)
	return nil
}

func (v *VectorStore) Count(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries), nil
}

func (v *VectorStore) Close() error { return nil }

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
