// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"regexp"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// ValidateCollectionName restricts names to lower-case identifiers so every
// backend can use them verbatim as table or collection names. SQL backends
// fold identifier case, so mixed case is rejected rather than aliased.
func ValidateCollectionName(name string) error {
	if !collectionName.MatchString(name) {
		return sigilerr.New(sigilerr.CodeStoreInvalidInput,
			"collection name must start with a lower-case letter and contain only lower-case letters, digits and underscores (max 63)",
			sigilerr.FieldCollection(name))
	}
	return nil
}

// ValidateSave checks the shape of a Save call: four slices of equal length,
// non-empty IDs and embeddings of exactly dims components.
func ValidateSave(ids, documents []string, metadatas []map[string]any, embeddings [][]float32, dims int) error {
	n := len(ids)
	if len(documents) != n || len(metadatas) != n || len(embeddings) != n {
		return sigilerr.Errorf(sigilerr.CodeStoreInvalidInput,
			"save: ids, documents, metadatas and embeddings must have equal length (got %d, %d, %d, %d)",
			n, len(documents), len(metadatas), len(embeddings))
	}
	for i, id := range ids {
		if id == "" {
			return sigilerr.Errorf(sigilerr.CodeStoreInvalidInput, "save: id at position %d is empty", i)
		}
		if len(embeddings[i]) != dims {
			return sigilerr.New(sigilerr.CodeStoreDimensionMismatch,
				"save: embedding dimension does not match the store",
				sigilerr.Field("id", id),
				sigilerr.Field("got", len(embeddings[i])),
				sigilerr.Field("want", dims))
		}
	}
	return nil
}

// MaxResults is the largest n_results any backend accepts. It matches the
// sqlite-vec KNN limit.
const MaxResults = 4096

// ValidateQuery checks a Query call.
func ValidateQuery(embedding []float32, nResults, dims int) error {
	if nResults < 1 || nResults > MaxResults {
		return sigilerr.Errorf(sigilerr.CodeStoreInvalidInput,
			"query: n_results must be between 1 and %d, got %d", MaxResults, nResults)
	}
	if len(embedding) != dims {
		return sigilerr.New(sigilerr.CodeStoreDimensionMismatch,
			"query: embedding dimension does not match the store",
			sigilerr.Field("got", len(embedding)),
			sigilerr.Field("want", dims))
	}
	return nil
}

// Dedupe collapses duplicate IDs within one Save call, keeping the last
// occurrence at the position of the first. It returns the input unchanged
// when there are no duplicates.
func Dedupe(ids, documents []string, metadatas []map[string]any, embeddings [][]float32) ([]string, []string, []map[string]any, [][]float32) {
	seen := make(map[string]int, len(ids))
	dup := false
	for i, id := range ids {
		if _, ok := seen[id]; ok {
			dup = true
		}
		seen[id] = i
	}
	if !dup {
		return ids, documents, metadatas, embeddings
	}

	var (
		outIDs  []string
		outDocs []string
		outMeta []map[string]any
		outEmb  [][]float32
		placed  = make(map[string]bool, len(seen))
	)
	for _, id := range ids {
		if placed[id] {
			continue
		}
		placed[id] = true
		last := seen[id]
		outIDs = append(outIDs, id)
		outDocs = append(outDocs, documents[last])
		outMeta = append(outMeta, metadatas[last])
		outEmb = append(outEmb, embeddings[last])
	}
	return outIDs, outDocs, outMeta, outEmb
}
