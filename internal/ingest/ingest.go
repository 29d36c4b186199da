// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package ingest extracts text from source documents and splits it into
// chunk records ready for indexing.
package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sigil-dev/docintel/internal/rag"
	"github.com/sigil-dev/docintel/internal/scanner"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Options configures a Run.
type Options struct {
	Chunker SentenceChunker
	// Workers bounds concurrent extractions. Zero uses GOMAXPROCS.
	Workers int
	// Filter scans each chunk before it is returned. Nil disables scanning.
	Filter *scanner.Filter
}

// Run extracts and chunks every source. Extraction runs in parallel but
// chunks are returned in source order. Chunk ids are "<name>-<n>" where name
// is the file name without extension and n counts from zero per source;
// SequenceIndex is the position in the returned slice.
func Run(ctx context.Context, sources []string, opts Options) ([]rag.ChunkRecord, error) {
	if len(sources) == 0 {
		return nil, sigilerr.New(sigilerr.CodeIngestInvalidInput, "ingest: no sources given")
	}
	if err := opts.Chunker.Validate(); err != nil {
		return nil, err
	}
	if err := checkNames(sources); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	perSource := make([][]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := Extract(src)
			if err != nil {
				return err
			}
			chunks := opts.Chunker.Chunk(text)
			for n, c := range chunks {
				if chunks[n], err = opts.Filter.Apply(gctx, src, c); err != nil {
					return err
				}
			}
			perSource[i] = chunks
			slog.Info("extracted source", "source", src, "chars", len(text), "chunks", len(perSource[i]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []rag.ChunkRecord
	for i, src := range sources {
		name := sourceName(src)
		for n, text := range perSource[i] {
			out = append(out, rag.ChunkRecord{
				ID:            name + "-" + strconv.Itoa(n),
				Text:          text,
				Source:        filepath.Base(src),
				SequenceIndex: len(out),
			})
		}
	}
	return out, nil
}

func sourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// checkNames rejects sources whose ids would collide.
func checkNames(sources []string) error {
	seen := make(map[string]string, len(sources))
	for _, src := range sources {
		name := sourceName(src)
		if prev, ok := seen[name]; ok {
			return sigilerr.Errorf(sigilerr.CodeIngestInvalidInput,
				"ingest: %s and %s would produce the same chunk ids %q", prev, src, name+"-N")
		}
		seen[name] = src
	}
	return nil
}
