// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/docintel/internal/ingest"
	"github.com/sigil-dev/docintel/internal/rag"
	"github.com/sigil-dev/docintel/internal/scanner"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

func newIngestCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Extract and chunk documents into a chunk file",
		Long: "Extract text from PDF and plain text documents, split it into overlapping sentence chunks " +
			"and write them as JSON lines. Without arguments the sources listed in ingest.sources are used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runIngest(cmd, args)
		},
	}
	cmd.Flags().StringP("output", "o", "", "chunk file to write (default ingest.output)")
	return cmd
}

func (c *cli) runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	sources := args
	if len(sources) == 0 {
		sources = cfg.SourcePaths()
	}
	if len(sources) == 0 {
		return sigilerr.New(sigilerr.CodeCLIInputInvalid, "no sources: pass files or set ingest.sources")
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = cfg.Ingest.Output
	}

	filter, err := scanFilter(scanner.StageDocument, cfg.Ingest.SecretScan)
	if err != nil {
		return err
	}
	chunks, err := ingest.Run(cmd.Context(), sources, ingest.Options{
		Chunker: ingest.SentenceChunker{
			ChunkSize:    cfg.Chunking.ChunkSize,
			ChunkOverlap: cfg.Chunking.ChunkOverlap,
		},
		Workers: cfg.Ingest.Workers,
		Filter:  filter,
	})
	if err != nil {
		return err
	}
	if err := rag.WriteChunkFile(out, chunks); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chunks from %d sources to %s\n", len(chunks), len(sources), out)
	return err
}
