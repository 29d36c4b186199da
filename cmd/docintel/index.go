// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/docintel/internal/rag"
)

func newIndexCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed a chunk file into the vector store",
		Long:  "Embed every chunk in the chunk file and upsert it into the configured collection. Re-indexing the same file replaces entries in place.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runIndex(cmd)
		},
	}
	cmd.Flags().String("chunks", "", "chunk file to read (default ingest.output)")
	return cmd
}

func (c *cli) runIndex(cmd *cobra.Command) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("chunks")
	if path == "" {
		path = cfg.Ingest.Output
	}
	chunks, err := rag.ReadChunkFile(path)
	if err != nil {
		return err
	}

	p, err := WirePipeline(cfg, indexOnly)
	if err != nil {
		return err
	}
	defer p.Close() //nolint:errcheck // best-effort on exit

	n, err := p.Indexer.Index(cmd.Context(), chunks)
	if err != nil {
		return err
	}
	total, err := p.Store.Count(cmd.Context())
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks into %q (%d total)\n", n, p.Store.Collection(), total)
	return err
}
