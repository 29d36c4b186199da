// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCollectionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Inspect or drop vector store collections",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "count",
			Short: "Print the number of entries in the configured collection",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.runCollectionCount(cmd)
			},
		},
		&cobra.Command{
			Use:   "delete [name]",
			Short: "Delete a collection (default vector_store.collection_name)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.runCollectionDelete(cmd, args)
			},
		},
	)
	return cmd
}

func (c *cli) runCollectionCount(cmd *cobra.Command) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := WirePipeline(cfg, storeOnly)
	if err != nil {
		return err
	}
	defer p.Close() //nolint:errcheck // best-effort on exit

	n, err := p.Store.Count(cmd.Context())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", p.Store.Collection(), n)
	return err
}

func (c *cli) runCollectionDelete(cmd *cobra.Command, args []string) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := WirePipeline(cfg, storeOnly)
	if err != nil {
		return err
	}
	defer p.Close() //nolint:errcheck // best-effort on exit

	name := p.Store.Collection()
	if len(args) == 1 {
		name = args[0]
	}
	if err := p.Store.DeleteCollection(cmd.Context(), name); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted collection: %s\n", name)
	return err
}
