// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/docintel/internal/server"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query and index API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runServe(cmd)
		},
	}
	cmd.Flags().String("listen", "", "override listen address (host:port)")
	cmd.Flags().Float64("rate-limit", 0, "requests per second per client IP (0 disables)")
	cmd.Flags().Int("rate-burst", 10, "rate limit burst")
	return cmd
}

func (c *cli) runServe(cmd *cobra.Command) error {
	if err := c.v.BindPFlag("server.listen", cmd.Flags().Lookup("listen")); err != nil {
		return err
	}

	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	p, err := WirePipeline(cfg, fullStack)
	if err != nil {
		return err
	}
	defer p.Close() //nolint:errcheck // best-effort on exit

	rps, _ := cmd.Flags().GetFloat64("rate-limit")
	burst, _ := cmd.Flags().GetInt("rate-burst")
	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   server.RateLimitConfig{RequestsPerSecond: rps, Burst: burst},
		Version:     version,
	}, p.Services())
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("serving", "addr", cfg.Server.Listen, "collection", p.Store.Collection())
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", cfg.Server.Listen); err != nil {
		return err
	}
	return srv.Start(ctx)
}
