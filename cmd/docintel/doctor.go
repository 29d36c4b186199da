// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/sigil-dev/docintel/internal/config"
	"github.com/sigil-dev/docintel/internal/provider"
)

// doctorHTTPClient is used for provider key checks. Tests replace it.
var doctorHTTPClient = &http.Client{Timeout: 10 * time.Second}

// keyValidator checks one provider key. Tests replace it.
var keyValidator = provider.ValidateKey

func newDoctorCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the configuration, the vector store, provider API keys and disk space.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runDoctor(cmd)
		},
	}
	cmd.Flags().Bool("offline", false, "skip provider key checks")
	return cmd
}

type check struct {
	name string
	fn   func() string
}

func (c *cli) runDoctor(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	offline, _ := cmd.Flags().GetBool("offline")

	checks := []check{
		{"Binary", checkBinary},
		{"Config file", func() string { return checkConfigFile(c.v.ConfigFileUsed()) }},
	}

	cfg, err := c.loadConfig(cmd)
	if err != nil {
		checks = append(checks, check{"Config", func() string { return "invalid: " + err.Error() }})
	} else {
		checks = append(checks,
			check{"Config", func() string { return "valid" }},
			check{"Embeddings", func() string { return checkEmbeddings(cfg) }},
			check{"Vector store", func() string { return checkVectorStore(cmd.Context(), cfg) }},
			check{"Disk space", func() string { return checkDiskSpace(storeDir(cfg)) }},
		)
		for _, name := range chatProviders(cfg) {
			checks = append(checks, check{"Provider " + name, func() string {
				return checkProvider(cmd.Context(), cfg, name, offline)
			}})
		}
	}

	for _, ch := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", ch.name+":", ch.fn()); err != nil {
			return err
		}
	}
	return nil
}

func checkBinary() string {
	return fmt.Sprintf("docintel %s (%s/%s, %s)", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfigFile(path string) string {
	if path == "" {
		return "using defaults (no config file found)"
	}
	return "loaded from " + path
}

func checkEmbeddings(cfg *config.Config) string {
	e := cfg.Embeddings
	desc := fmt.Sprintf("%s, %d dimensions", e.Provider, e.Dimensions)
	switch e.Provider {
	case "google", "openai":
		if cfg.APIKey(e.Provider) == "" {
			return desc + ", missing api key"
		}
	case "hashing":
		return desc + ", offline"
	}
	return desc
}

func checkVectorStore(ctx context.Context, cfg *config.Config) string {
	p, err := WirePipeline(cfg, storeOnly)
	if err != nil {
		return "error: " + err.Error()
	}
	defer p.Close() //nolint:errcheck // read-only check

	if ctx == nil {
		ctx = context.Background()
	}
	n, err := p.Store.Count(ctx)
	if err != nil {
		return "error: " + err.Error()
	}
	return fmt.Sprintf("%s %q, %d entries", cfg.VectorStore.Type, p.Store.Collection(), n)
}

// chatProviders returns the distinct providers named by the synthesis and
// evaluation refs, sorted.
func chatProviders(cfg *config.Config) []string {
	seen := map[string]bool{}
	refs := append([]string{cfg.Synthesis.Model, cfg.Evaluation.Model}, cfg.Synthesis.Failover...)
	for _, ref := range refs {
		if name, _ := provider.ParseRef(ref); name != "" {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkProvider(ctx context.Context, cfg *config.Config, name string, offline bool) string {
	key := cfg.APIKey(name)
	if key == "" {
		return "missing api key"
	}
	if offline {
		return "key configured (not checked)"
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := keyValidator(ctx, doctorHTTPClient, provider.ProviderName(name), key); err != nil {
		return "error: " + err.Error()
	}
	return "key valid"
}

func storeDir(cfg *config.Config) string {
	if cfg.VectorStore.Type == "sqlite" {
		return filepath.Dir(cfg.VectorStore.Path)
	}
	return "."
}

func checkDiskSpace(dir string) string {
	path := dir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = "."
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}
	return formatBytes(stat.Bavail*uint64(stat.Bsize)) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
