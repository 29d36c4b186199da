// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/docintel/internal/rag"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

const previewLen = 200

func newQueryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question from the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd, strings.Join(args, " "))
		},
	}
	cmd.Flags().IntP("n-results", "n", 0, "passages to retrieve (default query.n_results)")
	cmd.Flags().Bool("cite", false, "ask the model to cite passages")
	cmd.Flags().Bool("agentic", false, "use the tool-using agent")
	cmd.Flags().Duration("timeout", 2*time.Minute, "overall deadline")
	cmd.Flags().Bool("show-prompt", false, "print the rendered prompt")
	return cmd
}

func (c *cli) runQuery(cmd *cobra.Command, question string) error {
	if strings.TrimSpace(question) == "" {
		return sigilerr.New(sigilerr.CodeCLIInputInvalid, "question must not be empty")
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

	opts := p.Defaults
	if n, _ := cmd.Flags().GetInt("n-results"); n > 0 {
		opts.NResults = n
	}
	if cmd.Flags().Changed("cite") {
		opts.Cite, _ = cmd.Flags().GetBool("cite")
	}
	if agentic, _ := cmd.Flags().GetBool("agentic"); agentic {
		opts.Mode = rag.ModeAgentic
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ans, err := p.Querier.Ask(ctx, question, opts)
	if err != nil {
		return err
	}

	showPrompt, _ := cmd.Flags().GetBool("show-prompt")
	return printAnswer(cmd, ans, showPrompt)
}

func printAnswer(cmd *cobra.Command, ans *rag.Answer, showPrompt bool) error {
	w := cmd.OutOrStdout()
	if showPrompt {
		if _, err := fmt.Fprintf(w, "%s\n\n", ans.Prompt); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ans.Text); err != nil {
		return err
	}

	if len(ans.Hits) > 0 {
		_, _ = fmt.Fprintln(w, "\nSources:")
	}
	for i, h := range ans.Hits {
		if _, err := fmt.Fprintf(w, "[%d] %s (%s, distance %.4f)\n", i+1, preview(h.Document), h.Source(), h.Distance); err != nil {
			return err
		}
	}

	if len(ans.Evaluation) > 0 {
		names := make([]string, 0, len(ans.Evaluation))
		for name := range ans.Evaluation {
			names = append(names, name)
		}
		sort.Strings(names)
		_, _ = fmt.Fprintln(w, "\nEvaluation:")
		for _, name := range names {
			e := ans.Evaluation[name]
			status := "pass"
			switch {
			case e.Error != "":
				status = "error: " + e.Error
			case !e.Passing:
				status = "fail"
			}
			if _, err := fmt.Fprintf(w, "  %s: %s\n", name, status); err != nil {
				return err
			}
		}
	}
	return nil
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "..."
}
