// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/sigil-dev/docintel/internal/provider"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Tool is a read-only capability offered to the agent.
type Tool interface {
	Definition() provider.ToolDefinition
	Call(ctx context.Context, arguments string) (string, error)
}

type toolset struct {
	byName map[string]Tool
	order  []Tool
}

func newToolset(tools ...Tool) *toolset {
	ts := &toolset{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t == nil {
			continue
		}
		ts.byName[t.Definition().Name] = t
		ts.order = append(ts.order, t)
	}
	return ts
}

func (ts *toolset) definitions() []provider.ToolDefinition {
	if ts == nil || len(ts.order) == 0 {
		return nil
	}
	defs := make([]provider.ToolDefinition, 0, len(ts.order))
	for _, t := range ts.order {
		defs = append(defs, t.Definition())
	}
	return defs
}

// dispatch runs call and renders failures as tool output so the model can
// recover.
func (ts *toolset) dispatch(ctx context.Context, call provider.ToolCall) string {
	var t Tool
	if ts != nil {
		t = ts.byName[call.Name]
	}
	if t == nil {
		return "error: unknown tool " + strconv.Quote(call.Name)
	}
	out, err := t.Call(ctx, call.Arguments)
	if err != nil {
		slog.Warn("tool call failed", "tool", call.Name, "error", err)
		return "error: " + err.Error()
	}
	return out
}

var passageMarker = regexp.MustCompile(`^\[(\d+)\] `)

// ParsePassages extracts the numbered passages of a grounded prompt. The
// block starts after a "Passages:" line and ends at the "If not found" line.
func ParsePassages(prompt string) []string {
	var (
		passages []string
		current  *strings.Builder
		inBlock  bool
	)
	flush := func() {
		if current != nil {
			passages = append(passages, strings.TrimSpace(current.String()))
			current = nil
		}
	}
	for _, line := range strings.Split(prompt, "\n") {
		if !inBlock {
			inBlock = strings.TrimSpace(line) == "Passages:"
			continue
		}
		if strings.HasPrefix(line, "If not found") {
			break
		}
		if m := passageMarker.FindStringSubmatch(line); m != nil {
			flush()
			current = &strings.Builder{}
			current.WriteString(strings.TrimPrefix(line, m[0]))
			continue
		}
		if current != nil {
			current.WriteString("\n")
			current.WriteString(line)
		}
	}
	flush()
	return passages
}

// PassageTool returns the lookup_passage tool over the prompt's passages, or
// nil when the prompt has none.
func PassageTool(prompt string) Tool {
	passages := ParsePassages(prompt)
	if len(passages) == 0 {
		return nil
	}
	return &passageTool{passages: passages}
}

type passageTool struct {
	passages []string
}

func (p *passageTool) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name: "lookup_passage",
		Description: fmt.Sprintf("Return the full text of retrieved passage n (1-%d), "+
			"prefixed with its source.", len(p.passages)),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"n": map[string]any{
					"type":        "integer",
					"description": "Passage number as shown in [n].",
				},
			},
			"required": []string{"n"},
		},
	}
}

func (p *passageTool) Call(_ context.Context, arguments string) (string, error) {
	var args struct {
		N int `json:"n"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", sigilerr.Errorf(sigilerr.CodeSynthesisToolFailure, "lookup_passage: invalid arguments: %v", err)
	}
	if args.N < 1 || args.N > len(p.passages) {
		return "", sigilerr.Errorf(sigilerr.CodeSynthesisToolFailure,
			"lookup_passage: passage %d does not exist (1-%d)", args.N, len(p.passages))
	}
	return p.passages[args.N-1], nil
}
