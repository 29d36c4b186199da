// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package evaluation grades synthesized answers with an LLM judge. Results
// are advisory: callers log and attach them but never reject an answer.
package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Built-in evaluator names.
const (
	Faithfulness = "faithfulness"
	Relevancy    = "relevancy"
)

// Sample is one answer to grade.
type Sample struct {
	Query    string
	Response string
	Contexts []string
}

// Outcome is a single evaluator verdict.
type Outcome struct {
	Passing  bool
	Score    float64
	Feedback string
}

// Evaluator grades a Sample. Implementations return an error with code
// evaluation.run.failure (or a more specific evaluation code) when no verdict
// could be produced.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, s Sample) (Outcome, error)
}

// Entry is the serialisable form of an evaluator result. A failed evaluator
// only carries Error.
type Entry struct {
	Passing  bool    `json:"passing"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Report maps evaluator name to its entry.
type Report map[string]Entry

// Passing reports whether every evaluator produced a passing verdict.
func (r Report) Passing() bool {
	for _, e := range r {
		if e.Error != "" || !e.Passing {
			return false
		}
	}
	return true
}

// Run evaluates s with each evaluator in order. Failures are recorded in the
// report and logged; Run itself never fails. A cancelled ctx stops the run
// and marks the remaining evaluators with the context error.
func Run(ctx context.Context, evaluators []Evaluator, s Sample) Report {
	report := make(Report, len(evaluators))
	for _, ev := range evaluators {
		if err := ctx.Err(); err != nil {
			report[ev.Name()] = Entry{Error: err.Error()}
			continue
		}

		out, err := ev.Evaluate(ctx, s)
		if err != nil {
			slog.Warn("evaluation failed",
				"evaluator", ev.Name(),
				"code", sigilerr.CodeOf(err),
				"error", err,
			)
			report[ev.Name()] = Entry{Error: err.Error()}
			continue
		}

		slog.Info("evaluation result",
			"evaluator", ev.Name(),
			"passing", out.Passing,
			"score", out.Score,
		)
		report[ev.Name()] = Entry{Passing: out.Passing, Score: out.Score, Feedback: out.Feedback}
	}
	return report
}

// Names returns the built-in evaluator names in sorted order.
func Names() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a built-in evaluator.
func Known(name string) bool {
	_, ok := templates[name]
	return ok
}

// runFailure builds an evaluation error that keeps its own code even when
// cause is itself coded.
func runFailure(name string, cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}
	return sigilerr.New(sigilerr.CodeEvaluationRunFailure,
		name+" evaluation: "+cause.Error(),
		sigilerr.Field("evaluator", name),
	)
}
