// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package evaluation

import (
	"context"
	"strings"

	"github.com/sigil-dev/docintel/internal/provider"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

const faithfulnessTemplate = `Decide whether the information below is supported by the context.
Answer YES if any part of the context supports the information, even if most of the context is unrelated.
Answer NO otherwise. Reply with YES or NO only.

Information:
{response}

Context:
{context}

Answer:`

const relevancyTemplate = `Decide whether the response answers the query and is in line with the context.
Reply with YES if it does and NO if it does not. Reply with YES or NO only.

Query:
{query}

Response:
{response}

Context:
{context}

Answer:`

var templates = map[string]string{
	Faithfulness: faithfulnessTemplate,
	Relevancy:    relevancyTemplate,
}

// Judge is an Evaluator that asks a chat model a YES/NO question.
type Judge struct {
	name     string
	template string
	router   provider.Router
	modelRef string
}

var _ Evaluator = (*Judge)(nil)

// New returns the built-in evaluator called name, judged by modelRef (or the
// router default when empty).
func New(name string, router provider.Router, modelRef string) (*Judge, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, sigilerr.New(sigilerr.CodeEvaluationUnknown,
			"unknown evaluator: "+name, sigilerr.Field("evaluator", name))
	}
	if router == nil {
		return nil, sigilerr.New(sigilerr.CodeConfigValidateInvalidValue,
			"evaluator "+name+" needs a provider router")
	}
	return &Judge{name: name, template: tmpl, router: router, modelRef: modelRef}, nil
}

// NewAll builds evaluators for names in order.
func NewAll(names []string, router provider.Router, modelRef string) ([]Evaluator, error) {
	out := make([]Evaluator, 0, len(names))
	for _, name := range names {
		j, err := New(name, router, modelRef)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func (j *Judge) Name() string { return j.name }

// Evaluate renders the judge prompt, asks the model and parses the verdict.
func (j *Judge) Evaluate(ctx context.Context, s Sample) (Outcome, error) {
	prompt := renderTemplate(j.template, s)

	p, model, err := j.router.Route(ctx, j.modelRef, nil)
	if err != nil {
		return Outcome{}, runFailure(j.name, err)
	}

	zero := float32(0)
	events, err := p.Chat(ctx, provider.ChatRequest{
		Model:    model,
		Messages: []provider.Message{{Role: provider.MessageRoleUser, Content: prompt}},
		Options:  provider.ChatOptions{Temperature: &zero, MaxTokens: 16},
	})
	if err != nil {
		return Outcome{}, runFailure(j.name, err)
	}
	resp, err := provider.Collect(ctx, events)
	if err != nil {
		return Outcome{}, runFailure(j.name, err)
	}

	passing, err := ParseVerdict(resp.Text)
	if err != nil {
		return Outcome{}, sigilerr.With(err, sigilerr.Field("evaluator", j.name))
	}
	out := Outcome{Passing: passing, Feedback: strings.TrimSpace(resp.Text)}
	if passing {
		out.Score = 1
	}
	return out, nil
}

// ParseVerdict reads a YES/NO judge reply from its first word. Case and
// surrounding markup or punctuation are ignored.
func ParseVerdict(reply string) (bool, error) {
	var word string
	if fields := strings.Fields(reply); len(fields) > 0 {
		word = strings.ToUpper(strings.Trim(fields[0], "*\"'`.,:;!?"))
	}
	switch word {
	case "YES":
		return true, nil
	case "NO":
		return false, nil
	default:
		return false, sigilerr.Errorf(sigilerr.CodeEvaluationResponseFormat,
			"judge reply %q is neither YES nor NO", truncate(reply, 40))
	}
}

func renderTemplate(tmpl string, s Sample) string {
	return strings.NewReplacer(
		"{query}", s.Query,
		"{response}", s.Response,
		"{context}", strings.Join(s.Contexts, "\n\n"),
	).Replace(tmpl)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
