// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package synthesis turns a grounded prompt into an answer with a chat model
// and grades the answer with the configured evaluators.
package synthesis

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sigil-dev/docintel/internal/evaluation"
	"github.com/sigil-dev/docintel/internal/provider"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// NotAvailable is returned as the answer when the model produced no text or
// the response was withheld by safety filtering.
const NotAvailable = "not available"

// SystemPrompt is sent with every synthesis request.
const SystemPrompt = "You are a helpful agent. " +
	"You answer questions using retrieved context (RAG). " +
	"Never hallucinate facts not present in the provided information."

const (
	DefaultMaxOutputTokens = 512
	DefaultMaxAgentTurns   = 5
)

// DefaultSafety blocks low-and-above harm in every category.
func DefaultSafety() []provider.SafetySetting {
	categories := []string{
		provider.HarmCategoryHateSpeech,
		provider.HarmCategoryDangerousContent,
		provider.HarmCategoryHarassment,
		provider.HarmCategorySexuallyExplicit,
		provider.HarmCategoryCivicIntegrity,
	}
	out := make([]provider.SafetySetting, 0, len(categories))
	for _, c := range categories {
		out = append(out, provider.SafetySetting{Category: c, Threshold: provider.BlockLowAndAbove})
	}
	return out
}

// Service synthesizes answers. Implementations share provider clients;
// Close releases them.
type Service interface {
	// Synthesize blocks until the answer and its evaluation are ready.
	Synthesize(ctx context.Context, prompt string, maxOutputTokens int) (*Result, error)
	// SynthesizeAgentic starts a bounded tool-using agent run and returns
	// immediately. Cancelling ctx or the Task aborts the run.
	SynthesizeAgentic(ctx context.Context, prompt string, maxOutputTokens int) *Task
	Close() error
}

// Result is a synthesized answer.
type Result struct {
	Answer     string            `json:"answer"`
	Evaluation evaluation.Report `json:"evaluation,omitempty"`
	Usage      provider.Usage    `json:"usage"`
	Model      string            `json:"model,omitempty"`
	Turns      int               `json:"turns"`
}

// Options configures a Synthesizer.
type Options struct {
	// Model is a "provider/model" ref; empty uses the router default.
	Model string
	// MaxAgentTurns bounds model calls per agentic run.
	MaxAgentTurns int
	// Evaluators run after every answer.
	Evaluators []evaluation.Evaluator
	// Safety overrides DefaultSafety when non-nil.
	Safety []provider.SafetySetting
	// DisableTools runs agentic synthesis without the passage tool.
	DisableTools bool
}

// Synthesizer implements Service over a provider router.
type Synthesizer struct {
	router provider.Router
	closer func() error
	opts   Options
}

var _ Service = (*Synthesizer)(nil)

// New creates a Synthesizer. When router also implements Close it is closed
// by Synthesizer.Close.
func New(router provider.Router, opts Options) (*Synthesizer, error) {
	if router == nil {
		return nil, sigilerr.New(sigilerr.CodeConfigValidateInvalidValue, "synthesis: no chat provider configured")
	}
	if opts.MaxAgentTurns < 0 {
		return nil, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"synthesis: max_agent_turns must be positive, got %d", opts.MaxAgentTurns)
	}
	if opts.MaxAgentTurns == 0 {
		opts.MaxAgentTurns = DefaultMaxAgentTurns
	}
	if opts.Safety == nil {
		opts.Safety = DefaultSafety()
	}

	s := &Synthesizer{router: router, opts: opts}
	if c, ok := router.(interface{ Close() error }); ok {
		s.closer = c.Close
	}
	return s, nil
}

func (s *Synthesizer) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// Synthesize makes one model call and evaluates the answer.
func (s *Synthesizer) Synthesize(ctx context.Context, prompt string, maxOutputTokens int) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, sigilerr.New(sigilerr.CodeSynthesisInvalidInput, "synthesis: prompt is empty")
	}
	slog.Info("synthesizing", "prompt", truncate(prompt, 100))

	resp, model, err := s.chat(ctx, s.request(prompt, maxOutputTokens, nil))
	if err != nil {
		return nil, err
	}

	res := &Result{
		Answer: answerText(resp),
		Usage:  resp.Usage,
		Model:  model,
		Turns:  1,
	}
	logAnswer(res, resp)

	res.Evaluation = s.evaluate(ctx, prompt, res.Answer)
	return res, nil
}

func (s *Synthesizer) request(prompt string, maxOutputTokens int, history []provider.Message) provider.ChatRequest {
	if maxOutputTokens <= 0 {
		maxOutputTokens = DefaultMaxOutputTokens
	}
	msgs := append([]provider.Message{{Role: provider.MessageRoleUser, Content: prompt}}, history...)
	return provider.ChatRequest{
		Messages:     msgs,
		SystemPrompt: SystemPrompt,
		Options: provider.ChatOptions{
			MaxTokens: maxOutputTokens,
			Safety:    s.opts.Safety,
		},
	}
}

// chat routes req and walks the failover chain when a provider fails. The
// returned model is the "provider/model" ref that answered.
func (s *Synthesizer) chat(ctx context.Context, req provider.ChatRequest) (provider.Response, string, error) {
	var (
		exclude []string
		lastErr error
	)
	for range s.router.MaxAttempts() {
		if err := ctx.Err(); err != nil {
			return provider.Response{}, "", err
		}

		p, model, err := s.router.Route(ctx, s.opts.Model, exclude)
		if err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		req.Model = model
		resp, err := collect(ctx, p, req)
		if err == nil {
			return resp, p.Name() + "/" + model, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return provider.Response{}, "", ctxErr
		}

		slog.Warn("synthesis: provider call failed",
			"provider", p.Name(),
			"model", model,
			"error", err,
		)
		lastErr = err
		exclude = append(exclude, p.Name())
	}

	return provider.Response{}, "", sigilerr.New(sigilerr.CodeSynthesisModelFailure,
		"synthesis: model call failed: "+errMessage(lastErr),
		sigilerr.FieldModel(s.opts.Model),
	)
}

func collect(ctx context.Context, p provider.Provider, req provider.ChatRequest) (provider.Response, error) {
	events, err := p.Chat(ctx, req)
	if err != nil {
		return provider.Response{}, err
	}
	return provider.Collect(ctx, events)
}

func (s *Synthesizer) evaluate(ctx context.Context, prompt, answer string) evaluation.Report {
	if len(s.opts.Evaluators) == 0 {
		return nil
	}
	return evaluation.Run(ctx, s.opts.Evaluators, evaluation.Sample{
		Query:    prompt,
		Response: answer,
		Contexts: []string{prompt},
	})
}

func answerText(resp provider.Response) string {
	text := strings.TrimSpace(resp.Text)
	if resp.Blocked || text == "" {
		return NotAvailable
	}
	return text
}

func logAnswer(res *Result, resp provider.Response) {
	if resp.Blocked {
		slog.Warn("synthesis response withheld", "reason", resp.BlockReason, "model", res.Model)
		return
	}
	slog.Info("synthesis response",
		"answer", truncate(res.Answer, 100),
		"model", res.Model,
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens,
		"turns", res.Turns,
	)
}

func errMessage(err error) string {
	if err == nil {
		return "no provider attempted"
	}
	return err.Error()
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
