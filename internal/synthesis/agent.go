// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package synthesis

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sigil-dev/docintel/internal/provider"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Task is a running agentic synthesis.
type Task struct {
	id     string
	done   chan struct{}
	cancel context.CancelFunc

	once   sync.Once
	result *Result
	err    error
}

func newTask(parent context.Context) (*Task, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Task{
		id:     uuid.NewString(),
		done:   make(chan struct{}),
		cancel: cancel,
	}, ctx
}

func (t *Task) finish(res *Result, err error) {
	t.once.Do(func() {
		t.result, t.err = res, err
		t.cancel()
		close(t.done)
	})
}

// ID identifies the task in logs.
func (t *Task) ID() string { return t.id }

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel aborts the run at its next model call or tool dispatch.
func (t *Task) Cancel() { t.cancel() }

// Wait blocks until the task finishes or ctx is done. A ctx that ends first
// returns its error without cancelling the task.
func (t *Task) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SynthesizeAgentic runs a bounded tool loop on its own goroutine: at most
// MaxAgentTurns model calls, the last of which is offered no tools.
func (s *Synthesizer) SynthesizeAgentic(ctx context.Context, prompt string, maxOutputTokens int) *Task {
	task, taskCtx := newTask(ctx)

	if strings.TrimSpace(prompt) == "" {
		task.finish(nil, sigilerr.New(sigilerr.CodeSynthesisInvalidInput, "synthesis: prompt is empty"))
		return task
	}

	go func() {
		res, err := s.runAgent(taskCtx, task.id, prompt, maxOutputTokens)
		task.finish(res, err)
	}()
	return task
}

func (s *Synthesizer) runAgent(ctx context.Context, taskID, prompt string, maxOutputTokens int) (*Result, error) {
	log := slog.With("task", taskID)
	log.Info("agentic synthesis started", "prompt", truncate(prompt, 100))

	var tools *toolset
	if !s.opts.DisableTools {
		tools = newToolset(PassageTool(prompt))
	}

	var (
		history []provider.Message
		usage   provider.Usage
		model   string
		resp    provider.Response
	)
	turn := 0
	for turn < s.opts.MaxAgentTurns {
		turn++
		req := s.request(prompt, maxOutputTokens, history)
		final := turn == s.opts.MaxAgentTurns
		if !final && tools != nil {
			req.Tools = tools.definitions()
		}

		var err error
		resp, model, err = s.chat(ctx, req)
		if err != nil {
			if isContextErr(err) {
				log.Info("agentic synthesis cancelled", "turn", turn)
			}
			return nil, err
		}
		usage.Add(&resp.Usage)

		if len(resp.ToolCalls) == 0 || resp.Blocked {
			break
		}
		if final {
			if strings.TrimSpace(resp.Text) != "" {
				break
			}
			return nil, sigilerr.Errorf(sigilerr.CodeSynthesisTurnsExceeded,
				"synthesis: agent still calling tools after %d turns", turn)
		}

		history = append(history, provider.Message{
			Role:      provider.MessageRoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			if err := ctx.Err(); err != nil {
				log.Info("agentic synthesis cancelled", "turn", turn)
				return nil, err
			}
			out := tools.dispatch(ctx, call)
			log.Debug("tool call", "tool", call.Name, "turn", turn)
			history = append(history, provider.Message{
				Role:       provider.MessageRoleTool,
				Content:    out,
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	res := &Result{
		Answer: answerText(resp),
		Usage:  usage,
		Model:  model,
		Turns:  turn,
	}
	logAnswer(res, resp)

	res.Evaluation = s.evaluate(ctx, prompt, res.Answer)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
