// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package providertest provides a scripted provider.Provider for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/sigil-dev/docintel/internal/provider"
)

// DefaultModel is the model part of the default ref set by Registry.
const DefaultModel = "test-model"

// Reply scripts one Chat call.
type Reply struct {
	Text      string
	ToolCalls []provider.ToolCall
	Usage     *provider.Usage
	// Blocked emits a blocked event with this reason.
	Blocked string
	// Err ends the stream with an error event.
	Err string
	// ChatErr is returned by Chat itself.
	ChatErr error
	// Hang keeps the stream open until ctx is done.
	Hang bool
}

// Provider answers Chat calls from a script or a function.
type Provider struct {
	name string

	mu        sync.Mutex
	replies   []Reply
	fn        func(provider.ChatRequest) Reply
	requests  []provider.ChatRequest
	available bool
	closed    bool
}

var _ provider.Provider = (*Provider)(nil)

// New returns a provider that plays replies in order and then repeats the
// last one.
func New(name string, replies ...Reply) *Provider {
	return &Provider{name: name, replies: replies, available: true}
}

// NewFunc returns a provider that computes each reply from the request.
func NewFunc(name string, fn func(provider.ChatRequest) Reply) *Provider {
	return &Provider{name: name, fn: fn, available: true}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Available(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// SetAvailable toggles what Available reports.
func (p *Provider) SetAvailable(v bool) {
	p.mu.Lock()
	p.available = v
	p.mu.Unlock()
}

func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	var r Reply
	switch {
	case p.fn != nil:
		r = p.fn(req)
	case len(p.replies) > 0:
		idx := len(p.requests) - 1
		if idx >= len(p.replies) {
			idx = len(p.replies) - 1
		}
		r = p.replies[idx]
	}
	p.mu.Unlock()

	if r.ChatErr != nil {
		return nil, r.ChatErr
	}

	ch := make(chan provider.ChatEvent, 8+len(r.ToolCalls))
	go func() {
		defer close(ch)
		if r.Hang {
			<-ctx.Done()
			return
		}
		if r.Err != "" {
			ch <- provider.ChatEvent{Type: provider.EventTypeError, Error: r.Err}
			return
		}
		if r.Blocked != "" {
			ch <- provider.ChatEvent{Type: provider.EventTypeBlocked, Text: r.Blocked}
		}
		if r.Text != "" {
			ch <- provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: r.Text}
		}
		for i := range r.ToolCalls {
			tc := r.ToolCalls[i]
			ch <- provider.ChatEvent{Type: provider.EventTypeToolCall, ToolCall: &tc}
		}
		if r.Usage != nil {
			ch <- provider.ChatEvent{Type: provider.EventTypeUsage, Usage: r.Usage}
		}
		ch <- provider.ChatEvent{Type: provider.EventTypeDone}
	}()
	return ch, nil
}

// Requests returns a copy of every request received so far.
func (p *Provider) Requests() []provider.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]provider.ChatRequest(nil), p.requests...)
}

// Calls returns the number of Chat calls so far.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *Provider) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (p *Provider) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Registry registers providers and makes the first one the default with
// DefaultModel; the rest form the failover chain in order.
func Registry(providers ...*Provider) *provider.Registry {
	reg := provider.NewRegistry()
	var chain []string
	for i, p := range providers {
		reg.Register(p.Name(), p)
		ref := p.Name() + "/" + DefaultModel
		if i == 0 {
			if err := reg.SetDefault(ref); err != nil {
				panic(err)
			}
			continue
		}
		chain = append(chain, ref)
	}
	if err := reg.SetFailover(chain); err != nil {
		panic(err)
	}
	return reg
}
