// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package provider

import (
	"context"
	"strings"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Response is a fully drained chat stream.
type Response struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage

	// Blocked is set when the provider withheld the response; BlockReason
	// carries its explanation.
	Blocked     bool
	BlockReason string
}

// Collect drains events until the stream closes or ctx is done. An error
// event ends collection with a provider upstream error.
func Collect(ctx context.Context, events <-chan ChatEvent) (Response, error) {
	var (
		resp Response
		text strings.Builder
	)
	for {
		select {
		case <-ctx.Done():
			return resp, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				resp.Text = text.String()
				return resp, nil
			}
			switch ev.Type {
			case EventTypeTextDelta:
				text.WriteString(ev.Text)
			case EventTypeToolCall:
				if ev.ToolCall != nil {
					resp.ToolCalls = append(resp.ToolCalls, *ev.ToolCall)
				}
			case EventTypeUsage:
				resp.Usage.Add(ev.Usage)
			case EventTypeBlocked:
				resp.Blocked = true
				resp.BlockReason = ev.Text
			case EventTypeError:
				return resp, sigilerr.New(sigilerr.CodeProviderUpstreamFailure, ev.Error)
			case EventTypeDone:
			}
		}
	}
}
