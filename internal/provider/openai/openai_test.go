// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package openai_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/docintel/internal/provider"
	"github.com/sigil-dev/docintel/internal/provider/openai"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

func TestOpenAIProvider_MissingAPIKey(t *testing.T) {
	_, err := openai.New(openai.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, sigilerr.IsConfigError(err))
}

func TestOpenAIProvider_Basics(t *testing.T) {
	p := mustNewProvider(t, "")
	assert.Equal(t, "openai", p.Name())
	assert.True(t, p.Available(context.Background()))
	assert.NoError(t, p.Close())
}

func TestBuildParams(t *testing.T) {
	temp := float32(0)
	params, err := openai.BuildParams(provider.ChatRequest{
		SystemPrompt: "sys",
		Messages:     []provider.Message{{Role: provider.MessageRoleUser, Content: "q"}},
		Options:      provider.ChatOptions{Temperature: &temp, MaxTokens: 64},
		Tools:        []provider.ToolDefinition{{Name: "lookup_passage", InputSchema: map[string]any{"type": "object"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, openai.DefaultModel, string(params.Model))
	require.Len(t, params.Messages, 2)
	assert.NotNil(t, params.Messages[0].OfSystem)
	assert.True(t, params.Temperature.Valid(), "explicit zero temperature must be sent")
	assert.EqualValues(t, 64, params.MaxCompletionTokens.Value)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "lookup_passage", params.Tools[0].Function.Name)
}

func TestConvertMessages(t *testing.T) {
	params, err := openai.ConvertMessages([]provider.Message{
		{Role: provider.MessageRoleUser, Content: "question"},
		{Role: provider.MessageRoleAssistant, ToolCalls: []provider.ToolCall{
			{ID: "call-1", Name: "lookup_passage", Arguments: `{"index":1}`},
		}},
		{Role: provider.MessageRoleTool, Content: "tool result", ToolCallID: "call-1"},
		{Role: provider.MessageRoleAssistant, Content: "answer"},
	}, "")
	require.NoError(t, err)
	require.Len(t, params, 4)

	assert.Equal(t, "question", params[0].OfUser.Content.OfString.Value)

	require.NotNil(t, params[1].OfAssistant)
	require.Len(t, params[1].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "call-1", params[1].OfAssistant.ToolCalls[0].ID)
	assert.Equal(t, `{"index":1}`, params[1].OfAssistant.ToolCalls[0].Function.Arguments)

	require.NotNil(t, params[2].OfTool)
	assert.Equal(t, "call-1", params[2].OfTool.ToolCallID)
	assert.Equal(t, "tool result", params[2].OfTool.Content.OfString.Value)

	assert.Equal(t, "answer", params[3].OfAssistant.Content.OfString.Value)

	_, err = openai.ConvertMessages([]provider.Message{{Role: "narrator"}}, "")
	assert.True(t, sigilerr.IsInvalidInput(err))
}

func sseServer(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", c)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChat_StreamsTextToolCallsAndUsage(t *testing.T) {
	srv := sseServer(t,
		`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"role":"assistant","content":"Paris "},"finish_reason":null}]}`,
		`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":"[1]"},"finish_reason":null}]}`,
		`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call-1","type":"function","function":{"name":"lookup_passage","arguments":"{\"ind"}}]},"finish_reason":null}]}`,
		`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"ex\":1}"}}]},"finish_reason":"tool_calls"}]}`,
		`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[],"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}}`,
	)
	p := mustNewProvider(t, srv.URL)

	events, err := p.Chat(context.Background(), provider.ChatRequest{
		Model:    "m",
		Messages: []provider.Message{{Role: provider.MessageRoleUser, Content: "capital?"}},
	})
	require.NoError(t, err)

	resp, err := provider.Collect(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, "Paris [1]", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call-1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"index":1}`, resp.ToolCalls[0].Arguments)
	assert.Equal(t, 7, resp.Usage.InputTokens)
	assert.Equal(t, 3, resp.Usage.OutputTokens)
	assert.True(t, p.Available(context.Background()))
}

func TestChat_UpstreamErrorMarksUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()
	p := mustNewProvider(t, srv.URL)

	events, err := p.Chat(context.Background(), provider.ChatRequest{
		Model:    "nope",
		Messages: []provider.Message{{Role: provider.MessageRoleUser, Content: "q"}},
	})
	require.NoError(t, err)

	_, err = provider.Collect(context.Background(), events)
	require.Error(t, err)
	assert.True(t, sigilerr.IsProviderError(err))
	assert.False(t, p.Available(context.Background()))
}

// mustNewProvider creates a provider with a dummy API key for unit tests.
func mustNewProvider(t *testing.T, baseURL string) *openai.Provider {
	t.Helper()
	p, err := openai.New(openai.Config{APIKey: "test-key-not-real", BaseURL: baseURL})
	require.NoError(t, err)
	return p
}
