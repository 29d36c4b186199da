// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package compat embeds text through any server that speaks the OpenAI
// embeddings wire format: SiliconFlow, Ollama, vLLM, LocalAI and similar.
package compat

import (
	"context"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/sigil-dev/docintel/internal/embedding"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Config holds OpenAI-compatible embedding configuration. APIKey may be empty
// for local servers.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client implements embedding.Client against an OpenAI-compatible endpoint.
type Client struct {
	client *goopenai.Client
	model  string
}

var _ embedding.Client = (*Client)(nil)

// New creates a client. Model and BaseURL are required because there is no
// sensible default across compatible servers.
func New(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, sigilerr.New(sigilerr.CodeConfigValidateInvalidValue,
			"openai_compat embeddings: model is required", sigilerr.FieldProvider("openai_compat"))
	}
	if cfg.BaseURL == "" {
		return nil, sigilerr.New(sigilerr.CodeConfigValidateInvalidValue,
			"openai_compat embeddings: base_url is required", sigilerr.FieldProvider("openai_compat"))
	}

	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL

	return &Client{
		client: goopenai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}, nil
}

func (c *Client) Name() string { return "openai_compat" }

func (c *Client) EmbedContent(ctx context.Context, req embedding.Request) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input:      req.Texts,
		Model:      goopenai.EmbeddingModel(c.model),
		Dimensions: req.OutputDimensionality,
	})
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeProviderUpstreamFailure,
			"openai_compat embeddings: embedding %d texts with %s", len(req.Texts), c.model)
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, sigilerr.Errorf(sigilerr.CodeEmbeddingResponseInvalid,
				"openai_compat embeddings: unexpected embedding index %d", d.Index)
		}
		out[d.Index] = resp.Data[i].Embedding
	}
	return out, nil
}

func (c *Client) Close() error { return nil }
