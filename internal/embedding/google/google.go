// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package google

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/sigil-dev/docintel/internal/embedding"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// DefaultModel is the Gemini embedding model used when none is configured.
const DefaultModel = "text-embedding-004"

// Config holds Google embedding configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional, useful for testing against a mock server
}

// Client implements embedding.Client using the Gemini embedContent API.
type Client struct {
	client *genai.Client
	model  string
}

var _ embedding.Client = (*Client)(nil)

// New creates a Gemini embedding client. Returns a config error if the API
// key is missing.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, sigilerr.New(sigilerr.CodeConfigValidateInvalidValue,
			"google embeddings: missing api_key in config", sigilerr.FieldProvider("google"))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeProviderUpstreamFailure, "google embeddings: creating client")
	}

	return &Client{client: client, model: cfg.Model}, nil
}

func (c *Client) Name() string { return "google" }

// Model returns the configured embedding model.
func (c *Client) Model() string { return c.model }

func (c *Client) EmbedContent(ctx context.Context, req embedding.Request) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(req.Texts))
	for _, text := range req.Texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.model, contents, buildConfig(req))
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeProviderUpstreamFailure,
			"google embeddings: embedding %d texts with %s", len(req.Texts), c.model)
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		if e == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, e.Values)
	}
	return out, nil
}

// Close is a no-op; the genai client holds no resources that need releasing.
func (c *Client) Close() error { return nil }

func buildConfig(req embedding.Request) *genai.EmbedContentConfig {
	cfg := &genai.EmbedContentConfig{}
	if req.TaskType != "" {
		cfg.TaskType = strings.ToUpper(req.TaskType)
	}
	if req.OutputDimensionality > 0 {
		dims := int32(req.OutputDimensionality)
		cfg.OutputDimensionality = &dims
	}
	return cfg
}
