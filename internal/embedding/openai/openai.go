// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package openai

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/sigil-dev/docintel/internal/embedding"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// DefaultModel supports the dimensions parameter.
const DefaultModel = "text-embedding-3-small"

// Config holds OpenAI embedding configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional, useful for testing against a mock server
}

// Client implements embedding.Client using the OpenAI embeddings endpoint.
type Client struct {
	client openaisdk.Client
	model  string
}

var _ embedding.Client = (*Client)(nil)

// New creates an OpenAI embedding client. Returns a config error if the API
// key is missing.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, sigilerr.New(sigilerr.CodeConfigValidateInvalidValue,
			"openai embeddings: missing api_key in config", sigilerr.FieldProvider("openai"))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{client: openaisdk.NewClient(opts...), model: cfg.Model}, nil
}

func (c *Client) Name() string { return "openai" }

// EmbedContent ignores TaskType; the endpoint has no equivalent.
func (c *Client) EmbedContent(ctx context.Context, req embedding.Request) ([][]float32, error) {
	params := openaisdk.EmbeddingNewParams{
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: req.Texts},
		Model:          openaisdk.EmbeddingModel(c.model),
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	}
	if req.OutputDimensionality > 0 {
		params.Dimensions = param.NewOpt(int64(req.OutputDimensionality))
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeProviderUpstreamFailure,
			"openai embeddings: embedding %d texts with %s", len(req.Texts), c.model)
	}

	return toFloat32(resp.Data, len(req.Texts))
}

func (c *Client) Close() error { return nil }

// toFloat32 places each embedding at its reported index.
func toFloat32(data []openaisdk.Embedding, want int) ([][]float32, error) {
	if len(data) != want {
		return nil, sigilerr.Errorf(sigilerr.CodeEmbeddingResponseInvalid,
			"openai embeddings: got %d embeddings for %d texts", len(data), want)
	}

	out := make([][]float32, want)
	for _, d := range data {
		idx := int(d.Index)
		if idx < 0 || idx >= want || out[idx] != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeEmbeddingResponseInvalid,
				"openai embeddings: unexpected embedding index %d", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[idx] = vec
	}
	return out, nil
}
