// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package embedding

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Options configures an Embedder.
type Options struct {
	// TaskType and Dimensions are sent on every call unless a BatchOptions
	// overrides them.
	TaskType   string
	Dimensions int

	// BatchSize is the EmbedBatch chunk size when the caller passes zero.
	BatchSize int

	// RequestsPerSecond paces provider calls. Zero disables pacing.
	RequestsPerSecond float64
}

// Embedder adapts a provider Client to the Service contract. It owns batching
// and enforces the one-vector-per-input and fixed-dimension guarantees so
// every provider behaves the same way.
type Embedder struct {
	client  Client
	opts    Options
	limiter *rate.Limiter
}

var _ Service = (*Embedder)(nil)

// New wraps client. A nil client is a configuration error.
func New(client Client, opts Options) (*Embedder, error) {
	if client == nil {
		return nil, sigilerr.New(sigilerr.CodeConfigValidateInvalidValue, "embedding: no provider configured")
	}
	if opts.TaskType == "" {
		opts.TaskType = DefaultTaskType
	}
	if opts.Dimensions == 0 {
		opts.Dimensions = DefaultDimensions
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Dimensions < 0 || opts.BatchSize < 0 || opts.RequestsPerSecond < 0 {
		return nil, sigilerr.New(sigilerr.CodeConfigValidateInvalidValue,
			"embedding: dimensions, batch size and requests per second must not be negative",
			sigilerr.FieldProvider(client.Name()))
	}

	e := &Embedder{client: client, opts: opts}
	if opts.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return e, nil
}

func (e *Embedder) Dimensions() int { return e.opts.Dimensions }

// Provider returns the name of the wrapped client.
func (e *Embedder) Provider() string { return e.client.Name() }

func (e *Embedder) Close() error { return e.client.Close() }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return e.call(ctx, Request{
		Texts:                texts,
		TaskType:             e.opts.TaskType,
		OutputDimensionality: e.opts.Dimensions,
	})
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, opts BatchOptions) ([][]float32, error) {
	if opts.BatchSize < 0 || opts.OutputDimensionality < 0 {
		return nil, sigilerr.New(sigilerr.CodeEmbeddingInvalidInput,
			"embedding: batch size and output dimensionality must not be negative")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	size := opts.BatchSize
	if size == 0 {
		size = e.opts.BatchSize
	}
	taskType := opts.TaskType
	if taskType == "" {
		taskType = e.opts.TaskType
	}
	dims := opts.OutputDimensionality
	if dims == 0 {
		dims = e.opts.Dimensions
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vecs, err := e.call(ctx, Request{
			Texts:                texts[start:end],
			TaskType:             taskType,
			OutputDimensionality: dims,
		})
		if err != nil {
			return nil, sigilerr.With(err, sigilerr.Field("batch_start", start))
		}
		out = append(out, vecs...)
		slog.Debug("embedded batch",
			"provider", e.client.Name(),
			"start", start,
			"count", end-start,
			"total", len(texts),
		)
	}
	return out, nil
}

func (e *Embedder) call(ctx context.Context, req Request) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	vecs, err := e.client.EmbedContent(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, sigilerr.Wrapf(err, sigilerr.CodeProviderUpstreamFailure,
			"embedding: %s call failed", e.client.Name())
	}

	if len(vecs) != len(req.Texts) {
		return nil, sigilerr.Errorf(sigilerr.CodeEmbeddingResponseInvalid,
			"embedding: %s returned %d vectors for %d texts", e.client.Name(), len(vecs), len(req.Texts))
	}
	for i, v := range vecs {
		if len(v) != req.OutputDimensionality {
			return nil, sigilerr.Errorf(sigilerr.CodeEmbeddingResponseInvalid,
				"embedding: %s returned vector %d with %d dimensions, want %d",
				e.client.Name(), i, len(v), req.OutputDimensionality)
		}
	}
	return vecs, nil
}
