// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package rag wires the embedding, vector store and synthesis services into
// the query and indexing pipelines.
package rag

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sigil-dev/docintel/internal/embedding"
	"github.com/sigil-dev/docintel/internal/evaluation"
	"github.com/sigil-dev/docintel/internal/scanner"
	"github.com/sigil-dev/docintel/internal/store"
	"github.com/sigil-dev/docintel/internal/synthesis"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Mode selects the synthesis path.
type Mode string

const (
	ModeBlocking Mode = "blocking"
	ModeAgentic  Mode = "agentic"
)

// DefaultNResults is the retrieval depth when QueryOptions.NResults is zero.
const DefaultNResults = 3

// QueryOptions tunes one Ask call.
type QueryOptions struct {
	NResults        int
	Cite            bool
	Mode            Mode
	MaxOutputTokens int
}

// QueryHooks observe pipeline progress. Each hook fires once, after its
// stage succeeds.
type QueryHooks struct {
	OnEmbed      func(vector []float32)
	OnRetrieve   func(hits []store.Hit)
	OnSynthesize func(res *synthesis.Result)
}

// Answer is the outcome of one question.
type Answer struct {
	Text       string            `json:"answer"`
	Hits       []store.Hit       `json:"hits"`
	Evaluation evaluation.Report `json:"evaluation,omitempty"`
	Prompt     string            `json:"prompt,omitempty"`
	Model      string            `json:"model,omitempty"`
}

// Querier answers questions against one collection. It runs embed, retrieve
// and synthesize in order with no retries; stage errors are returned as-is.
type Querier struct {
	embedder    embedding.Service
	store       store.VectorStore
	synthesizer synthesis.Service
	hooks       QueryHooks
	passages    *scanner.Filter
}

// NewQuerier creates a Querier. All three services are required.
func NewQuerier(emb embedding.Service, vs store.VectorStore, synth synthesis.Service) (*Querier, error) {
	if emb == nil || vs == nil || synth == nil {
		return nil, sigilerr.New(sigilerr.CodeConfigValidateInvalidValue,
			"rag: querier needs an embedding service, a vector store and a synthesis service")
	}
	return &Querier{embedder: emb, store: vs, synthesizer: synth}, nil
}

// SetHooks replaces the progress hooks.
func (q *Querier) SetHooks(h QueryHooks) { q.hooks = h }

// SetPassageFilter scans retrieved passages before they enter the prompt.
// Nil disables scanning.
func (q *Querier) SetPassageFilter(f *scanner.Filter) { q.passages = f }

// Ask answers question from the nearest stored passages.
func (q *Querier) Ask(ctx context.Context, question string, opts QueryOptions) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, sigilerr.New(sigilerr.CodeRAGInvalidInput, "rag: question is empty")
	}
	opts = withQueryDefaults(opts)
	if opts.Mode != ModeBlocking && opts.Mode != ModeAgentic {
		return nil, sigilerr.Errorf(sigilerr.CodeRAGInvalidInput, "rag: unknown synthesis mode %q", opts.Mode)
	}
	if opts.NResults < 0 {
		return nil, sigilerr.Errorf(sigilerr.CodeRAGInvalidInput, "rag: n_results must be positive, got %d", opts.NResults)
	}

	vectors, err := q.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, sigilerr.Errorf(sigilerr.CodeEmbeddingResponseInvalid,
			"rag: expected one query vector, got %d", len(vectors))
	}
	if q.hooks.OnEmbed != nil {
		q.hooks.OnEmbed(vectors[0])
	}

	hits, err := q.store.Query(ctx, vectors[0], opts.NResults)
	if err != nil {
		return nil, err
	}
	slog.Debug("retrieved passages", "collection", q.store.Collection(), "count", len(hits))
	for i := range hits {
		if hits[i].Document, err = q.passages.Apply(ctx, hits[i].ID, hits[i].Document); err != nil {
			return nil, err
		}
	}
	if q.hooks.OnRetrieve != nil {
		q.hooks.OnRetrieve(hits)
	}

	prompt := BuildPrompt(question, hits, opts.Cite)
	var res *synthesis.Result
	switch opts.Mode {
	case ModeAgentic:
		res, err = q.synthesizer.SynthesizeAgentic(ctx, prompt, opts.MaxOutputTokens).Wait(ctx)
	default:
		res, err = q.synthesizer.Synthesize(ctx, prompt, opts.MaxOutputTokens)
	}
	if err != nil {
		return nil, err
	}
	if q.hooks.OnSynthesize != nil {
		q.hooks.OnSynthesize(res)
	}

	return &Answer{
		Text:       res.Answer,
		Hits:       hits,
		Evaluation: res.Evaluation,
		Prompt:     prompt,
		Model:      res.Model,
	}, nil
}

func withQueryDefaults(opts QueryOptions) QueryOptions {
	if opts.NResults == 0 {
		opts.NResults = DefaultNResults
	}
	if opts.Mode == "" {
		opts.Mode = ModeBlocking
	}
	if opts.MaxOutputTokens == 0 {
		opts.MaxOutputTokens = synthesis.DefaultMaxOutputTokens
	}
	return opts
}
