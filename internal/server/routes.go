// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sigil-dev/docintel/internal/rag"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
	"github.com/sigil-dev/docintel/pkg/health"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "query",
		Method:      http.MethodPost,
		Path:        "/api/v1/query",
		Summary:     "Answer a question from the indexed documents",
		Tags:        []string{"query"},
	}, s.handleQuery)

	huma.Register(s.api, huma.Operation{
		OperationID:   "index",
		Method:        http.MethodPost,
		Path:          "/api/v1/index",
		Summary:       "Embed and store chunks",
		Tags:          []string{"index"},
		DefaultStatus: http.StatusOK,
	}, s.handleIndex)

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-collection",
		Method:        http.MethodDelete,
		Path:          "/api/v1/collections/{name}",
		Summary:       "Delete a collection",
		Tags:          []string{"index"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Collection and provider status",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Question        string `json:"question" minLength:"1" maxLength:"4000" doc:"Natural-language question"`
	NResults        int    `json:"n_results,omitempty" minimum:"0" maximum:"50" doc:"Passages to retrieve; 0 uses the server default"`
	Cite            *bool  `json:"cite,omitempty" doc:"Ask the model to cite passages by [n]"`
	Agentic         *bool  `json:"agentic,omitempty" doc:"Use the tool-using agent instead of a single model call"`
	MaxOutputTokens int    `json:"max_output_tokens,omitempty" minimum:"0" maximum:"8192" doc:"Answer length cap; 0 uses the server default"`
	IncludePrompt   bool   `json:"include_prompt,omitempty" doc:"Return the rendered prompt"`
}

type queryInput struct {
	Body QueryRequest
}

type queryOutput struct {
	Body *rag.Answer
}

// IndexRequest is the body of POST /api/v1/index.
type IndexRequest struct {
	Chunks []rag.ChunkRecord `json:"chunks" minItems:"1" doc:"Chunks to embed and upsert"`
}

type indexInput struct {
	Body IndexRequest
}

// IndexResponse reports an index run.
type IndexResponse struct {
	Indexed    int    `json:"indexed" doc:"Chunks embedded and saved"`
	Collection string `json:"collection,omitempty"`
}

type indexOutput struct {
	Body IndexResponse
}

type deleteCollectionInput struct {
	Name string `path:"name" doc:"Collection name"`
}

// StatusResponse describes the active collection and chat providers.
type StatusResponse struct {
	Collection string        `json:"collection"`
	Count      int           `json:"count"`
	Dimensions int           `json:"dimensions"`
	Providers  health.Report `json:"providers,omitempty"`
	// Degraded lists providers currently in failure cooldown.
	Degraded []string `json:"degraded,omitempty"`
}

type statusOutput struct {
	Body StatusResponse
}

func unavailable(what string) error {
	return huma.Error503ServiceUnavailable(what + " is not configured")
}

// apiError maps a coded error onto an HTTP status.
func apiError(op string, err error) error {
	status := sigilerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "op", op, "code", sigilerr.CodeOf(err), "error", err)
	}
	return huma.NewError(status, err.Error())
}

func (s *Server) handleQuery(ctx context.Context, in *queryInput) (*queryOutput, error) {
	if s.svc.Query == nil {
		return nil, unavailable("query service")
	}

	opts := s.svc.Defaults
	if in.Body.NResults > 0 {
		opts.NResults = in.Body.NResults
	}
	if in.Body.MaxOutputTokens > 0 {
		opts.MaxOutputTokens = in.Body.MaxOutputTokens
	}
	if in.Body.Cite != nil {
		opts.Cite = *in.Body.Cite
	}
	if in.Body.Agentic != nil {
		opts.Mode = rag.ModeBlocking
		if *in.Body.Agentic {
			opts.Mode = rag.ModeAgentic
		}
	}

	ans, err := s.svc.Query.Ask(ctx, in.Body.Question, opts)
	if err != nil {
		return nil, apiError("query", err)
	}
	if !in.Body.IncludePrompt {
		ans.Prompt = ""
	}
	return &queryOutput{Body: ans}, nil
}

func (s *Server) handleIndex(ctx context.Context, in *indexInput) (*indexOutput, error) {
	if s.svc.Index == nil {
		return nil, unavailable("index service")
	}
	for i, c := range in.Body.Chunks {
		if c.ID == "" || c.Text == "" {
			return nil, huma.Error400BadRequest("chunks must have an id and text",
				&huma.ErrorDetail{Location: "body.chunks[" + strconv.Itoa(i) + "]", Message: "id and text are required"})
		}
	}

	n, err := s.svc.Index.Index(ctx, in.Body.Chunks)
	if err != nil {
		return nil, apiError("index", err)
	}
	out := &indexOutput{Body: IndexResponse{Indexed: n}}
	if s.svc.Collections != nil {
		out.Body.Collection = s.svc.Collections.Collection()
	}
	return out, nil
}

func (s *Server) handleDeleteCollection(ctx context.Context, in *deleteCollectionInput) (*struct{}, error) {
	if s.svc.Collections == nil {
		return nil, unavailable("vector store")
	}
	if err := s.svc.Collections.DeleteCollection(ctx, in.Name); err != nil {
		return nil, apiError("delete-collection", err)
	}
	slog.Info("collection deleted via api", "collection", in.Name)
	return nil, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	if s.svc.Collections == nil {
		return nil, unavailable("vector store")
	}
	count, err := s.svc.Collections.Count(ctx)
	if err != nil {
		return nil, apiError("status", err)
	}
	out := &statusOutput{Body: StatusResponse{
		Collection: s.svc.Collections.Collection(),
		Count:      count,
		Dimensions: s.svc.Collections.Dimensions(),
	}}
	if s.svc.ProviderHealth != nil {
		out.Body.Providers = s.svc.ProviderHealth()
		out.Body.Degraded = out.Body.Providers.Unavailable()
	}
	return out, nil
}
