// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sigil-dev/docintel/internal/config"
	"github.com/sigil-dev/docintel/internal/embedding"
	"github.com/sigil-dev/docintel/internal/embedding/compat"
	googleemb "github.com/sigil-dev/docintel/internal/embedding/google"
	"github.com/sigil-dev/docintel/internal/embedding/hashing"
	openaiemb "github.com/sigil-dev/docintel/internal/embedding/openai"
	"github.com/sigil-dev/docintel/internal/evaluation"
	"github.com/sigil-dev/docintel/internal/provider"
	anthropicprov "github.com/sigil-dev/docintel/internal/provider/anthropic"
	googleprov "github.com/sigil-dev/docintel/internal/provider/google"
	openaiprov "github.com/sigil-dev/docintel/internal/provider/openai"
	"github.com/sigil-dev/docintel/internal/rag"
	"github.com/sigil-dev/docintel/internal/scanner"
	"github.com/sigil-dev/docintel/internal/server"
	"github.com/sigil-dev/docintel/internal/store"
	_ "github.com/sigil-dev/docintel/internal/store/memory"   // register memory backend
	_ "github.com/sigil-dev/docintel/internal/store/pgvector" // register pgvector backend
	_ "github.com/sigil-dev/docintel/internal/store/qdrant"   // register qdrant backend
	_ "github.com/sigil-dev/docintel/internal/store/sqlite"   // register sqlite backend
	"github.com/sigil-dev/docintel/internal/synthesis"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Pipeline holds the wired services behind the query and index commands.
type Pipeline struct {
	Embedder    *embedding.Embedder
	Store       store.VectorStore
	Registry    *provider.Registry
	Synthesizer *synthesis.Synthesizer
	Querier     *rag.Querier
	Indexer     *rag.Indexer
	Defaults    rag.QueryOptions
}

// pipelineParts selects what WirePipeline builds. Indexing needs no chat
// provider; collection commands need only the store.
type pipelineParts int

const (
	partStore pipelineParts = 1 << iota
	partEmbedder
	partSynthesis
)

const (
	storeOnly = partStore
	indexOnly = partStore | partEmbedder
	fullStack = partStore | partEmbedder | partSynthesis
)

// embedderFactory builds an embedding client from the config.
type embedderFactory func(cfg *config.Config) (embedding.Client, error)

// embedderFactories maps embeddings.provider to a constructor. Declared as a
// variable so tests can inject failing factories.
var embedderFactories = map[string]embedderFactory{
	"google": func(cfg *config.Config) (embedding.Client, error) {
		return googleemb.New(googleemb.Config{
			APIKey:  cfg.APIKey("google"),
			Model:   cfg.Embeddings.Model,
			BaseURL: cfg.Embeddings.BaseURL,
		})
	},
	"openai": func(cfg *config.Config) (embedding.Client, error) {
		return openaiemb.New(openaiemb.Config{
			APIKey:  cfg.APIKey("openai"),
			Model:   cfg.Embeddings.Model,
			BaseURL: cfg.Embeddings.BaseURL,
		})
	},
	"openai_compat": func(cfg *config.Config) (embedding.Client, error) {
		return compat.New(compat.Config{
			APIKey:  cfg.APIKey("openai_compat"),
			Model:   cfg.Embeddings.Model,
			BaseURL: cfg.Embeddings.BaseURL,
		})
	},
	"hashing": func(*config.Config) (embedding.Client, error) {
		return hashing.New(), nil
	},
}

// providerFactory builds a chat provider from its API key and endpoint.
type providerFactory func(apiKey, endpoint string) (provider.Provider, error)

// builtinProviderFactories maps provider names to their constructors.
// Declared as a variable so tests can inject fakes.
var builtinProviderFactories = map[string]providerFactory{
	string(provider.ProviderAnthropic): func(key, endpoint string) (provider.Provider, error) {
		return anthropicprov.New(anthropicprov.Config{APIKey: key, BaseURL: endpoint})
	},
	string(provider.ProviderGoogle): func(key, endpoint string) (provider.Provider, error) {
		return googleprov.New(googleprov.Config{APIKey: key, BaseURL: endpoint})
	},
	string(provider.ProviderOpenAI): func(key, endpoint string) (provider.Provider, error) {
		return openaiprov.New(openaiprov.Config{APIKey: key, BaseURL: endpoint})
	},
}

// WirePipeline builds the parts of the pipeline named by parts. On error
// everything already opened is closed.
func WirePipeline(cfg *config.Config, parts pipelineParts) (_ *Pipeline, err error) {
	p := &Pipeline{
		Defaults: rag.QueryOptions{
			NResults:        cfg.Query.NResults,
			Cite:            cfg.Query.Cite,
			Mode:            rag.ModeBlocking,
			MaxOutputTokens: cfg.Synthesis.MaxOutputTokens,
		},
	}
	if cfg.Synthesis.Agentic {
		p.Defaults.Mode = rag.ModeAgentic
	}
	defer func() {
		if err != nil {
			_ = p.Close()
		}
	}()

	if parts&partStore != 0 {
		if p.Store, err = openStore(cfg); err != nil {
			return nil, err
		}
	}
	if parts&partEmbedder != 0 {
		if p.Embedder, err = newEmbedder(cfg); err != nil {
			return nil, err
		}
		if p.Indexer, err = rag.NewIndexer(p.Embedder, p.Store, embedding.BatchOptions{}); err != nil {
			return nil, err
		}
	}
	if parts&partSynthesis != 0 {
		if p.Registry, err = newRegistry(cfg); err != nil {
			return nil, err
		}
		if p.Synthesizer, err = newSynthesizer(cfg, p.Registry); err != nil {
			return nil, err
		}
		if p.Querier, err = rag.NewQuerier(p.Embedder, p.Store, p.Synthesizer); err != nil {
			return nil, err
		}
		filter, err := scanFilter(scanner.StagePassage, cfg.Query.PassageScan)
		if err != nil {
			return nil, err
		}
		p.Querier.SetPassageFilter(filter)
	}
	return p, nil
}

// scanFilter builds the content filter for stage; mode "off" yields nil.
func scanFilter(stage scanner.Stage, mode string) (*scanner.Filter, error) {
	m, err := scanner.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return scanner.NewFilter(scanner.NewDefault(), stage, m), nil
}

func openStore(cfg *config.Config) (store.VectorStore, error) {
	vs := cfg.VectorStore
	if vs.Type == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(vs.Path), 0o755); err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeCLISetupFailure, "creating vector store directory: %v", err)
		}
	}
	return store.New(store.Config{
		Backend:    vs.Type,
		Collection: vs.CollectionName,
		Dimensions: cfg.Embeddings.Dimensions,
		Path:       vs.Path,
		URL:        vs.URL,
		APIKey:     vs.APIKey,
		DSN:        vs.DSN,
	})
}

func newEmbedder(cfg *config.Config) (*embedding.Embedder, error) {
	factory, ok := embedderFactories[cfg.Embeddings.Provider]
	if !ok {
		return nil, sigilerr.New(sigilerr.CodeConfigProviderUnsupported,
			"unsupported embedding provider: "+cfg.Embeddings.Provider,
			sigilerr.FieldProvider(cfg.Embeddings.Provider))
	}
	client, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	return embedding.New(client, embedding.Options{
		TaskType:          cfg.Embeddings.TaskType,
		Dimensions:        cfg.Embeddings.Dimensions,
		BatchSize:         cfg.Embeddings.BatchSize,
		RequestsPerSecond: cfg.Embeddings.RequestsPerSecond,
	})
}

// newRegistry registers every chat provider the synthesis and evaluation
// refs name, then sets the default and failover chain. A referenced
// provider without a key is a config error.
func newRegistry(cfg *config.Config) (*provider.Registry, error) {
	reg := provider.NewRegistry()

	refs := append([]string{cfg.Synthesis.Model}, cfg.Synthesis.Failover...)
	if cfg.Evaluation.Model != "" {
		refs = append(refs, cfg.Evaluation.Model)
	}
	for _, ref := range refs {
		name, _ := provider.ParseRef(ref)
		if _, err := reg.Get(name); err == nil {
			continue
		}
		factory, ok := builtinProviderFactories[name]
		if !ok {
			_ = reg.Close()
			return nil, sigilerr.New(sigilerr.CodeConfigProviderUnsupported,
				"unsupported chat provider: "+name, sigilerr.FieldProvider(name))
		}
		p, err := factory(cfg.APIKey(name), cfg.Endpoint(name))
		if err != nil {
			_ = reg.Close()
			return nil, err
		}
		reg.Register(name, p)
		slog.Debug("registered provider", "provider", name)
	}

	if err := reg.SetDefault(cfg.Synthesis.Model); err != nil {
		_ = reg.Close()
		return nil, err
	}
	if len(cfg.Synthesis.Failover) > 0 {
		if err := reg.SetFailover(cfg.Synthesis.Failover); err != nil {
			_ = reg.Close()
			return nil, err
		}
	}
	return reg, nil
}

func newSynthesizer(cfg *config.Config, reg *provider.Registry) (*synthesis.Synthesizer, error) {
	evaluators, err := evaluation.NewAll(cfg.Evaluation.Evaluators, reg, cfg.Evaluation.Model)
	if err != nil {
		return nil, err
	}
	return synthesis.New(reg, synthesis.Options{
		Model:         cfg.Synthesis.Model,
		MaxAgentTurns: cfg.Synthesis.MaxAgentTurns,
		Evaluators:    evaluators,
	})
}

// Services adapts the pipeline to the HTTP server.
func (p *Pipeline) Services() *server.Services {
	svc := &server.Services{Defaults: p.Defaults}
	if p.Querier != nil {
		svc.Query = p.Querier
	}
	if p.Indexer != nil {
		svc.Index = p.Indexer
	}
	if p.Store != nil {
		svc.Collections = p.Store
	}
	if p.Registry != nil {
		svc.ProviderHealth = p.Registry.Health
	}
	return svc
}

// Close releases every opened service. The synthesizer owns the registry.
func (p *Pipeline) Close() error {
	var errs []error
	if p.Synthesizer != nil {
		errs = append(errs, p.Synthesizer.Close())
	} else if p.Registry != nil {
		errs = append(errs, p.Registry.Close())
	}
	if p.Embedder != nil {
		errs = append(errs, p.Embedder.Close())
	}
	if p.Store != nil {
		errs = append(errs, p.Store.Close())
	}
	return errors.Join(errs...)
}
