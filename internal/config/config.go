// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package config loads docintel configuration from YAML, environment
// variables (prefix DOCINTEL_) and defaults.
package config

import (
	"net"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/sigil-dev/docintel/internal/evaluation"
	"github.com/sigil-dev/docintel/internal/provider"
	"github.com/sigil-dev/docintel/internal/scanner"
	"github.com/sigil-dev/docintel/internal/store"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Closed sets of provider and backend tags.
var (
	EmbeddingProviders = []string{"google", "openai", "openai_compat", "hashing"}
	VectorStoreTypes   = []string{"sqlite", "memory", "qdrant", "pgvector"}
	ChatProviders      = []string{string(provider.ProviderGoogle), string(provider.ProviderOpenAI), string(provider.ProviderAnthropic)}
	LogLevels          = []string{"debug", "info", "warn", "error"}
	LogFormats         = []string{"text", "json"}
)

// Config is the top-level docintel configuration.
type Config struct {
	Embeddings  EmbeddingsConfig          `mapstructure:"embeddings" yaml:"embeddings"`
	VectorStore VectorStoreConfig         `mapstructure:"vector_store" yaml:"vector_store"`
	Synthesis   SynthesisConfig           `mapstructure:"synthesis" yaml:"synthesis"`
	Evaluation  EvaluationConfig          `mapstructure:"evaluation" yaml:"evaluation"`
	Query       QueryConfig               `mapstructure:"query" yaml:"query"`
	Ingest      IngestConfig              `mapstructure:"ingest" yaml:"ingest"`
	Chunking    ChunkingConfig            `mapstructure:"chunking" yaml:"chunking"`
	Providers   map[string]ProviderConfig `mapstructure:"providers" yaml:"providers,omitempty"`
	Server      ServerConfig              `mapstructure:"server" yaml:"server"`
	Logging     LoggingConfig             `mapstructure:"logging" yaml:"logging"`
}

// EmbeddingsConfig selects and tunes the embedding provider.
type EmbeddingsConfig struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"`
	Model             string  `mapstructure:"model" yaml:"model,omitempty"`
	Dimensions        int     `mapstructure:"dimensions" yaml:"dimensions"`
	TaskType          string  `mapstructure:"task_type" yaml:"task_type"`
	BatchSize         int     `mapstructure:"batch_size" yaml:"batch_size"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second,omitempty"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// VectorStoreConfig selects the vector store backend.
type VectorStoreConfig struct {
	Type           string `mapstructure:"type" yaml:"type"`
	CollectionName string `mapstructure:"collection_name" yaml:"collection_name"`
	Path           string `mapstructure:"path" yaml:"path,omitempty"`
	URL            string `mapstructure:"url" yaml:"url,omitempty"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	DSN            string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// SynthesisConfig controls answer generation.
type SynthesisConfig struct {
	Model           string   `mapstructure:"model" yaml:"model"`
	Failover        []string `mapstructure:"failover" yaml:"failover,omitempty"`
	MaxOutputTokens int      `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	Agentic         bool     `mapstructure:"agentic" yaml:"agentic"`
	MaxAgentTurns   int      `mapstructure:"max_agent_turns" yaml:"max_agent_turns"`
}

// EvaluationConfig lists the evaluators run after each answer. Model is the
// judge; empty uses synthesis.model.
type EvaluationConfig struct {
	Evaluators []string `mapstructure:"evaluators" yaml:"evaluators"`
	Model      string   `mapstructure:"model" yaml:"model,omitempty"`
}

// QueryConfig holds retrieval defaults.
type QueryConfig struct {
	NResults int  `mapstructure:"n_results" yaml:"n_results"`
	Cite     bool `mapstructure:"cite" yaml:"cite"`
	// PassageScan is the scanner mode for retrieved passages.
	PassageScan string `mapstructure:"passage_scan" yaml:"passage_scan"`
}

// IngestConfig lists source documents and where chunks are written.
type IngestConfig struct {
	Sources []SourceConfig `mapstructure:"sources" yaml:"sources"`
	Output  string         `mapstructure:"output" yaml:"output"`
	Workers int            `mapstructure:"workers" yaml:"workers,omitempty"`
	// SecretScan is the scanner mode for chunk text.
	SecretScan string `mapstructure:"secret_scan" yaml:"secret_scan"`
}

type SourceConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type ChunkingConfig struct {
	ChunkSize    int `mapstructure:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" yaml:"chunk_overlap"`
}

// ProviderConfig holds credentials and endpoint for a model provider.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

type ServerConfig struct {
	Listen      string   `mapstructure:"listen" yaml:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins,omitempty"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("embeddings.provider", "google")
	v.SetDefault("embeddings.dimensions", 256)
	v.SetDefault("embeddings.task_type", "semantic_similarity")
	v.SetDefault("embeddings.batch_size", 100)
	v.SetDefault("vector_store.type", "sqlite")
	v.SetDefault("vector_store.collection_name", store.DefaultCollection)
	v.SetDefault("vector_store.path", "data/vectors.db")
	v.SetDefault("synthesis.model", "google/gemini-2.5-flash-lite")
	v.SetDefault("synthesis.max_output_tokens", 512)
	v.SetDefault("synthesis.agentic", false)
	v.SetDefault("synthesis.max_agent_turns", 5)
	v.SetDefault("evaluation.evaluators", []string{evaluation.Faithfulness})
	v.SetDefault("query.n_results", 3)
	v.SetDefault("query.cite", false)
	v.SetDefault("query.passage_scan", string(scanner.ModeFlag))
	v.SetDefault("ingest.output", "data/chunks.jsonl")
	v.SetDefault("ingest.secret_scan", string(scanner.ModeRedact))
	v.SetDefault("chunking.chunk_size", 600)
	v.SetDefault("chunking.chunk_overlap", 150)
	v.SetDefault("server.listen", "127.0.0.1:8420")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// SetupEnv binds DOCINTEL_* environment variables, with "." in keys mapped
// to "_".
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("DOCINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads path (optional) over defaults and environment, then validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "reading config %s: %v", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v. All
// validation problems are reported together.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeConfigParseInvalidFormat, "decoding config: %v", err)
	}
	cfg.normalize()

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return nil, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"invalid config: %s", strings.Join(msgs, "; "))
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	// "google.genai" is the historical tag for the Gemini embedder.
	if c.Embeddings.Provider == "google.genai" {
		c.Embeddings.Provider = "google"
	}
	c.Embeddings.Provider = strings.ToLower(c.Embeddings.Provider)
	c.VectorStore.Type = strings.ToLower(c.VectorStore.Type)
}

// Validate returns every problem found.
func (c *Config) Validate() []error {
	var errs []error
	errs = append(errs, c.validateEmbeddings()...)
	errs = append(errs, c.validateVectorStore()...)
	errs = append(errs, c.validateSynthesis()...)
	errs = append(errs, c.validateRetrieval()...)
	errs = append(errs, c.validateServer()...)
	return errs
}

func invalid(format string, args ...any) error {
	return sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func oneOf(set []string) string { return "[" + strings.Join(set, ", ") + "]" }

func (c *Config) validateEmbeddings() []error {
	var errs []error
	e := c.Embeddings
	if !slices.Contains(EmbeddingProviders, e.Provider) {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigProviderUnsupported,
			"config: embeddings.provider must be one of %s, got %q", oneOf(EmbeddingProviders), e.Provider))
	}
	if e.Provider == "openai_compat" && (e.Model == "" || e.BaseURL == "") {
		errs = append(errs, invalid("embeddings.model and embeddings.base_url are required for openai_compat"))
	}
	if e.Dimensions <= 0 {
		errs = append(errs, invalid("embeddings.dimensions must be greater than 0, got %d", e.Dimensions))
	}
	if e.BatchSize <= 0 {
		errs = append(errs, invalid("embeddings.batch_size must be greater than 0, got %d", e.BatchSize))
	}
	if e.RequestsPerSecond < 0 {
		errs = append(errs, invalid("embeddings.requests_per_second must not be negative, got %g", e.RequestsPerSecond))
	}
	return errs
}

func (c *Config) validateVectorStore() []error {
	var errs []error
	vs := c.VectorStore
	if !slices.Contains(VectorStoreTypes, vs.Type) {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigBackendUnsupported,
			"config: vector_store.type must be one of %s, got %q", oneOf(VectorStoreTypes), vs.Type))
	}
	if err := store.ValidateCollectionName(vs.CollectionName); err != nil {
		errs = append(errs, invalid("vector_store.collection_name %q: %v", vs.CollectionName, err))
	}
	switch vs.Type {
	case "sqlite":
		if vs.Path == "" {
			errs = append(errs, invalid("vector_store.path is required for sqlite"))
		}
	case "qdrant":
		if vs.URL == "" {
			errs = append(errs, invalid("vector_store.url is required for qdrant"))
		}
	case "pgvector":
		if vs.DSN == "" {
			errs = append(errs, invalid("vector_store.dsn is required for pgvector"))
		}
	}
	return errs
}

func (c *Config) validateSynthesis() []error {
	var errs []error
	s := c.Synthesis
	errs = append(errs, validateModelRef("synthesis.model", s.Model)...)
	for i, ref := range s.Failover {
		errs = append(errs, validateModelRef("synthesis.failover["+strconv.Itoa(i)+"]", ref)...)
	}
	if s.MaxOutputTokens <= 0 {
		errs = append(errs, invalid("synthesis.max_output_tokens must be greater than 0, got %d", s.MaxOutputTokens))
	}
	if s.MaxAgentTurns <= 0 {
		errs = append(errs, invalid("synthesis.max_agent_turns must be greater than 0, got %d", s.MaxAgentTurns))
	}

	for i, name := range c.Evaluation.Evaluators {
		if !evaluation.Known(name) {
			errs = append(errs, invalid("evaluation.evaluators[%d] must be one of %s, got %q",
				i, oneOf(evaluation.Names()), name))
		}
	}
	if c.Evaluation.Model != "" {
		errs = append(errs, validateModelRef("evaluation.model", c.Evaluation.Model)...)
	}
	return errs
}

func validateModelRef(key, ref string) []error {
	name, model := provider.ParseRef(ref)
	if name == "" || model == "" {
		return []error{invalid("%s must be in \"provider/model\" format, got %q", key, ref)}
	}
	if !slices.Contains(ChatProviders, name) {
		return []error{sigilerr.Errorf(sigilerr.CodeConfigProviderUnsupported,
			"config: %s provider must be one of %s, got %q", key, oneOf(ChatProviders), name)}
	}
	return nil
}

func (c *Config) validateRetrieval() []error {
	var errs []error
	if c.Query.NResults <= 0 {
		errs = append(errs, invalid("query.n_results must be greater than 0, got %d", c.Query.NResults))
	}
	ch := c.Chunking
	if ch.ChunkSize <= 0 {
		errs = append(errs, invalid("chunking.chunk_size must be greater than 0, got %d", ch.ChunkSize))
	}
	if ch.ChunkOverlap < 0 || (ch.ChunkSize > 0 && ch.ChunkOverlap >= ch.ChunkSize) {
		errs = append(errs, invalid("chunking.chunk_overlap must be in [0, chunk_size), got %d", ch.ChunkOverlap))
	}
	if c.Ingest.Workers < 0 {
		errs = append(errs, invalid("ingest.workers must not be negative, got %d", c.Ingest.Workers))
	}
	if _, err := scanner.ParseMode(c.Ingest.SecretScan); err != nil {
		errs = append(errs, invalid("ingest.secret_scan must be one of %s, got %q", oneOf(scanner.Modes), c.Ingest.SecretScan))
	}
	if _, err := scanner.ParseMode(c.Query.PassageScan); err != nil {
		errs = append(errs, invalid("query.passage_scan must be one of %s, got %q", oneOf(scanner.Modes), c.Query.PassageScan))
	}
	for i, src := range c.Ingest.Sources {
		if src.Path == "" {
			errs = append(errs, invalid("ingest.sources[%d].path must not be empty", i))
		}
	}
	return errs
}

func (c *Config) validateServer() []error {
	var errs []error
	if _, port, err := net.SplitHostPort(c.Server.Listen); err != nil {
		errs = append(errs, invalid("server.listen must be a host:port address, got %q", c.Server.Listen))
	} else if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		errs = append(errs, invalid("server.listen port must be between 1 and 65535, got %q", port))
	}
	if !slices.Contains(LogLevels, strings.ToLower(c.Logging.Level)) {
		errs = append(errs, invalid("logging.level must be one of %s, got %q", oneOf(LogLevels), c.Logging.Level))
	}
	if !slices.Contains(LogFormats, strings.ToLower(c.Logging.Format)) {
		errs = append(errs, invalid("logging.format must be one of %s, got %q", oneOf(LogFormats), c.Logging.Format))
	}
	return errs
}

// envKeys are consulted, in order, when a provider has no api_key.
var envKeys = map[string][]string{
	string(provider.ProviderGoogle):    {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	string(provider.ProviderOpenAI):    {"OPENAI_API_KEY"},
	string(provider.ProviderAnthropic): {"ANTHROPIC_API_KEY"},
}

// APIKey returns the configured key for name, falling back to the provider's
// conventional environment variables.
func (c *Config) APIKey(name string) string {
	if p, ok := c.Providers[name]; ok && p.APIKey != "" {
		return p.APIKey
	}
	for _, env := range envKeys[name] {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}

// Endpoint returns the configured base URL override for name.
func (c *Config) Endpoint(name string) string {
	return c.Providers[name].Endpoint
}

// SourcePaths returns the ingest source paths in order.
func (c *Config) SourcePaths() []string {
	paths := make([]string, 0, len(c.Ingest.Sources))
	for _, s := range c.Ingest.Sources {
		paths = append(paths, s.Path)
	}
	return paths
}
