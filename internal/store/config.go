// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

const (
	DefaultBackend    = "sqlite"
	DefaultCollection = "doc_intel_eval"
	DefaultPath       = "vectors.db"
)

// Config controls which backend the store factory opens and where.
type Config struct {
	Backend    string // "sqlite", "memory", "qdrant" or "pgvector"
	Collection string
	Dimensions int

	Path   string // sqlite database file
	URL    string // qdrant gRPC address, host:port
	APIKey string // qdrant cloud key
	DSN    string // postgres connection string
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	return c
}
