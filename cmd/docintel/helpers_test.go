// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/docintel/internal/provider"
	"github.com/sigil-dev/docintel/internal/provider/providertest"
	"github.com/sigil-dev/docintel/internal/rag"
	"github.com/sigil-dev/docintel/internal/synthesis"
)

const baseConfig = `embeddings:
  provider: hashing
  dimensions: 1024
vector_store:
  type: sqlite
  path: {{dir}}/vectors.db
synthesis:
  model: google/test-model
evaluation:
  evaluators: []
chunking:
  chunk_size: 40
  chunk_overlap: 0
providers:
  google:
    api_key: test-key
ingest:
  output: {{dir}}/chunks.jsonl
`

// writeConfig writes baseConfig plus extra into a temp dir and returns the
// config path and the dir. ingest is the last section so extra can extend it.
func writeConfig(t *testing.T, extra string) (path, dir string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("HOME", dir)
	path = filepath.Join(dir, "docintel.yaml")
	body := strings.ReplaceAll(baseConfig, "{{dir}}", dir) + extra
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path, dir
}

// extractive answers with the first passage, or the not-found phrase.
func extractive() *providertest.Provider {
	return providertest.NewFunc("google", func(req provider.ChatRequest) providertest.Reply {
		passages := synthesis.ParsePassages(req.Messages[0].Content)
		if len(passages) == 0 {
			return providertest.Reply{Text: rag.NotFound}
		}
		_, text, _ := strings.Cut(passages[0], ": ")
		return providertest.Reply{Text: text + " [1]"}
	})
}

// useFakeProvider routes the google factory to fake for the test.
func useFakeProvider(t *testing.T, fake *providertest.Provider) {
	t.Helper()
	old := builtinProviderFactories
	builtinProviderFactories = map[string]providerFactory{
		"google": func(string, string) (provider.Provider, error) { return fake, nil },
	}
	t.Cleanup(func() { builtinProviderFactories = old })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}
