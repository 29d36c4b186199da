// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package rag

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// ChunkRecord is one unit of text to be indexed.
type ChunkRecord struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	Source        string `json:"source,omitempty"`
	SequenceIndex int    `json:"sequence_index,omitempty"`
}

const maxChunkLine = 16 << 20

// ReadChunks decodes a JSON Lines chunk file. Blank lines are skipped.
func ReadChunks(r io.Reader) ([]ChunkRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxChunkLine)

	var (
		chunks []ChunkRecord
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var c ChunkRecord
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeRAGInvalidInput, "chunk file line %d: %v", lineNo, err)
		}
		if c.ID == "" || c.Text == "" {
			return nil, sigilerr.Errorf(sigilerr.CodeRAGInvalidInput, "chunk file line %d: id and text are required", lineNo)
		}
		chunks = append(chunks, c)
	}
	if err := sc.Err(); err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeRAGChunkFileFailure, "reading chunk file")
	}
	return chunks, nil
}

// WriteChunks encodes chunks as JSON Lines.
func WriteChunks(w io.Writer, chunks []ChunkRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range chunks {
		if err := enc.Encode(&chunks[i]); err != nil {
			return sigilerr.Wrapf(err, sigilerr.CodeRAGChunkFileFailure, "writing chunk %q", chunks[i].ID)
		}
	}
	return nil
}

// ReadChunkFile opens path and reads it with ReadChunks.
func ReadChunkFile(path string) ([]ChunkRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeRAGChunkFileFailure, "opening chunk file %s", path)
	}
	defer f.Close() //nolint:errcheck // read-only
	return ReadChunks(f)
}

// WriteChunkFile writes chunks to path, creating parent directories. The file
// is written to a temporary name first and renamed into place.
func WriteChunkFile(path string, chunks []ChunkRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeRAGChunkFileFailure, "creating directory for %s", path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".chunks-*.jsonl")
	if err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeRAGChunkFileFailure, "creating %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	bw := bufio.NewWriter(tmp)
	if err := WriteChunks(bw, chunks); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return sigilerr.Wrapf(err, sigilerr.CodeRAGChunkFileFailure, "writing %s", path)
	}
	if err := tmp.Close(); err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeRAGChunkFileFailure, "writing %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeRAGChunkFileFailure, "renaming into %s", path)
	}
	return nil
}
