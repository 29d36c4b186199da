// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package ingest_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/docintel/internal/ingest"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

func TestSentenceChunker_Validate(t *testing.T) {
	tests := []struct {
		name    string
		chunker ingest.SentenceChunker
		wantErr bool
	}{
		{"defaults", ingest.SentenceChunker{ChunkSize: ingest.DefaultChunkSize, ChunkOverlap: ingest.DefaultChunkOverlap}, false},
		{"no overlap", ingest.SentenceChunker{ChunkSize: 10}, false},
		{"zero size", ingest.SentenceChunker{}, true},
		{"negative overlap", ingest.SentenceChunker{ChunkSize: 10, ChunkOverlap: -1}, true},
		{"overlap equals size", ingest.SentenceChunker{ChunkSize: 10, ChunkOverlap: 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.chunker.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, sigilerr.IsInvalidInput(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSentenceChunker_PacksSentences(t *testing.T) {
	c := ingest.SentenceChunker{ChunkSize: 41}
	text := "Paris is in France.  Berlin is in Germany.\n\nRome is in Italy."

	got := c.Chunk(text)
	assert.Equal(t, []string{
		"Paris is in France. Berlin is in Germany.",
		"Rome is in Italy.",
	}, mustFit(t, got, 41))
}

func TestSentenceChunker_Overlap(t *testing.T) {
	c := ingest.SentenceChunker{ChunkSize: 30, ChunkOverlap: 12}
	got := c.Chunk("One two three. Four five. Six seven. Eight nine.")

	assert.Equal(t, []string{
		"One two three. Four five.",
		"Four five. Six seven.",
		"Six seven. Eight nine.",
	}, got)
}

func TestSentenceChunker_LongSentence(t *testing.T) {
	c := ingest.SentenceChunker{ChunkSize: 10}
	got := c.Chunk("alpha beta gamma delta supercalifragilistic")

	mustFit(t, got, 10)
	assert.Equal(t, "alpha beta", got[0])
	assert.Equal(t, "supercalifragilistic", strings.Join(got[len(got)-2:], ""))
}

func TestSentenceChunker_Empty(t *testing.T) {
	c := ingest.SentenceChunker{ChunkSize: 10}
	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk(" \n\t "))
}

func TestSentenceChunker_CountsRunes(t *testing.T) {
	c := ingest.SentenceChunker{ChunkSize: 12}
	got := c.Chunk("Ça va très. Où êtes-vous?")
	mustFit(t, got, 12)
	assert.Equal(t, []string{"Ça va très.", "Où", "êtes-vous?"}, got)
}

func mustFit(t *testing.T, chunks []string, limit int) []string {
	t.Helper()
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), limit, c)
		assert.NotEmpty(t, c)
	}
	return chunks
}
