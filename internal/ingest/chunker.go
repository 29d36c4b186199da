// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package ingest

import (
	"strings"
	"unicode/utf8"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

const (
	DefaultChunkSize    = 600
	DefaultChunkOverlap = 150
)

// SentenceChunker packs whole sentences into chunks of at most ChunkSize
// runes. Each new chunk starts with the trailing sentences of the previous
// one, up to ChunkOverlap runes. Sentences longer than ChunkSize are split at
// word boundaries.
type SentenceChunker struct {
	ChunkSize    int
	ChunkOverlap int
}

// Validate reports an invalid size/overlap pair.
func (c SentenceChunker) Validate() error {
	if c.ChunkSize <= 0 {
		return sigilerr.Errorf(sigilerr.CodeIngestInvalidInput, "chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return sigilerr.Errorf(sigilerr.CodeIngestInvalidInput,
			"chunk_overlap must be in [0, chunk_size), got %d with chunk_size %d", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// Chunk splits text. Whitespace is normalised to single spaces; empty text
// yields no chunks.
func (c SentenceChunker) Chunk(text string) []string {
	var (
		chunks []string
		cur    []string
		size   int
	)
	for _, s := range c.pieces(text) {
		n := utf8.RuneCountInString(s)
		if len(cur) > 0 && size+1+n > c.ChunkSize {
			chunks = append(chunks, strings.Join(cur, " "))
			cur = tail(cur, min(c.ChunkOverlap, c.ChunkSize-n-1))
			size = joinedLen(cur)
		}
		if len(cur) > 0 {
			size++
		}
		cur = append(cur, s)
		size += n
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}
	return chunks
}

// pieces returns the sentences of text, each at most ChunkSize runes.
func (c SentenceChunker) pieces(text string) []string {
	var out []string
	for _, s := range splitSentences(text) {
		if utf8.RuneCountInString(s) <= c.ChunkSize {
			out = append(out, s)
			continue
		}
		out = append(out, splitWords(s, c.ChunkSize)...)
	}
	return out
}

// tail returns the longest suffix of sentences whose joined length fits
// budget runes.
func tail(sentences []string, budget int) []string {
	start, size := len(sentences), 0
	for i := len(sentences) - 1; i >= 0; i-- {
		n := utf8.RuneCountInString(sentences[i])
		if start < len(sentences) {
			n++
		}
		if size+n > budget {
			break
		}
		size += n
		start = i
	}
	return append([]string(nil), sentences[start:]...)
}

func joinedLen(parts []string) int {
	if len(parts) == 0 {
		return 0
	}
	n := len(parts) - 1
	for _, p := range parts {
		n += utf8.RuneCountInString(p)
	}
	return n
}

// splitSentences breaks text after '.', '!' or '?' followed by whitespace.
func splitSentences(text string) []string {
	words := strings.Fields(text)
	var (
		out []string
		cur []string
	)
	for _, w := range words {
		cur = append(cur, w)
		if endsSentence(w) {
			out = append(out, strings.Join(cur, " "))
			cur = cur[:0]
		}
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}

func endsSentence(word string) bool {
	word = strings.TrimRight(word, `"')]`)
	if word == "" {
		return false
	}
	switch word[len(word)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// splitWords packs the words of s into pieces of at most limit runes, cutting
// single words that are longer than limit.
func splitWords(s string, limit int) []string {
	var (
		out  []string
		cur  strings.Builder
		size int
	)
	flush := func() {
		if size > 0 {
			out = append(out, cur.String())
			cur.Reset()
			size = 0
		}
	}
	for _, w := range strings.Fields(s) {
		for utf8.RuneCountInString(w) > limit {
			flush()
			r := []rune(w)
			out = append(out, string(r[:limit]))
			w = string(r[limit:])
		}
		if w == "" {
			continue
		}
		n := utf8.RuneCountInString(w)
		if size > 0 && size+1+n > limit {
			flush()
		}
		if size > 0 {
			cur.WriteByte(' ')
			size++
		}
		cur.WriteString(w)
		size += n
	}
	flush()
	return out
}
