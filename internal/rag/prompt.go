// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package rag

import (
	"strconv"
	"strings"

	"github.com/sigil-dev/docintel/internal/store"
)

// NotFound is the answer the prompt asks for when the passages do not help.
const NotFound = "Answer not found."

const citeInstruction = "Cite the passages you use by their [n] reference."

// BuildPrompt renders the grounded prompt for question over hits, keeping the
// store's nearest-first order. Zero hits yield an empty passage block.
func BuildPrompt(question string, hits []store.Hit, cite bool) string {
	var b strings.Builder
	b.WriteString("Answer using only the passages.\n")
	if cite {
		b.WriteString(citeInstruction)
		b.WriteString("\n")
	}
	b.WriteString("Query:\n")
	b.WriteString(question)
	b.WriteString("\nPassages:\n")
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("] ")
		b.WriteString(h.Source())
		b.WriteString(": ")
		b.WriteString(h.Document)
	}
	if len(hits) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("If not found, say '" + NotFound + "'")
	return b.String()
}
