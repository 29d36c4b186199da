// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package scanner_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/docintel/internal/scanner"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

func TestParseMode(t *testing.T) {
	for in, want := range map[string]scanner.Mode{
		"":         scanner.ModeOff,
		"off":      scanner.ModeOff,
		"FLAG":     scanner.ModeFlag,
		" redact ": scanner.ModeRedact,
		"block":    scanner.ModeBlock,
	} {
		got, err := scanner.ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := scanner.ParseMode("shred")
	require.Error(t, err)
	assert.True(t, sigilerr.IsConfigError(err))
}

const leaky = "Connect with postgres://app:s3cret@db:5432/main then run the job."

func TestFilter_Off(t *testing.T) {
	f := scanner.NewFilter(scanner.NewDefault(), scanner.StageDocument, scanner.ModeOff)
	assert.Nil(t, f)

	out, err := f.Apply(context.Background(), "a.txt", leaky)
	require.NoError(t, err)
	assert.Equal(t, leaky, out)
}

func TestFilter_Flag(t *testing.T) {
	f := scanner.NewFilter(scanner.NewDefault(), scanner.StageDocument, scanner.ModeFlag)
	out, err := f.Apply(context.Background(), "a.txt", leaky)
	require.NoError(t, err)
	assert.Equal(t, leaky, out)
}

func TestFilter_Redact(t *testing.T) {
	f := scanner.NewFilter(scanner.NewDefault(), scanner.StageDocument, scanner.ModeRedact)
	out, err := f.Apply(context.Background(), "a.txt", leaky)
	require.NoError(t, err)
	assert.Equal(t, "Connect with [REDACTED] then run the job.", out)
}

func TestFilter_RedactMergesOverlaps(t *testing.T) {
	// bearer_token and openai_legacy_key cover overlapping spans
	content := "Authorization: Bearer sk-" + strings.Repeat("A", 40) + " end"
	f := scanner.NewFilter(scanner.NewDefault(), scanner.StageDocument, scanner.ModeRedact)
	out, err := f.Apply(context.Background(), "a.txt", content)
	require.NoError(t, err)
	assert.Equal(t, "Authorization: [REDACTED] end", out)
}

func TestFilter_Block(t *testing.T) {
	f := scanner.NewFilter(scanner.NewDefault(), scanner.StageDocument, scanner.ModeBlock)
	_, err := f.Apply(context.Background(), "a.txt", leaky)
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeScannerContentBlocked))
	assert.Equal(t, 422, sigilerr.HTTPStatus(err))
	assert.Contains(t, err.Error(), "a.txt")

	out, err := f.Apply(context.Background(), "b.txt", "Nothing to see.")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to see.", out)
}
