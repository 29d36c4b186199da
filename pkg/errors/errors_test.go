// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := sigilerr.New(
		sigilerr.CodeConfigValidateInvalidValue,
		"invalid embedding configuration",
		sigilerr.FieldCollection("doc_intel_eval"),
		sigilerr.Field("provider", "google"),
	)

	require.Error(t, err)
	assert.Equal(t, sigilerr.CodeConfigValidateInvalidValue, sigilerr.CodeOf(err))
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeConfigValidateInvalidValue))

	fields := sigilerr.FieldsOf(err)
	assert.Equal(t, "doc_intel_eval", fields["collection"])
	assert.Equal(t, "google", fields["provider"])
}

func TestNewWithNoFields(t *testing.T) {
	err := sigilerr.New(sigilerr.CodeStoreDatabaseFailure, "connection lost")
	require.Error(t, err)
	assert.Equal(t, sigilerr.CodeStoreDatabaseFailure, sigilerr.CodeOf(err))
	assert.Contains(t, err.Error(), "connection lost")
}

func TestErrorfFormatsMessage(t *testing.T) {
	err := sigilerr.Errorf(sigilerr.CodeStoreDimensionMismatch, "embedding %d has %d dimensions, want %d", 2, 3, 256)
	require.Error(t, err)
	assert.Equal(t, sigilerr.CodeStoreDimensionMismatch, sigilerr.CodeOf(err))
	assert.Contains(t, err.Error(), "embedding 2 has 3 dimensions, want 256")
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, sigilerr.CodeStoreDatabaseFailure, sigilerr.CodeOf(err))
}

// ---------------------------------------------------------------------------
// Wrap / Wrapf / With
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("source missing")
	err := sigilerr.Wrap(
		root,
		sigilerr.CodeIngestSourceNotFound,
		"opening source",
		sigilerr.Field("path", "docs/a.pdf"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, sigilerr.CodeIngestSourceNotFound, sigilerr.CodeOf(err))
	assert.True(t, sigilerr.IsNotFound(err))
	assert.Equal(t, "docs/a.pdf", sigilerr.FieldsOf(err)["path"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, sigilerr.Wrap(nil, sigilerr.CodeServerInternalFailure, "ignored"))
	assert.NoError(t, sigilerr.Wrapf(nil, sigilerr.CodeServerInternalFailure, "ignored %s", "arg"))
	assert.NoError(t, sigilerr.With(nil, sigilerr.FieldModel("x")))
}

func TestWrapfFormatsAndPreservesChain(t *testing.T) {
	root := stderrors.New("timeout")
	err := sigilerr.Wrapf(root, sigilerr.CodeProviderUpstreamFailure, "calling %s model %s", "google", "text-embedding-004")

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, sigilerr.CodeProviderUpstreamFailure, sigilerr.CodeOf(err))
	assert.Contains(t, err.Error(), "calling google model text-embedding-004")
}

func TestWithAddsContextWithoutChangingCode(t *testing.T) {
	base := sigilerr.New(sigilerr.CodeStoreDimensionMismatch, "bad vector")
	withCtx := sigilerr.With(base, sigilerr.FieldCollection("c1"))

	require.Error(t, withCtx)
	assert.Equal(t, sigilerr.CodeStoreDimensionMismatch, sigilerr.CodeOf(withCtx))
	assert.Equal(t, "c1", sigilerr.FieldsOf(withCtx)["collection"])
}

func TestWithOnPlainErrorDefaultsToInternalCode(t *testing.T) {
	enriched := sigilerr.With(stderrors.New("something broke"), sigilerr.FieldModel("m"))

	require.Error(t, enriched)
	assert.Equal(t, sigilerr.CodeServerInternalFailure, sigilerr.CodeOf(enriched))
	assert.Equal(t, "m", sigilerr.FieldsOf(enriched)["model"])
}

func TestCodeOfReturnsInnermostCodedError(t *testing.T) {
	inner := sigilerr.New(sigilerr.CodeStoreDatabaseFailure, "db")
	outer := sigilerr.Wrap(inner, sigilerr.CodeServerInternalFailure, "handler")
	assert.Equal(t, sigilerr.CodeStoreDatabaseFailure, sigilerr.CodeOf(outer))
}

func TestCodeOfPlainAndNil(t *testing.T) {
	assert.Equal(t, sigilerr.Code(""), sigilerr.CodeOf(nil))
	assert.Equal(t, sigilerr.Code(""), sigilerr.CodeOf(stderrors.New("plain")))
	assert.Nil(t, sigilerr.FieldsOf(nil))
	assert.Nil(t, sigilerr.FieldsOf(stderrors.New("plain")))
}

func TestErrorIsWithWrappedChain(t *testing.T) {
	sentinel := stderrors.New("root cause")
	mid := fmt.Errorf("mid: %w", sentinel)
	outer := sigilerr.Wrap(mid, sigilerr.CodeServerInternalFailure, "handler")

	assert.ErrorIs(t, outer, sentinel)
}

func TestFieldsWithEmptyKeyAreIgnored(t *testing.T) {
	err := sigilerr.New(sigilerr.CodeStoreDatabaseFailure, "oops",
		sigilerr.Field("", "should-be-dropped"),
		sigilerr.FieldProvider("kept"),
	)
	fields := sigilerr.FieldsOf(err)
	assert.Equal(t, "kept", fields["provider"])
	assert.NotContains(t, fields, "")
}

// ---------------------------------------------------------------------------
// Taxonomy
// ---------------------------------------------------------------------------

func TestTaxonomyPredicates(t *testing.T) {
	tests := []struct {
		name  string
		code  sigilerr.Code
		check func(error) bool
	}{
		{"config invalid value", sigilerr.CodeConfigValidateInvalidValue, sigilerr.IsConfigError},
		{"config unsupported provider", sigilerr.CodeConfigProviderUnsupported, sigilerr.IsConfigError},
		{"config unsupported backend", sigilerr.CodeConfigBackendUnsupported, sigilerr.IsConfigError},
		{"provider upstream", sigilerr.CodeProviderUpstreamFailure, sigilerr.IsProviderError},
		{"embedding response", sigilerr.CodeEmbeddingResponseInvalid, sigilerr.IsProviderError},
		{"provider response", sigilerr.CodeProviderResponseInvalid, sigilerr.IsProviderError},
		{"dimension mismatch", sigilerr.CodeStoreDimensionMismatch, sigilerr.IsDimensionMismatch},
		{"synthesis model", sigilerr.CodeSynthesisModelFailure, sigilerr.IsSynthesisError},
		{"evaluation run", sigilerr.CodeEvaluationRunFailure, sigilerr.IsEvaluationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(sigilerr.New(tt.code, "boom")))
		})
	}
}

func TestTaxonomyNegativeCases(t *testing.T) {
	err := sigilerr.New(sigilerr.CodeStoreDatabaseFailure, "db error")
	assert.False(t, sigilerr.IsConfigError(err))
	assert.False(t, sigilerr.IsProviderError(err))
	assert.False(t, sigilerr.IsDimensionMismatch(err))
	assert.False(t, sigilerr.IsSynthesisError(err))
	assert.False(t, sigilerr.IsEvaluationError(err))
	assert.False(t, sigilerr.IsInvalidInput(err))

	assert.False(t, sigilerr.IsSynthesisError(sigilerr.New(sigilerr.CodeSynthesisInvalidInput, "empty prompt")))
	assert.False(t, sigilerr.IsProviderError(nil))
	assert.False(t, sigilerr.IsConfigError(stderrors.New("plain")))
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		code   sigilerr.Code
		status int
	}{
		{"not found", sigilerr.CodeIngestSourceNotFound, http.StatusNotFound},
		{"provider not found", sigilerr.CodeProviderNotFound, http.StatusNotFound},
		{"dimension mismatch", sigilerr.CodeStoreDimensionMismatch, http.StatusUnprocessableEntity},
		{"invalid input", sigilerr.CodeStoreInvalidInput, http.StatusBadRequest},
		{"invalid value", sigilerr.CodeConfigValidateInvalidValue, http.StatusBadRequest},
		{"turn budget", sigilerr.CodeSynthesisTurnsExceeded, http.StatusTooManyRequests},
		{"upstream", sigilerr.CodeProviderUpstreamFailure, http.StatusBadGateway},
		{"synthesis", sigilerr.CodeSynthesisModelFailure, http.StatusBadGateway},
		{"unsupported provider", sigilerr.CodeConfigProviderUnsupported, http.StatusServiceUnavailable},
		{"internal", sigilerr.CodeServerInternalFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, sigilerr.HTTPStatus(sigilerr.New(tt.code, "boom")))
		})
	}
}

func TestHTTPStatusEdgeCases(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, sigilerr.HTTPStatus(nil))
	assert.Equal(t, http.StatusInternalServerError, sigilerr.HTTPStatus(stderrors.New("oops")))
	assert.Equal(t, http.StatusGatewayTimeout, sigilerr.HTTPStatus(fmt.Errorf("query: %w", context.DeadlineExceeded)))
}

func TestJoinCombinesErrors(t *testing.T) {
	a := stderrors.New("first")
	b := stderrors.New("second")
	joined := sigilerr.Join(a, b)

	require.Error(t, joined)
	assert.ErrorIs(t, joined, a)
	assert.ErrorIs(t, joined, b)
	assert.Equal(t, sigilerr.CodeServerInternalFailure, sigilerr.CodeOf(joined))
	assert.NoError(t, sigilerr.Join(nil, nil))
}
