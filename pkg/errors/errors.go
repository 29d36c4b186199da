// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeConfigLoadReadFailure       Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat    Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue  Code = "config.validate.invalid_value"
	CodeConfigProviderUnsupported   Code = "config.provider.unsupported"
	CodeConfigBackendUnsupported    Code = "config.backend.unsupported"
	CodeConfigSecretResolveFailure  Code = "config.secret.resolve.failure"
	CodeConfigSecretStoreFailure    Code = "config.secret.store.failure"
	CodeConfigSecretNotFound        Code = "config.secret.not_found"
	CodeConfigSecretInvalidInput    Code = "config.secret.invalid_input"
	CodeConfigSecretDeleteFailure   Code = "config.secret.delete.failure"
	CodeConfigSecretListFailure     Code = "config.secret.list.failure"
	CodeConfigBootstrapWriteFailure Code = "config.bootstrap.write.failure"

	CodeProviderRequestInvalid   Code = "provider.request.invalid"
	CodeProviderResponseInvalid  Code = "provider.response.invalid"
	CodeProviderUpstreamFailure  Code = "provider.upstream.failure"
	CodeProviderNotFound         Code = "provider.registry.not_found"
	CodeProviderAllUnavailable   Code = "provider.routing.all_unavailable"
	CodeProviderNoDefault        Code = "provider.routing.no_default"
	CodeProviderInvalidModelRef  Code = "provider.routing.invalid_model_ref"
	CodeProviderKeyInvalid       Code = "provider.key.invalid"
	CodeProviderKeyCheckFailed   Code = "provider.key.check.failure"
	CodeEmbeddingInvalidInput    Code = "embedding.request.invalid_input"
	CodeEmbeddingResponseInvalid Code = "embedding.response.invalid"

	CodeStoreInvalidInput       Code = "store.request.invalid_input"
	CodeStoreDimensionMismatch  Code = "store.save.dimension_mismatch"
	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"

	CodeSynthesisInvalidInput  Code = "synthesis.request.invalid_input"
	CodeSynthesisModelFailure  Code = "synthesis.model.failure"
	CodeSynthesisToolFailure   Code = "synthesis.tool.failure"
	CodeSynthesisTurnsExceeded Code = "synthesis.turns.budget_exceeded"

	CodeEvaluationRunFailure     Code = "evaluation.run.failure"
	CodeEvaluationUnknown        Code = "evaluation.registry.not_found"
	CodeEvaluationResponseFormat Code = "evaluation.response.invalid_format"

	CodeRAGInvalidInput     Code = "rag.request.invalid_input"
	CodeRAGChunkFileFailure Code = "rag.chunkfile.io.failure"

	CodeIngestInvalidInput     Code = "ingest.request.invalid_input"
	CodeIngestExtractFailure   Code = "ingest.extract.failure"
	CodeIngestSourceNotFound   Code = "ingest.source.not_found"
	CodeIngestUnsupportedInput Code = "ingest.source.invalid_format"

	CodeScannerRuleInvalid    Code = "scanner.rule.invalid"
	CodeScannerContentBlocked Code = "scanner.content.blocked"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// FieldValue creates a structured error field.
func FieldValue(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Field is kept as the primary helper for terse callsites.
func Field(key string, value any) Attr {
	return FieldValue(key, value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldModel(value string) Attr {
	return Field("model", value)
}

func FieldCollection(value string) Attr {
	return Field("collection", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsBudgetExceeded(err error) bool {
	r := reason(CodeOf(err))
	return r == "exceeded" || r == "budget_exceeded"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

// IsConfigError reports configuration problems: unknown provider tags,
// missing credentials, invalid values.
func IsConfigError(err error) bool {
	return area(CodeOf(err)) == "config"
}

// IsProviderError reports failures of a remote model call or a response that
// breaks the provider contract.
func IsProviderError(err error) bool {
	code := CodeOf(err)
	return IsUpstreamFailure(err) ||
		code == CodeProviderResponseInvalid ||
		code == CodeEmbeddingResponseInvalid ||
		code == CodeProviderAllUnavailable
}

func IsDimensionMismatch(err error) bool {
	return HasCode(err, CodeStoreDimensionMismatch)
}

func IsSynthesisError(err error) bool {
	return area(CodeOf(err)) == "synthesis" && !IsInvalidInput(err)
}

func IsEvaluationError(err error) bool {
	return area(CodeOf(err)) == "evaluation"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsDimensionMismatch(err), HasCode(err, CodeScannerContentBlocked):
		return http.StatusUnprocessableEntity
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsBudgetExceeded(err):
		return http.StatusTooManyRequests
	case IsProviderError(err), IsSynthesisError(err):
		return http.StatusBadGateway
	case IsConfigError(err):
		return http.StatusServiceUnavailable
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	joined := stderrors.Join(errs...)
	if joined == nil {
		return nil
	}
	return oops.Code(CodeServerInternalFailure).Wrap(joined)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func area(code Code) string {
	raw := string(code)
	if idx := strings.Index(raw, "."); idx > 0 {
		return raw[:idx]
	}
	return raw
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
