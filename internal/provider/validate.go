// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package provider

import (
	"context"
	"io"
	"net/http"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// ProviderName identifies a supported LLM provider for key validation.
type ProviderName string

const (
	ProviderAnthropic ProviderName = "anthropic"
	ProviderOpenAI    ProviderName = "openai"
	ProviderGoogle    ProviderName = "google"
)

// Endpoint returns the models endpoint and auth headers used to check key.
func Endpoint(provider ProviderName, key string) (string, map[string]string, error) {
	switch provider {
	case ProviderAnthropic:
		return "https://api.anthropic.com/v1/models", map[string]string{
			"x-api-key":         key,
			"anthropic-version": "2023-06-01",
		}, nil
	case ProviderOpenAI:
		return "https://api.openai.com/v1/models", map[string]string{
			"Authorization": "Bearer " + key,
		}, nil
	case ProviderGoogle:
		// Sent as a header rather than the ?key= query parameter.
		return "https://generativelanguage.googleapis.com/v1/models", map[string]string{
			"x-goog-api-key": key,
		}, nil
	default:
		return "", nil, sigilerr.Errorf(sigilerr.CodeProviderKeyInvalid, "unknown provider: %s", provider)
	}
}

// ValidateKey makes a lightweight HTTP call to the provider's models endpoint
// to confirm the API key is valid.
func ValidateKey(ctx context.Context, client *http.Client, provider ProviderName, key string) error {
	url, headers, err := Endpoint(provider, key)
	if err != nil {
		return err
	}
	return ValidateKeyWithURL(ctx, client, provider, url, headers)
}

// ValidateKeyWithURL performs the check against an explicit URL with
// prepared headers.
func ValidateKeyWithURL(ctx context.Context, client *http.Client, provider ProviderName, url string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeProviderKeyCheckFailed, "building validation request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeProviderKeyCheckFailed, "validating %s key: %w", provider, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return sigilerr.Errorf(sigilerr.CodeProviderKeyInvalid, "invalid %s API key (HTTP %d)", provider, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return sigilerr.Errorf(sigilerr.CodeProviderKeyCheckFailed, "%s validation failed (HTTP %d)", provider, resp.StatusCode)
	}
	return nil
}
