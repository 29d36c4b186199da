// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package provider

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
	"github.com/sigil-dev/docintel/pkg/health"
)

// Router selects a provider and model for a "provider/model" reference.
type Router interface {
	// Route resolves ref (or the default when ref is empty) and walks the
	// failover chain past unavailable providers and those named in exclude.
	Route(ctx context.Context, ref string, exclude []string) (Provider, string, error)
	// MaxAttempts is the number of distinct candidates Route can return.
	MaxAttempts() int
}

// Registry manages provider registration, lookup, and routing with
// failover. It implements the Router interface.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider

	defaultRef string   // "provider/model" format
	failover   []string // ordered list of "provider/model" refs
}

// Compile-time check that Registry implements Router.
var _ Router = (*Registry)(nil)

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, sigilerr.New(
			sigilerr.CodeProviderNotFound,
			"provider not found: "+name,
			sigilerr.FieldProvider(name),
		)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDefault sets the default "provider/model" reference. Returns an error
// if the ref is malformed or its provider is not registered.
func (r *Registry) SetDefault(ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRefLocked("SetDefault", ref); err != nil {
		return err
	}
	r.defaultRef = ref
	return nil
}

// DefaultRef returns the configured default reference.
func (r *Registry) DefaultRef() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultRef
}

// SetFailover sets the ordered failover chain of "provider/model" refs.
// Returns an error if any provider portion of the refs is not registered.
func (r *Registry) SetFailover(chain []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ref := range chain {
		if err := r.checkRefLocked("SetFailover", ref); err != nil {
			return err
		}
	}
	r.failover = append([]string(nil), chain...)
	return nil
}

// MaxAttempts returns 1 (primary) + len(failover chain).
func (r *Registry) MaxAttempts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return 1 + len(r.failover)
}

// Route selects a provider for ref. An empty ref or "default" uses the
// default reference. Providers named in exclude are skipped so that a
// caller retrying after a failed call moves down the chain even for
// providers that don't implement HealthReporter.
func (r *Registry) Route(ctx context.Context, ref string, exclude []string) (Provider, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	primary, err := r.resolveRef(ref)
	if err != nil {
		return nil, "", err
	}
	if primary == "" {
		return nil, "", sigilerr.New(
			sigilerr.CodeProviderNoDefault,
			"no default provider configured",
		)
	}

	for _, candidate := range append([]string{primary}, r.failover...) {
		provName, _ := parseRef(candidate)
		if slices.Contains(exclude, provName) {
			continue
		}
		p, model, err := r.tryRef(ctx, candidate)
		if err == nil {
			return p, model, nil
		}
	}

	return nil, "", sigilerr.New(
		sigilerr.CodeProviderAllUnavailable,
		"all providers unavailable: no healthy provider found",
	)
}

// Health returns a snapshot of every provider that tracks its own health.
func (r *Registry) Health() health.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(health.Report, len(r.providers))
	for name, p := range r.providers {
		if hr, ok := p.(HealthReporter); ok {
			out[name] = hr.HealthMetrics()
		}
	}
	return out
}

// Close shuts down all registered providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return sigilerr.Join(errs...)
}

// checkRefLocked requires r.mu held.
func (r *Registry) checkRefLocked(op, ref string) error {
	if !strings.Contains(ref, "/") {
		return sigilerr.Errorf(
			sigilerr.CodeProviderInvalidModelRef,
			"%s: model ref %q must use provider/model format", op, ref,
		)
	}
	provName, _ := parseRef(ref)
	if _, ok := r.providers[provName]; !ok {
		return sigilerr.New(
			sigilerr.CodeProviderNotFound,
			op+": provider not registered: "+provName,
			sigilerr.FieldProvider(provName),
		)
	}
	return nil
}

// resolveRef requires r.mu held. Explicit refs must be qualified.
func (r *Registry) resolveRef(ref string) (string, error) {
	if ref != "" && ref != "default" {
		if !strings.Contains(ref, "/") {
			return "", sigilerr.Errorf(
				sigilerr.CodeProviderInvalidModelRef,
				"model name %q must use provider/model format", ref,
			)
		}
		return ref, nil
	}
	return r.defaultRef, nil
}

// tryRef parses a "provider/model" ref, looks up the provider, and checks
// availability. Caller must hold r.mu (at least RLock).
func (r *Registry) tryRef(ctx context.Context, ref string) (Provider, string, error) {
	providerName, model := parseRef(ref)

	p, ok := r.providers[providerName]
	if !ok {
		return nil, "", sigilerr.New(
			sigilerr.CodeProviderNotFound,
			"provider not found: "+providerName,
			sigilerr.FieldProvider(providerName),
		)
	}

	if !p.Available(ctx) {
		return nil, "", sigilerr.New(
			sigilerr.CodeProviderUpstreamFailure,
			"provider unavailable: "+providerName,
			sigilerr.FieldProvider(providerName),
		)
	}

	return p, model, nil
}

// parseRef splits a "provider/model" reference on the first "/".
func parseRef(ref string) (providerName, model string) {
	idx := strings.Index(ref, "/")
	if idx < 0 {
		return ref, ""
	}
	return ref[:idx], ref[idx+1:]
}

// ParseRef is the exported form of parseRef for config validation.
func ParseRef(ref string) (providerName, model string) { return parseRef(ref) }
