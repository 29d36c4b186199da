// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"sort"
	"sync"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Factory opens a VectorStore for cfg. The config has already been defaulted.
type Factory func(cfg Config) (VectorStore, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers the factory for a named backend. Backend packages
// call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends lists registered backend names in sorted order.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New opens the backend named by cfg.Backend. An unknown backend is a
// configuration error.
func New(cfg Config) (VectorStore, error) {
	cfg = cfg.withDefaults()

	factoriesMu.RLock()
	factory, ok := factories[cfg.Backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, sigilerr.New(sigilerr.CodeConfigBackendUnsupported,
			"unsupported vector store type: "+cfg.Backend,
			sigilerr.Field("backend", cfg.Backend),
			sigilerr.Field("registered", Backends()))
	}
	if cfg.Dimensions <= 0 {
		return nil, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"vector store dimensions must be positive, got %d", cfg.Dimensions)
	}
	if err := ValidateCollectionName(cfg.Collection); err != nil {
		return nil, err
	}

	return factory(cfg)
}
