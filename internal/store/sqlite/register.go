// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"github.com/sigil-dev/docintel/internal/store"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

func init() {
	store.RegisterBackend("sqlite", newVectorStore)
}

func newVectorStore(cfg store.Config) (store.VectorStore, error) {
	vs, err := NewVectorStore(cfg.Path, cfg.Collection, cfg.Dimensions)
	if err != nil {
		return nil, sigilerr.With(err, sigilerr.FieldCollection(cfg.Collection), sigilerr.Field("path", cfg.Path))
	}
	return vs, nil
}
