// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package pgvector stores collections in PostgreSQL tables with a pgvector
// column. Each collection is one table named "docintel_<collection>".
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/sigil-dev/docintel/internal/store"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

func init() {
	store.RegisterBackend("pgvector", func(cfg store.Config) (store.VectorStore, error) {
		if cfg.DSN == "" {
			return nil, sigilerr.New(sigilerr.CodeConfigValidateInvalidValue,
				"pgvector: vector_store.dsn is required", sigilerr.FieldCollection(cfg.Collection))
		}
		db, err := sqlx.Connect("postgres", cfg.DSN)
		if err != nil {
			return nil, sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "pgvector: connecting")
		}
		vs, err := New(context.Background(), db, cfg.Collection, cfg.Dimensions)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return vs, nil
	})
}

var _ store.VectorStore = (*VectorStore)(nil)

// VectorStore implements store.VectorStore on PostgreSQL. Distances use the
// L2 operator and ties are broken by insertion order.
type VectorStore struct {
	db         *sqlx.DB
	collection string
	dimensions int
}

type row struct {
	ID       string  `db:"id"`
	Document string  `db:"document"`
	Metadata []byte  `db:"metadata"`
	Distance float64 `db:"distance"`
}

// New takes ownership of db and creates the collection table if needed.
func New(ctx context.Context, db *sqlx.DB, collection string, dimensions int) (*VectorStore, error) {
	if err := store.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	v := &VectorStore{db: db, collection: collection, dimensions: dimensions}
	if err := v.migrate(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func table(collection string) string { return "docintel_" + collection }

func (v *VectorStore) migrate(ctx context.Context) error {
	if _, err := v.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "pgvector: enabling extension")
	}

	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	seq       BIGSERIAL,
	id        TEXT PRIMARY KEY,
	document  TEXT NOT NULL,
	metadata  JSONB NOT NULL DEFAULT '{}',
	embedding vector(%d) NOT NULL
)`, table(v.collection), v.dimensions)
	if _, err := v.db.ExecContext(ctx, ddl); err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "pgvector: creating table",
			sigilerr.FieldCollection(v.collection))
	}
	return nil
}

func (v *VectorStore) Collection() string { return v.collection }
func (v *VectorStore) Dimensions() int    { return v.dimensions }

func (v *VectorStore) Save(ctx context.Context, ids, documents []string, metadatas []map[string]any, embeddings [][]float32) error {
	if err := store.ValidateSave(ids, documents, metadatas, embeddings, v.dimensions); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	ids, documents, metadatas, embeddings = store.Dedupe(ids, documents, metadatas, embeddings)

	tx, err := v.db.BeginTxx(ctx, nil)
	if err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "pgvector: beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := fmt.Sprintf(`INSERT INTO %s (id, document, metadata, embedding) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
	document = EXCLUDED.document,
	metadata = EXCLUDED.metadata,
	embedding = EXCLUDED.embedding`, table(v.collection))

	for i, id := range ids {
		meta := metadatas[i]
		if meta == nil {
			meta = map[string]any{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return sigilerr.Wrapf(err, sigilerr.CodeStoreInvalidInput, "pgvector: marshalling metadata %s", id)
		}
		if _, err := tx.ExecContext(ctx, q, id, documents[i], metaJSON, pgvector.NewVector(embeddings[i])); err != nil {
			return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "pgvector: upserting %s", id)
		}
	}

	if err := tx.Commit(); err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "pgvector: committing save")
	}
	return nil
}

func (v *VectorStore) Query(ctx context.Context, embedding []float32, nResults int) ([]store.Hit, error) {
	if err := store.ValidateQuery(embedding, nResults, v.dimensions); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`SELECT id, document, metadata, embedding <-> $1 AS distance
FROM %s
ORDER BY distance, seq
LIMIT $2`, table(v.collection))

	var rows []row
	if err := v.db.SelectContext(ctx, &rows, q, pgvector.NewVector(embedding), nResults); err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "pgvector: querying",
			sigilerr.FieldCollection(v.collection))
	}

	hits := make([]store.Hit, 0, len(rows))
	for _, r := range rows {
		h := store.Hit{ID: r.ID, Document: r.Document, Distance: r.Distance}
		if len(r.Metadata) > 0 && string(r.Metadata) != "{}" {
			if err := json.Unmarshal(r.Metadata, &h.Metadata); err != nil {
				return nil, sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "pgvector: unmarshalling metadata %s", r.ID)
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// DeleteCollection drops the collection table. Invalid names cannot exist and
// are ignored.
func (v *VectorStore) DeleteCollection(ctx context.Context, name string) error {
	if store.ValidateCollectionName(name) != nil {
		return nil
	}
	if _, err := v.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table(name)); err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "pgvector: dropping table",
			sigilerr.FieldCollection(name))
	}
	if name == v.collection {
		return v.migrate(ctx)
	}
	return nil
}

func (v *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := v.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+table(v.collection)); err != nil {
		return 0, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "pgvector: counting",
			sigilerr.FieldCollection(v.collection))
	}
	return n, nil
}

func (v *VectorStore) Close() error {
	return v.db.Close()
}
