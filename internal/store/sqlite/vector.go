// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sigil-dev/docintel/internal/store"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.VectorStore = (*VectorStore)(nil)

// VectorStore implements store.VectorStore backed by SQLite with sqlite-vec.
// Each collection is a vec0 virtual table "vec_<name>" holding embeddings and
// a companion table "doc_<name>" holding documents and metadata.
type VectorStore struct {
	db         *sql.DB
	collection string
	dimensions int
}

// NewVectorStore opens (or creates) a SQLite database at dbPath and
// initialises the tables for collection.
func NewVectorStore(dbPath, collection string, dimensions int) (*VectorStore, error) {
	if err := store.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "creating sqlite directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "opening sqlite db")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "pinging sqlite db")
	}

	v := &VectorStore{db: db, collection: collection, dimensions: dimensions}
	if err := v.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return v, nil
}

func vecTable(collection string) string { return "vec_" + collection }
func docTable(collection string) string { return "doc_" + collection }

func (v *VectorStore) migrate(ctx context.Context) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(id TEXT PRIMARY KEY, embedding float[%d])`,
		vecTable(v.collection), v.dimensions,
	)
	if _, err := v.db.ExecContext(ctx, vecDDL); err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "creating %s virtual table", vecTable(v.collection))
	}

	docDDL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id       TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}'
)`, docTable(v.collection))
	if _, err := v.db.ExecContext(ctx, docDDL); err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "creating %s table", docTable(v.collection))
	}

	return nil
}

func (v *VectorStore) Collection() string { return v.collection }
func (v *VectorStore) Dimensions() int    { return v.dimensions }

// Save upserts every entry in a single transaction.
func (v *VectorStore) Save(ctx context.Context, ids, documents []string, metadatas []map[string]any, embeddings [][]float32) error {
	if err := store.ValidateSave(ids, documents, metadatas, embeddings, v.dimensions); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	ids, documents, metadatas, embeddings = store.Dedupe(ids, documents, metadatas, embeddings)

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	delVec := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, vecTable(v.collection))
	insVec := fmt.Sprintf(`INSERT INTO %s(id, embedding) VALUES (?, ?)`, vecTable(v.collection))
	upsDoc := fmt.Sprintf(`INSERT INTO %s(id, document, metadata) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET document = excluded.document, metadata = excluded.metadata`, docTable(v.collection))

	for i, id := range ids {
		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "serializing embedding %s", id)
		}

		metaJSON := []byte("{}")
		if len(metadatas[i]) > 0 {
			metaJSON, err = json.Marshal(metadatas[i])
			if err != nil {
				return sigilerr.Wrapf(err, sigilerr.CodeStoreInvalidInput, "marshalling metadata %s", id)
			}
		}

		// vec0 does not support ON CONFLICT; delete first for upsert.
		if _, err := tx.ExecContext(ctx, delVec, id); err != nil {
			return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "deleting existing vector %s", id)
		}
		if _, err := tx.ExecContext(ctx, insVec, id, blob); err != nil {
			return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "inserting vector %s", id)
		}
		if _, err := tx.ExecContext(ctx, upsDoc, id, documents[i], string(metaJSON)); err != nil {
			return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "upserting document %s", id)
		}
	}

	if err := tx.Commit(); err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "committing save")
	}
	return nil
}

// Query performs a k-nearest-neighbour search. Distance is Euclidean.
func (v *VectorStore) Query(ctx context.Context, embedding []float32, nResults int) ([]store.Hit, error) {
	if err := store.ValidateQuery(embedding, nResults, v.dimensions); err != nil {
		return nil, err
	}
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "serializing query vector")
	}

	q := fmt.Sprintf(`SELECT v.id, v.distance, COALESCE(d.document, ''), COALESCE(d.metadata, '{}')
FROM %s v
LEFT JOIN %s d ON d.id = v.id
WHERE v.embedding MATCH ? AND k = ?
ORDER BY v.distance`, vecTable(v.collection), docTable(v.collection))

	rows, err := v.db.QueryContext(ctx, q, blob, nResults)
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "searching vectors")
	}
	defer func() { _ = rows.Close() }()

	hits := []store.Hit{}
	for rows.Next() {
		var h store.Hit
		var metaStr string

		if err := rows.Scan(&h.ID, &h.Distance, &h.Document, &metaStr); err != nil {
			return nil, sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "scanning vector result")
		}

		if metaStr != "" && metaStr != "{}" {
			if err := json.Unmarshal([]byte(metaStr), &h.Metadata); err != nil {
				return nil, sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "unmarshalling metadata %s", h.ID)
			}
		}

		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "iterating vector results")
	}

	return hits, nil
}

// DeleteCollection drops both tables of the named collection. Names that are
// not valid collection identifiers cannot exist and are ignored.
func (v *VectorStore) DeleteCollection(ctx context.Context, name string) error {
	if store.ValidateCollectionName(name) != nil {
		return nil
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+vecTable(name)); err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "dropping %s", vecTable(name))
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+docTable(name)); err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "dropping %s", docTable(name))
	}
	if err := tx.Commit(); err != nil {
		return sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "committing collection delete")
	}

	if name == v.collection {
		return v.migrate(ctx)
	}
	return nil
}

func (v *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := v.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+docTable(v.collection)).Scan(&n)
	if err != nil {
		return 0, sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "counting %s", docTable(v.collection))
	}
	return n, nil
}

// Close closes the underlying database connection.
func (v *VectorStore) Close() error {
	return v.db.Close()
}
