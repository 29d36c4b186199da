// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package qdrant stores collections in a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"encoding/json"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/sigil-dev/docintel/internal/store"
	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// DefaultAddr is the Qdrant gRPC listener on a local install.
const DefaultAddr = "localhost:6334"

// Reserved payload keys. Everything else in a point's payload is metadata.
const (
	payloadID       = "_id"
	payloadDocument = "_document"
)

// idNamespace derives stable point UUIDs from caller IDs, which Qdrant does
// not accept verbatim.
var idNamespace = uuid.MustParse("6f1d6c1e-3b0a-4f55-9d8e-5a2f8a1c7e42")

func init() {
	store.RegisterBackend("qdrant", func(cfg store.Config) (store.VectorStore, error) {
		return New(context.Background(), Config{
			Addr:       cfg.URL,
			APIKey:     cfg.APIKey,
			Collection: cfg.Collection,
			Dimensions: cfg.Dimensions,
		})
	})
}

// Config holds Qdrant connection settings.
type Config struct {
	Addr       string // host:port of the gRPC listener
	APIKey     string
	UseTLS     bool
	Collection string
	Dimensions int
}

var _ store.VectorStore = (*VectorStore)(nil)

// VectorStore implements store.VectorStore with one Qdrant collection using
// Euclidean distance.
type VectorStore struct {
	client     *qdrant.Client
	collection string
	dimensions int
}

// New connects to Qdrant and creates the collection if it does not exist.
func New(ctx context.Context, cfg Config) (*VectorStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	host, portStr, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeConfigValidateInvalidValue, "qdrant: parsing address %q", cfg.Addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeConfigValidateInvalidValue, "qdrant: parsing port %q", portStr)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeStoreDatabaseFailure, "qdrant: creating client")
	}

	v := &VectorStore{client: client, collection: cfg.Collection, dimensions: cfg.Dimensions}
	if err := v.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return v, nil
}

func (v *VectorStore) ensureCollection(ctx context.Context) error {
	exists, err := v.client.CollectionExists(ctx, v.collection)
	if err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "qdrant: checking collection",
			sigilerr.FieldCollection(v.collection))
	}
	if exists {
		return nil
	}

	err = v.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(v.dimensions),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "qdrant: creating collection",
			sigilerr.FieldCollection(v.collection))
	}
	return nil
}

func (v *VectorStore) Collection() string { return v.collection }
func (v *VectorStore) Dimensions() int    { return v.dimensions }

func pointID(id string) *qdrant.PointId {
	return qdrant.NewID(uuid.NewSHA1(idNamespace, []byte(id)).String())
}

func (v *VectorStore) Save(ctx context.Context, ids, documents []string, metadatas []map[string]any, embeddings [][]float32) error {
	if err := store.ValidateSave(ids, documents, metadatas, embeddings, v.dimensions); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	ids, documents, metadatas, embeddings = store.Dedupe(ids, documents, metadatas, embeddings)

	points := make([]*qdrant.PointStruct, len(ids))
	for i, id := range ids {
		payload := toPayload(metadatas[i])
		payload[payloadID] = qdrant.NewValueString(id)
		payload[payloadDocument] = qdrant.NewValueString(documents[i])

		points[i] = &qdrant.PointStruct{
			Id:      pointID(id),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: payload,
		}
	}

	_, err := v.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: v.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "qdrant: upserting points",
			sigilerr.FieldCollection(v.collection))
	}
	return nil
}

func (v *VectorStore) Query(ctx context.Context, embedding []float32, nResults int) ([]store.Hit, error) {
	if err := store.ValidateQuery(embedding, nResults, v.dimensions); err != nil {
		return nil, err
	}

	resp, err := v.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: v.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(nResults)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "qdrant: querying points",
			sigilerr.FieldCollection(v.collection))
	}

	hits := make([]store.Hit, 0, len(resp))
	for _, scored := range resp {
		meta := fromPayload(scored.Payload)
		h := store.Hit{Distance: float64(scored.Score)}
		if id, ok := meta[payloadID].(string); ok {
			h.ID = id
		}
		if doc, ok := meta[payloadDocument].(string); ok {
			h.Document = doc
		}
		delete(meta, payloadID)
		delete(meta, payloadDocument)
		if len(meta) > 0 {
			h.Metadata = meta
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// DeleteCollection drops a collection if it exists. Dropping the handle's own
// collection recreates it empty.
func (v *VectorStore) DeleteCollection(ctx context.Context, name string) error {
	exists, err := v.client.CollectionExists(ctx, name)
	if err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "qdrant: checking collection",
			sigilerr.FieldCollection(name))
	}
	if exists {
		if err := v.client.DeleteCollection(ctx, name); err != nil {
			return sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "qdrant: deleting collection",
				sigilerr.FieldCollection(name))
		}
	}
	if name == v.collection {
		return v.ensureCollection(ctx)
	}
	return nil
}

func (v *VectorStore) Count(ctx context.Context) (int, error) {
	n, err := v.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: v.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "qdrant: counting points",
			sigilerr.FieldCollection(v.collection))
	}
	return int(n), nil
}

func (v *VectorStore) Close() error {
	return v.client.Close()
}

func toPayload(m map[string]any) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(m)+2)
	for k, val := range m {
		payload[k] = toValue(val)
	}
	return payload
}

func toValue(v any) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return qdrant.NewValueString(val)
	case float64:
		return qdrant.NewValueDouble(val)
	case float32:
		return qdrant.NewValueDouble(float64(val))
	case int:
		return qdrant.NewValueInt(int64(val))
	case int64:
		return qdrant.NewValueInt(val)
	case bool:
		return qdrant.NewValueBool(val)
	case []string:
		values := make([]*qdrant.Value, len(val))
		for i, s := range val {
			values[i] = qdrant.NewValueString(s)
		}
		return qdrant.NewValueList(&qdrant.ListValue{Values: values})
	case []any:
		values := make([]*qdrant.Value, len(val))
		for i, item := range val {
			values[i] = toValue(item)
		}
		return qdrant.NewValueList(&qdrant.ListValue{Values: values})
	default:
		data, _ := json.Marshal(v)
		return qdrant.NewValueString(string(data))
	}
}

func fromPayload(payload map[string]*qdrant.Value) map[string]any {
	m := make(map[string]any, len(payload))
	for k, v := range payload {
		m[k] = fromValue(v)
	}
	return m
}

func fromValue(v *qdrant.Value) any {
	switch v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return v.GetStringValue()
	case *qdrant.Value_DoubleValue:
		return v.GetDoubleValue()
	case *qdrant.Value_IntegerValue:
		return v.GetIntegerValue()
	case *qdrant.Value_BoolValue:
		return v.GetBoolValue()
	case *qdrant.Value_ListValue:
		list := v.GetListValue()
		if list == nil {
			return nil
		}
		out := make([]any, len(list.Values))
		for i, item := range list.Values {
			out[i] = fromValue(item)
		}
		return out
	default:
		return nil
	}
}
