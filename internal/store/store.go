// Package store is the document store the bridge reads from and writes to.
//
// Documents live in named tables and are addressed by a partition key and an
// optional sort key. A single secondary index (IndexPK, IndexSK) supports the
// second access pattern of the metrics table. Bodies are JSON.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("store: not found")

// IndexSecondary selects the (IndexPK, IndexSK) pair in a Query.
const IndexSecondary = "secondary"

type Document struct {
	PK      string
	SK      string
	IndexPK string
	IndexSK string
	Body    json.RawMessage
}

// Query selects documents sharing one partition key. From and To bound the
// sort key inclusively; an empty bound is open. Equal sort keys are ordered
// by primary key.
type Query struct {
	Index      string
	PK         string
	From       string
	To         string
	Limit      int
	Descending bool
}

// Filter keeps documents whose top-level JSON string attributes equal the
// given values.
type Filter map[string]string

type Store interface {
	Get(ctx context.Context, table, pk, sk string) (Document, error)
	Query(ctx context.Context, table string, q Query) ([]Document, error)
	Scan(ctx context.Context, table string, f Filter, limit int) ([]Document, error)
	Put(ctx context.Context, table string, d Document) error
	Close() error
}

// NewDocument encodes v as the body of a document.
func NewDocument(pk, sk string, v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("store: encode %s/%s: %w", pk, sk, err)
	}
	return Document{PK: pk, SK: sk, Body: b}, nil
}

func Decode[T any](d Document) (T, error) {
	var v T
	if err := json.Unmarshal(d.Body, &v); err != nil {
		return v, fmt.Errorf("store: decode %s/%s: %w", d.PK, d.SK, err)
	}
	return v, nil
}

func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := Decode[T](d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f Filter) match(body json.RawMessage) bool {
	if len(f) == 0 {
		return true
	}
	var attrs map[string]any
	if err := json.Unmarshal(body, &attrs); err != nil {
		return false
	}
	for k, want := range f {
		got, ok := attrs[k].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func (q Query) keys(d Document) (pk, sk string) {
	if q.Index == IndexSecondary {
		return d.IndexPK, d.IndexSK
	}
	return d.PK, d.SK
}

func (q Query) inRange(sk string) bool {
	if q.From != "" && sk < q.From {
		return false
	}
	if q.To != "" && sk > q.To {
		return false
	}
	return true
}
