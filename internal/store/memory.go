package store

import (
	"context"
	"sort"
	"sync"
)

type docKey struct{ pk, sk string }

type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[docKey]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]map[docKey]Document)}
}

func (s *MemoryStore) Get(ctx context.Context, table, pk, sk string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.tables[table][docKey{pk, sk}]
	if !ok {
		return Document{}, ErrNotFound
	}
	return d, nil
}

func (s *MemoryStore) Put(ctx context.Context, table string, d Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		t = make(map[docKey]Document)
		s.tables[table] = t
	}
	t[docKey{d.PK, d.SK}] = d
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, table string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []Document
	for _, d := range s.tables[table] {
		pk, sk := q.keys(d)
		if pk == q.PK && q.inRange(sk) {
			out = append(out, d)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		_, a := q.keys(out[i])
		_, b := q.keys(out[j])
		if a != b {
			if q.Descending {
				return a > b
			}
			return a < b
		}
		if out[i].PK != out[j].PK {
			return out[i].PK < out[j].PK
		}
		return out[i].SK < out[j].SK
	})
	return limit(out, q.Limit), nil
}

// Scan returns matching documents ordered by key. The limit applies after
// filtering.
func (s *MemoryStore) Scan(ctx context.Context, table string, f Filter, n int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []Document
	for _, d := range s.tables[table] {
		if f.match(d.Body) {
			out = append(out, d)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].PK != out[j].PK {
			return out[i].PK < out[j].PK
		}
		return out[i].SK < out[j].SK
	})
	return limit(out, n), nil
}

func (s *MemoryStore) Close() error { return nil }

func limit(docs []Document, n int) []Document {
	if n > 0 && len(docs) > n {
		return docs[:n]
	}
	return docs
}
