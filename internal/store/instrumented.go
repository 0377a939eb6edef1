package store

import (
	"context"
	"errors"
	"time"
)

type Observer interface {
	ObserveStore(method, table string, d time.Duration, err error)
}

type instrumented struct {
	Store
	obs Observer
}

// Instrument reports every call of s to obs. A miss on Get is not an error.
func Instrument(s Store, obs Observer) Store {
	if obs == nil {
		return s
	}
	return &instrumented{Store: s, obs: obs}
}

func (s *instrumented) observe(method, table string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	s.obs.ObserveStore(method, table, time.Since(start), err)
}

func (s *instrumented) Get(ctx context.Context, table, pk, sk string) (Document, error) {
	start := time.Now()
	d, err := s.Store.Get(ctx, table, pk, sk)
	s.observe("get", table, start, err)
	return d, err
}

func (s *instrumented) Query(ctx context.Context, table string, q Query) ([]Document, error) {
	start := time.Now()
	docs, err := s.Store.Query(ctx, table, q)
	s.observe("query", table, start, err)
	return docs, err
}

func (s *instrumented) Scan(ctx context.Context, table string, f Filter, n int) ([]Document, error) {
	start := time.Now()
	docs, err := s.Store.Scan(ctx, table, f, n)
	s.observe("scan", table, start, err)
	return docs, err
}

func (s *instrumented) Put(ctx context.Context, table string, d Document) error {
	start := time.Now()
	err := s.Store.Put(ctx, table, d)
	s.observe("put", table, start, err)
	return err
}
