package app

import (
	"context"
	"errors"
	"sync"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/ports"
)

type fakeFetcher struct {
	mu    sync.Mutex
	data  map[string][]domain.Record
	fail  map[string]error
	calls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		data:  make(map[string][]domain.Record),
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) set(domainName, key string, recs ...domain.Record) {
	f.data[domainName+"/"+key] = recs
}

func (f *fakeFetcher) Fetch(_ context.Context, domainName, key string) ([]domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := domainName + "/" + key
	f.calls[id]++
	if err, ok := f.fail[id]; ok {
		return nil, &domain.FetchError{Domain: domainName, Key: key, Err: err}
	}
	return f.data[id], nil
}

func (f *fakeFetcher) count(domainName, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[domainName+"/"+key]
}

// memStore keeps saved datasets in memory.
type memStore struct {
	mu    sync.Mutex
	files map[string]*domain.Dataset
	fail  map[string]bool
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string]*domain.Dataset), fail: make(map[string]bool)}
}

func copyDataset(ds *domain.Dataset) *domain.Dataset {
	out := &domain.Dataset{Schema: ds.Schema, Rows: make([]domain.Record, len(ds.Rows))}
	out.Schema.Fields = append([]domain.Field(nil), ds.Schema.Fields...)
	for i, r := range ds.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

func (s *memStore) Save(_ context.Context, path string, ds *domain.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[path] {
		return &domain.StoreError{Op: "save", Path: path, Err: errors.New("disk full")}
	}
	s.files[path] = copyDataset(ds)
	return nil
}

func (s *memStore) Load(_ context.Context, path string, schema domain.Schema) (*domain.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.files[path]
	if !ok {
		return nil, nil
	}
	out := copyDataset(ds)
	out.Schema.Key = schema.Key
	out.Schema.Version = schema.Version
	return out, nil
}

func (s *memStore) get(path string) *domain.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[path]
}

type recordingSink struct {
	mu     sync.Mutex
	tables map[string]int
}

func (s *recordingSink) Write(_ context.Context, ds *domain.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables == nil {
		s.tables = make(map[string]int)
	}
	s.tables[ds.Schema.Name] += ds.Len()
	return nil
}

var (
	_ ports.Fetcher      = (*fakeFetcher)(nil)
	_ ports.DatasetStore = (*memStore)(nil)
	_ ports.RowSink      = (*recordingSink)(nil)
)
