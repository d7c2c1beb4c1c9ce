package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/extract"
	"docflow-backend/internal/shared/storage/object"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	copies  map[string]string
	putErr  error
	copyErr error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}, copies: map[string]string{}}
}

func (s *memStore) Provider() string { return "memory" }

func (s *memStore) Put(ctx context.Context, key, contentType string, size int64, r io.Reader) (int64, error) {
	if s.putErr != nil {
		return 0, s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return int64(len(data)), nil
}

func (s *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, object.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Stat(ctx context.Context, key string) (object.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return object.Info{}, object.ErrNotFound
	}
	return object.Info{Key: key, Size: int64(len(data)), ContentType: s.types[key]}, nil
}

func (s *memStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	if s.copyErr != nil {
		return s.copyErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[srcKey]
	if !ok {
		return object.ErrNotFound
	}
	s.objects[dstKey] = data
	s.copies[srcKey] = dstKey
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type stubExtractor struct {
	blocks []extract.Block
	err    error
	refs   []extract.Ref
	mu     sync.Mutex
}

func (e *stubExtractor) Extract(ctx context.Context, ref extract.Ref) ([]extract.Block, error) {
	e.mu.Lock()
	e.refs = append(e.refs, ref)
	e.mu.Unlock()
	return e.blocks, e.err
}

type stubQuerier struct {
	blocks    []extract.Block
	err       error
	questions []string
	mu        sync.Mutex
}

func (q *stubQuerier) Query(ctx context.Context, ref extract.Ref, question string) ([]extract.Block, error) {
	q.mu.Lock()
	q.questions = append(q.questions, question)
	q.mu.Unlock()
	return q.blocks, q.err
}

// keyedCompleter answers by the first word of the system instruction.
type keyedCompleter map[string]string

func (k keyedCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	word, _, _ := strings.Cut(system, " ")
	out, ok := k[word]
	if !ok {
		return "", errors.New("service unavailable")
	}
	return out, nil
}

type staticOwners map[string]bool

func (o staticOwners) Exists(ctx context.Context, userID string) (bool, error) {
	return o[userID], nil
}

type failingRepo struct {
	*documents.MemoryRepo
	saveErr error
}

func (r *failingRepo) Save(ctx context.Context, doc documents.Document) (documents.Document, error) {
	if r.saveErr != nil {
		return documents.Document{}, r.saveErr
	}
	return r.MemoryRepo.Save(ctx, doc)
}

type recordingNotifier struct {
	mu   sync.Mutex
	docs []documents.Document
	err  error
}

func (n *recordingNotifier) DocumentIngested(ctx context.Context, doc documents.Document) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.docs = append(n.docs, doc)
	return n.err
}
