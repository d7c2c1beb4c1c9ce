package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/enrich"
	"docflow-backend/internal/extract"
	"docflow-backend/internal/shared/metrics"
	"docflow-backend/internal/shared/storage/object"
	"docflow-backend/internal/shared/telemetry"
)

const defaultContentType = "application/octet-stream"

// NoQueryAnswer is returned by QueryDocument when the document yields no answer.
const NoQueryAnswer = "No relevant answer found."

// OwnerDirectory answers whether a user id names a known user.
type OwnerDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// Notifier is told about every persisted document. Failures are logged and
// never fail the ingest.
type Notifier interface {
	DocumentIngested(ctx context.Context, doc documents.Document) error
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Store     object.ObjectStore
	Extractor extract.Extractor
	// Querier is optional; without it QueryDocument returns ErrQueryUnsupported.
	Querier  extract.Querier
	Enricher *enrich.Enricher
	Repo     documents.DocumentsRepo
	Owners   OwnerDirectory
	Notifier Notifier
}

// Pipeline turns uploaded files into persisted, enriched documents and
// answers questions about them.
type Pipeline struct {
	store     object.ObjectStore
	extractor extract.Extractor
	querier   extract.Querier
	enricher  *enrich.Enricher
	repo      documents.DocumentsRepo
	owners    OwnerDirectory
	notifier  Notifier
	keys      *KeyGenerator
	now       func() time.Time
	batchPool *ants.Pool
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithBatchWorkers sets how many files IngestBatch processes at once.
func WithBatchWorkers(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			n = 1
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		if p.batchPool != nil {
			p.batchPool.Release()
		}
		p.batchPool = pool
		return nil
	}
}

// WithKeyGenerator replaces the process-wide storage key generator.
func WithKeyGenerator(g *KeyGenerator) Option {
	return func(p *Pipeline) error {
		if g != nil {
			p.keys = g
		}
		return nil
	}
}

// WithClock overrides the time source for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now != nil {
			p.now = now
		}
		return nil
	}
}

// NewPipeline wires a Pipeline. Store, Repo and Owners are required.
func NewPipeline(deps Deps, opts ...Option) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, errors.New("ingest: object store is required")
	}
	if deps.Repo == nil {
		return nil, errors.New("ingest: document repository is required")
	}
	if deps.Owners == nil {
		return nil, errors.New("ingest: owner directory is required")
	}
	if deps.Enricher == nil {
		deps.Enricher = enrich.New(nil)
	}

	p := &Pipeline{
		store:     deps.Store,
		extractor: deps.Extractor,
		querier:   deps.Querier,
		enricher:  deps.Enricher,
		repo:      deps.Repo,
		owners:    deps.Owners,
		notifier:  deps.Notifier,
		keys:      defaultKeys,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}
	if p.batchPool == nil {
		size := runtime.NumCPU() / 2
		if size < 1 {
			size = 1
		}
		if err := WithBatchWorkers(size)(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Release stops the batch worker pool.
func (p *Pipeline) Release() {
	if p.batchPool != nil {
		p.batchPool.Release()
	}
}

// NewStorageKey reserves a storage key for fileName without storing anything.
func (p *Pipeline) NewStorageKey(fileName string) (string, error) {
	return p.keys.Next(fileName)
}

// Ingest stores, extracts, enriches and persists one file.
func (p *Pipeline) Ingest(ctx context.Context, file *UploadedFile, ownerID string) (documents.Document, error) {
	return p.IngestWith(ctx, file, ownerID, FullOptions())
}

// IngestWith runs the pipeline with explicit options.
func (p *Pipeline) IngestWith(ctx context.Context, file *UploadedFile, ownerID string, opts Options) (documents.Document, error) {
	start := time.Now()
	metrics.IncIngestStarted()

	if err := p.validate(ctx, file, ownerID); err != nil {
		metrics.IncIngestFailed("validate")
		return documents.Document{}, err
	}

	stored, err := p.put(ctx, file)
	if err != nil {
		metrics.IncIngestFailed("store")
		return documents.Document{}, err
	}

	doc, err := p.process(ctx, stored, ownerID, opts)
	if err != nil {
		return documents.Document{}, err
	}
	metrics.ObserveIngestDuration(time.Since(start))
	return doc, nil
}

// IngestStored runs the pipeline for an object already in the store.
func (p *Pipeline) IngestStored(ctx context.Context, obj StoredObject, ownerID string) (documents.Document, error) {
	start := time.Now()
	metrics.IncIngestStarted()

	obj.Key = strings.TrimSpace(obj.Key)
	obj.FileName = strings.TrimSpace(obj.FileName)
	if obj.Key == "" {
		metrics.IncIngestFailed("validate")
		return documents.Document{}, fmt.Errorf("%w: storage key is required", ErrInvalidInput)
	}
	if obj.FileName == "" {
		obj.FileName = fileNameFromKey(obj.Key)
	}
	if err := p.validateOwner(ctx, ownerID); err != nil {
		metrics.IncIngestFailed("validate")
		return documents.Document{}, err
	}

	info, err := p.store.Stat(ctx, obj.Key)
	if err != nil {
		metrics.IncIngestFailed("store")
		if errors.Is(err, object.ErrNotFound) {
			return documents.Document{}, fmt.Errorf("%w: no object stored under %q", ErrInvalidInput, obj.Key)
		}
		return documents.Document{}, fmt.Errorf("%w: stat %s: %v", ErrStorage, obj.Key, err)
	}
	if obj.Size <= 0 {
		obj.Size = info.Size
	}
	if obj.ContentType == "" {
		obj.ContentType = info.ContentType
	}
	if obj.ContentType == "" {
		obj.ContentType = defaultContentType
	}

	doc, err := p.process(ctx, obj, ownerID, FullOptions())
	if err != nil {
		return documents.Document{}, err
	}
	metrics.ObserveIngestDuration(time.Since(start))
	return doc, nil
}

// Extract stores a file and returns its text without enriching or persisting it.
func (p *Pipeline) Extract(ctx context.Context, file *UploadedFile, ownerID string) (ExtractResult, error) {
	if err := p.validate(ctx, file, ownerID); err != nil {
		return ExtractResult{}, err
	}
	stored, err := p.put(ctx, file)
	if err != nil {
		return ExtractResult{}, err
	}
	return ExtractResult{
		StorageKey:    stored.Key,
		FileName:      stored.FileName,
		FileSize:      stored.Size,
		FileType:      stored.ContentType,
		ExtractedText: p.extractText(ctx, stored),
	}, nil
}

// QueryDocument stores a file and asks the querier one question about it.
// Nothing is persisted. A failed or empty query yields NoQueryAnswer.
func (p *Pipeline) QueryDocument(ctx context.Context, file *UploadedFile, ownerID, question string) (QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return QueryResult{}, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(question) > extract.MaxQueryChars {
		return QueryResult{}, fmt.Errorf("%w: query exceeds %d characters", ErrInvalidInput, extract.MaxQueryChars)
	}
	if p.querier == nil {
		return QueryResult{}, ErrQueryUnsupported
	}
	if err := p.validate(ctx, file, ownerID); err != nil {
		return QueryResult{}, err
	}
	stored, err := p.put(ctx, file)
	if err != nil {
		return QueryResult{}, err
	}

	res := QueryResult{StorageKey: stored.Key, FileName: stored.FileName, Question: question, Answer: NoQueryAnswer}
	blocks, err := p.querier.Query(ctx, extract.Ref{
		Key:         stored.Key,
		ContentType: stored.ContentType,
		FileName:    stored.FileName,
	}, question)
	if err != nil {
		metrics.IncExtractionDegraded()
		telemetry.Warn("ingest.query_failed", map[string]any{
			"storage_key": stored.Key,
			"err":         err.Error(),
		})
		return res, nil
	}
	if answer := extract.JoinBlocks(blocks, extract.BlockTypeQueryResult); answer != "" {
		res.Answer = answer
		res.Found = true
	}
	telemetry.Info("ingest.queried", map[string]any{
		"storage_key": stored.Key,
		"found":       res.Found,
	})
	return res, nil
}

func (p *Pipeline) validate(ctx context.Context, file *UploadedFile, ownerID string) error {
	if file == nil {
		return fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	if strings.TrimSpace(file.Name) == "" {
		return fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if file.Content == nil {
		return fmt.Errorf("%w: file content is required", ErrInvalidInput)
	}
	return p.validateOwner(ctx, ownerID)
}

func (p *Pipeline) validateOwner(ctx context.Context, ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	ok, err := p.owners.Exists(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("%w: resolve owner: %v", ErrPersistence, err)
	}
	if !ok {
		return fmt.Errorf("%w: unknown owner %q", ErrInvalidInput, ownerID)
	}
	return nil
}

func (p *Pipeline) put(ctx context.Context, file *UploadedFile) (StoredObject, error) {
	key, err := p.keys.Next(file.Name)
	if err != nil {
		return StoredObject{}, err
	}
	contentType := strings.TrimSpace(file.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}
	size := file.Size
	if size < 0 {
		size = -1
	}

	written, err := p.store.Put(ctx, key, contentType, size, file.Content)
	if err != nil {
		telemetry.Error("ingest.store_failed", map[string]any{
			"storage_key": key,
			"provider":    p.store.Provider(),
			"err":         err.Error(),
		})
		return StoredObject{}, fmt.Errorf("%w: put %s: %v", ErrStorage, key, err)
	}
	return StoredObject{Key: key, FileName: file.Name, ContentType: contentType, Size: written}, nil
}

// process runs extract, enrich, persist and notify for a stored object.
func (p *Pipeline) process(ctx context.Context, obj StoredObject, ownerID string, opts Options) (documents.Document, error) {
	text := p.extractText(ctx, obj)
	res := p.enricher.Enrich(ctx, text, opts.enrichOptions())

	if opts.FileByCategory {
		p.fileByCategory(ctx, obj.Key, res.Category)
	}

	doc := documents.Document{
		UserID:           ownerID,
		FileName:         obj.FileName,
		FileSize:         obj.Size,
		FileType:         obj.ContentType,
		StorageProvider:  p.store.Provider(),
		StorageKey:       obj.Key,
		ExtractedText:    text,
		Category:         res.Category,
		SubCategory:      res.SubCategory,
		Summary:          res.Summary,
		SuggestedQueries: res.SuggestedQueries,
		CreatedAt:        p.now(),
	}
	saved, err := p.repo.Save(ctx, doc)
	if err != nil {
		metrics.IncIngestFailed("persist")
		telemetry.Error("ingest.persist_failed", map[string]any{
			"storage_key": obj.Key,
			"user_id":     ownerID,
			"err":         err.Error(),
		})
		return documents.Document{}, fmt.Errorf("%w: save document: %v", ErrPersistence, err)
	}

	if p.notifier != nil {
		if err := p.notifier.DocumentIngested(ctx, saved); err != nil {
			telemetry.Warn("ingest.notify_failed", map[string]any{
				"document_id": saved.ID,
				"err":         err.Error(),
			})
		}
	}

	metrics.IncIngestCompleted()
	telemetry.Info("ingest.completed", map[string]any{
		"document_id": saved.ID,
		"storage_key": saved.StorageKey,
		"user_id":     ownerID,
		"category":    saved.Category,
		"text_chars":  len(text),
		"degraded":    res.Degraded,
	})
	return saved, nil
}

// extractText never fails; extraction errors yield "".
func (p *Pipeline) extractText(ctx context.Context, obj StoredObject) string {
	if p.extractor == nil {
		return ""
	}
	blocks, err := p.extractor.Extract(ctx, extract.Ref{
		Key:         obj.Key,
		ContentType: obj.ContentType,
		FileName:    obj.FileName,
	})
	if err != nil {
		metrics.IncExtractionDegraded()
		telemetry.Warn("ingest.extract_failed", map[string]any{
			"storage_key":  obj.Key,
			"content_type": obj.ContentType,
			"err":          err.Error(),
		})
		return ""
	}
	return extract.JoinLines(blocks)
}

func (p *Pipeline) fileByCategory(ctx context.Context, key, category string) {
	dst := category + "/" + key
	if err := p.store.Copy(ctx, key, dst); err != nil {
		telemetry.Warn("ingest.file_by_category_failed", map[string]any{
			"storage_key": key,
			"category":    category,
			"err":         err.Error(),
		})
	}
}

// fileNameFromKey strips the "<nanos>-" prefix and any directories from a storage key.
func fileNameFromKey(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	if i := strings.IndexByte(key, '-'); i > 0 && strings.Trim(key[:i], "0123456789") == "" {
		return key[i+1:]
	}
	return key
}
