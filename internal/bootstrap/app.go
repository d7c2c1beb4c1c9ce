package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "docflow-backend/internal/auth"
	"docflow-backend/internal/documents"
	"docflow-backend/internal/enrich"
	"docflow-backend/internal/extract"
	"docflow-backend/internal/extract/textract"
	"docflow-backend/internal/ingest"
	"docflow-backend/internal/llm"
	"docflow-backend/internal/llm/langchain"
	"docflow-backend/internal/llm/openai"
	"docflow-backend/internal/queue"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/server"
	"docflow-backend/internal/shared/storage/db"
	"docflow-backend/internal/shared/storage/object"
	localstore "docflow-backend/internal/shared/storage/object/local"
	s3store "docflow-backend/internal/shared/storage/object/s3"
	"docflow-backend/internal/shared/telemetry"
	"docflow-backend/internal/similarity"
	"docflow-backend/internal/uploads"
	"docflow-backend/internal/users"
)

const appName = "docflow"

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	DocumentsRepo documents.DocumentsRepo
	UsersRepo     users.Repo

	Completer  llm.Completer
	Embedder   llm.Embedder
	Extractor  extract.Extractor
	Enricher   *enrich.Enricher
	Pipeline   *ingest.Pipeline
	Similarity *similarity.Service

	DocumentsService *documents.Service
	UsersService     *users.Service

	DocumentsHandler  *documents.Handler
	IngestHandler     *ingest.Handler
	SimilarityHandler *similarity.Handler
	UploadsHandler    *uploads.Handler
	UsersHandler      *users.Handler
	GoogleAuth        *googleauth.GoogleService
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	extractor, err := buildExtractor(ctx, cfg, store)
	if err != nil {
		return nil, err
	}

	completer, err := buildCompleter(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Queue:     queueClient,
		Extractor: extractor,
		Completer: completer,
		Embedder:  buildEmbedder(cfg),
	}

	if err := buildServices(app); err != nil {
		app.Close()
		return nil, err
	}

	handlers := []server.RouteRegistrar{
		app.GoogleAuth,
		app.UsersHandler,
		app.IngestHandler,
		app.DocumentsHandler,
	}
	if app.SimilarityHandler != nil {
		handlers = append(handlers, app.SimilarityHandler)
	}
	if app.UploadsHandler != nil {
		handlers = append(handlers, app.UploadsHandler)
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Handlers: handlers,
		Health:   app.healthCheck,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":        cfg.Env,
		"store":      store.Provider(),
		"extractor":  cfg.ExtractorType,
		"llm":        cfg.LLMProvider,
		"database":   sqlDB != nil,
		"similarity": app.Similarity != nil,
		"queue":      queueClient != nil,
	})
	return app, nil
}

// Close releases the worker pool and the database.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Pipeline != nil {
		a.Pipeline.Release()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func (a *App) healthCheck() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Ping()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.DevLike() {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if cfg.DevLike() {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if cfg.DevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
}

func buildExtractor(ctx context.Context, cfg config.Config, store object.ObjectStore) (extract.Extractor, error) {
	if cfg.ExtractorType == "textract" {
		if _, ok := store.(object.Locator); !ok {
			return nil, fmt.Errorf("EXTRACTOR=textract requires OBJECT_STORE=s3")
		}
		return textract.New(ctx, cfg.AWSRegion, store)
	}
	return extract.NewLocal(store), nil
}

func buildCompleter(cfg config.Config) (llm.Completer, error) {
	switch cfg.LLMProvider {
	case "langchain":
		return langchain.NewCompleter(langchain.Config{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		})
	case "openai":
		if strings.TrimSpace(cfg.LLMAPIKey) == "" {
			if cfg.DevLike() || cfg.Env == "test" {
				log.Printf("bootstrap: LLM_API_KEY empty; enrichment uses default values")
				return llm.PlaceholderClient{}, nil
			}
			return nil, fmt.Errorf("LLM_API_KEY is required")
		}
		return openai.NewClient(openai.Config{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
			AppName: appName,
		})
	default:
		return llm.PlaceholderClient{}, nil
	}
}

// buildEmbedder returns nil when no embedding provider is usable.
func buildEmbedder(cfg config.Config) llm.Embedder {
	if cfg.LLMProvider == "none" || strings.TrimSpace(cfg.EmbeddingModel) == "" {
		return nil
	}
	if cfg.LLMProvider != "langchain" && strings.TrimSpace(cfg.LLMAPIKey) == "" {
		return nil
	}
	embedder, err := langchain.NewEmbedder(langchain.Config{
		BaseURL:        cfg.EmbeddingBaseURL,
		APIKey:         cfg.LLMAPIKey,
		EmbeddingModel: cfg.EmbeddingModel,
		Timeout:        cfg.LLMTimeout,
	})
	if err != nil {
		telemetry.Warn("bootstrap.embedder_disabled", map[string]any{"err": err.Error()})
		return nil
	}
	return embedder
}

func buildServices(app *App) error {
	var (
		docRepo  documents.DocumentsRepo
		userRepo users.Repo
		index    similarity.Index
	)
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
		index = &similarity.PGIndex{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
		index = similarity.NewMemoryIndex()
	}

	userSvc := users.NewService(userRepo)
	docSvc := documents.NewService(docRepo, userSvc, app.Config.DocumentCacheSize, app.Config.DocumentCacheTTL)

	enricher := enrich.New(app.Completer,
		enrich.WithMaxInputChars(app.Config.EnrichMaxInputChars),
		enrich.WithCallTimeout(app.Config.LLMTimeout),
	)

	if app.Embedder != nil {
		app.Similarity = &similarity.Service{
			Embedder: app.Embedder,
			Model:    app.Config.EmbeddingModel,
			Index:    index,
			Docs:     docSvc,
		}
	}

	var notifier ingest.Notifier
	switch {
	case app.Queue != nil:
		notifier = queue.NewPublisher(app.Queue)
	case app.Similarity != nil:
		notifier = app.Similarity
	}

	querier, _ := app.Extractor.(extract.Querier)
	pipeline, err := ingest.NewPipeline(ingest.Deps{
		Store:     app.Store,
		Extractor: app.Extractor,
		Querier:   querier,
		Enricher:  enricher,
		Repo:      docRepo,
		Owners:    userSvc,
		Notifier:  notifier,
	}, ingest.WithBatchWorkers(app.Config.BatchIngestWorkers))
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	app.DocumentsRepo = docRepo
	app.UsersRepo = userRepo
	app.Enricher = enricher
	app.Pipeline = pipeline
	app.DocumentsService = docSvc
	app.UsersService = userSvc

	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.IngestHandler = ingest.NewHandler(pipeline, userSvc, docSvc)
	app.UsersHandler = users.NewHandler(userSvc)
	app.UploadsHandler = uploads.NewHandler(app.Store, pipeline)
	if app.Similarity != nil {
		app.SimilarityHandler = similarity.NewHandler(app.Similarity)
	}
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)
	return nil
}
