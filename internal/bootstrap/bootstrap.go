package bootstrap

import (
	"context"
	"fmt"

	"github.com/mpetrov/rag-chatbot/internal/config"
	"github.com/mpetrov/rag-chatbot/internal/core/ports"
	"github.com/mpetrov/rag-chatbot/internal/core/usecase"
	"github.com/mpetrov/rag-chatbot/internal/infrastructure/chunking"
	"github.com/mpetrov/rag-chatbot/internal/infrastructure/extractor"
	"github.com/mpetrov/rag-chatbot/internal/infrastructure/llm/ollama"
	natsqueue "github.com/mpetrov/rag-chatbot/internal/infrastructure/queue/nats"
	"github.com/mpetrov/rag-chatbot/internal/infrastructure/repository/postgres"
	"github.com/mpetrov/rag-chatbot/internal/infrastructure/resilience"
	"github.com/mpetrov/rag-chatbot/internal/infrastructure/storage/localfs"
	"github.com/mpetrov/rag-chatbot/internal/infrastructure/vector/memory"
	"github.com/mpetrov/rag-chatbot/internal/infrastructure/vector/qdrant"
)

// QueryApp wires the retrieval side only: Ollama, the vector index, and the
// query use cases. The MCP binary runs on this without Postgres or NATS.
type QueryApp struct {
	Config config.Config

	IndexUC  *usecase.IndexUseCase
	SearchUC *usecase.RetrieveUseCase
	AnswerUC *usecase.AnswerUseCase
	Catalog  ports.ModelCatalog

	executor *resilience.Executor
}

func NewQueryApp(cfg config.Config) (*QueryApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	rules, err := config.LoadExpansionRules(cfg.ExpansionRulesPath)
	if err != nil {
		return nil, fmt.Errorf("load expansion rules: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)
	catalog := ollama.NewCatalog(ollamaClient)

	index := newVectorIndex(cfg, executor)

	indexUC := usecase.NewIndexUseCase(embedder, index)
	searchUC := usecase.NewRetrieveUseCase(embedder, index, rules)
	answerUC := usecase.NewAnswerUseCase(searchUC, generator, cfg.TopKResults, cfg.MaxContextChars, cfg.TopSources)

	return &QueryApp{
		Config: cfg,

		IndexUC:  indexUC,
		SearchUC: searchUC,
		AnswerUC: answerUC,
		Catalog:  catalog,

		executor: executor,
	}, nil
}

// newVectorIndex selects the index backend. The sentinel value "memory" for
// QDRANT_URL picks the in-process index for local runs; anything else is
// treated as a Qdrant base URL.
func newVectorIndex(cfg config.Config, executor *resilience.Executor) ports.VectorIndex {
	if cfg.QdrantURL == "memory" {
		return memory.New()
	}
	return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)
}

// App is the full composition: the query side plus the registry, object
// storage and queue the API and worker binaries need.
type App struct {
	*QueryApp

	Queue ports.MessageQueue
	Repo  ports.DocumentRepository

	IngestUC  *usecase.IngestUseCase
	ProcessUC *usecase.ProcessUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	queryApp, err := NewQueryApp(cfg)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: queryApp.executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extract := extractor.NewDispatcher(storage)

	ingestUC := usecase.NewIngestUseCase(repo, storage, queue)
	processUC := usecase.NewProcessUseCase(repo, extract, chunker, queryApp.IndexUC)

	return &App{
		QueryApp: queryApp,

		Queue: queue,
		Repo:  repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
