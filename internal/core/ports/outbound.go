package ports

import (
	"context"
	"io"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

// DocumentRepository persists and reads document registry state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	MarkReady(ctx context.Context, id string, chunkCount int) error
}

// ObjectStorage stores raw uploaded payloads.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion jobs.
type MessageQueue interface {
	PublishIngestJob(ctx context.Context, job domain.IngestJob) error
	SubscribeIngestJobs(ctx context.Context, handler func(context.Context, domain.IngestJob) error) error
}

// TextExtractor yields plain text for a registered document (file or URL).
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits extracted text into ordered overlapping fragments.
type Chunker interface {
	Split(text string) ([]string, error)
}

// Embedder builds fixed-length vectors for fragment batches and query text,
// preserving input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the nearest-neighbor store for indexed records.
type VectorIndex interface {
	Upsert(ctx context.Context, records []domain.IndexRecord) error
	Query(ctx context.Context, vector []float32, k int) ([]domain.IndexHit, error)
	DeleteBySource(ctx context.Context, source string) error
	Clear(ctx context.Context) error
	ListSources(ctx context.Context) ([]string, error)
}

// LanguageModel completes a prompt, whole or as a cancellable chunk stream.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteStream(ctx context.Context, prompt string, emit func(chunk string) error) error
}

// ModelCatalog lists the models the generation backend currently serves.
type ModelCatalog interface {
	ListModels(ctx context.Context) ([]string, error)
}
