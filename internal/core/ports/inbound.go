package ports

import (
	"context"
	"io"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

// DocumentIngestor is the inbound contract for registering new sources.
type DocumentIngestor interface {
	UploadDocument(ctx context.Context, name, contentType string, size int64, body io.Reader) (*domain.Document, error)
	AddURL(ctx context.Context, url string) (*domain.Document, error)
	Enqueue(ctx context.Context, documentID string) error
}

// DocumentProcessor is the inbound contract for extract-chunk-index runs.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for registry state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// KnowledgeIndexer owns the lifecycle of indexed records.
type KnowledgeIndexer interface {
	Add(ctx context.Context, source string, texts []string) (int, error)
	DeleteSource(ctx context.Context, source string) error
	Clear(ctx context.Context) error
	Sources(ctx context.Context) ([]string, error)
}

// KnowledgeSearcher answers ranked similarity queries.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.RetrievalMatch, error)
	SearchExpanded(ctx context.Context, query string, k int) ([]domain.RetrievalMatch, error)
}

// AnswerService runs the full retrieve-assemble-generate flow.
type AnswerService interface {
	Answer(ctx context.Context, question string) domain.QueryAnswer
	AnswerStream(ctx context.Context, question string, emit func(chunk string) error) error
}
