package usecase

import (
	"context"
	"fmt"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
	"github.com/mpetrov/rag-chatbot/internal/core/ports"
)

// ProcessUseCase runs the extract, chunk, index pipeline for one registered
// document and tracks its status through processing, ready, or failed.
// Fragments are indexed under the document name, so re-uploading a file with
// the same name replaces its records.
type ProcessUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	indexer   ports.KnowledgeIndexer
}

func NewProcessUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	indexer ports.KnowledgeIndexer,
) *ProcessUseCase {
	return &ProcessUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		indexer:   indexer,
	}
}

func (uc *ProcessUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	chunkCount, err := uc.pipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.MarkReady(ctx, documentID, chunkCount); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	return nil
}

func (uc *ProcessUseCase) pipeline(ctx context.Context, documentID string) (int, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("extract text: %w", err)
	}

	chunks, err := uc.chunker.Split(text)
	if err != nil {
		return 0, fmt.Errorf("chunk text: %w", err)
	}

	count, err := uc.indexer.Add(ctx, doc.Name, chunks)
	if err != nil {
		return 0, fmt.Errorf("index fragments: %w", err)
	}

	return count, nil
}
