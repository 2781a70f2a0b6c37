package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
	"github.com/mpetrov/rag-chatbot/internal/core/ports"
)

// recordNamespace scopes the deterministic UUIDs derived from a fragment's
// (source, chunk index) position.
var recordNamespace = uuid.MustParse("8c290b2e-51f4-4c3a-9b1f-7c2d94f0a6b3")

// recordID maps a source position to a stable point identifier. The same
// position always yields the same UUID, so re-ingesting a source overwrites
// records instead of duplicating them.
func recordID(source string, chunkIndex int) string {
	return uuid.NewSHA1(recordNamespace, []byte(fmt.Sprintf("%s:%d", source, chunkIndex))).String()
}

// IndexUseCase owns the lifecycle of indexed records: it turns fragment
// texts into embedded records under a source and handles deletion, clearing,
// and the knowledge-base listing.
type IndexUseCase struct {
	embedder ports.Embedder
	index    ports.VectorIndex
}

func NewIndexUseCase(embedder ports.Embedder, index ports.VectorIndex) *IndexUseCase {
	return &IndexUseCase{
		embedder: embedder,
		index:    index,
	}
}

// Add embeds the fragment texts in one batch and upserts them under source,
// assigning chunk positions by input order. Existing records for the source
// are deleted first so a re-ingest with fewer fragments cannot strand
// leftovers from the prior run. Returns the number of records written.
func (uc *IndexUseCase) Add(ctx context.Context, source string, texts []string) (int, error) {
	if source == "" {
		return 0, domain.WrapError(domain.ErrInvalidInput, "add to index", errors.New("empty source"))
	}
	if len(texts) == 0 {
		return 0, domain.WrapError(domain.ErrEmptyInput, "add to index", errors.New("no fragment texts"))
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed fragments: %w", err)
	}
	if len(vectors) != len(texts) {
		return 0, domain.WrapError(
			domain.ErrEmbedding,
			"embed fragments",
			fmt.Errorf("vectors/fragments mismatch: %d/%d", len(vectors), len(texts)),
		)
	}

	records := make([]domain.IndexRecord, 0, len(texts))
	for i, text := range texts {
		records = append(records, domain.IndexRecord{
			ID: recordID(source, i),
			Fragment: domain.Fragment{
				Text:       text,
				Source:     source,
				ChunkIndex: i,
				ChunkCount: len(texts),
			},
			Vector: vectors[i],
		})
	}

	if err := uc.index.DeleteBySource(ctx, source); err != nil {
		return 0, fmt.Errorf("delete prior records: %w", err)
	}
	if err := uc.index.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert records: %w", err)
	}
	return len(records), nil
}

// DeleteSource removes every record ingested under the source. Deleting an
// absent source is not an error.
func (uc *IndexUseCase) DeleteSource(ctx context.Context, source string) error {
	if err := uc.index.DeleteBySource(ctx, source); err != nil {
		return fmt.Errorf("delete source records: %w", err)
	}
	return nil
}

// Clear removes all records unconditionally.
func (uc *IndexUseCase) Clear(ctx context.Context) error {
	if err := uc.index.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	return nil
}

// Sources lists the distinct source identifiers currently indexed, sorted
// for stable output.
func (uc *IndexUseCase) Sources(ctx context.Context) ([]string, error) {
	sources, err := uc.index.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	sort.Strings(sources)
	return sources, nil
}
