package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
	"github.com/mpetrov/rag-chatbot/internal/core/ports"
)

// IngestUseCase registers new sources: uploaded files go to object storage,
// URLs are registered as-is and fetched later by the processor. Registration
// never extracts or indexes anything; that is the processor's job, run
// either inline by the caller or via Enqueue.
type IngestUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestUseCase {
	return &IngestUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestUseCase) UploadDocument(
	ctx context.Context,
	name, contentType string,
	size int64,
	body io.Reader,
) (*domain.Document, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(name))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		Name:        name,
		Kind:        domain.KindFile,
		ContentType: contentType,
		SizeBytes:   size,
		StorageKey:  storageKey,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	return doc, nil
}

func (uc *IngestUseCase) AddURL(ctx context.Context, rawURL string) (*domain.Document, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Name:      rawURL,
		Kind:      domain.KindURL,
		Status:    domain.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	return doc, nil
}

// Enqueue hands the registered document to the background worker.
func (uc *IngestUseCase) Enqueue(ctx context.Context, documentID string) error {
	job := domain.IngestJob{
		DocumentID: documentID,
		QueuedAt:   time.Now().UTC(),
	}
	if err := uc.queue.PublishIngestJob(ctx, job); err != nil {
		return fmt.Errorf("publish ingest job: %w", err)
	}
	return nil
}

func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate url", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return domain.WrapError(domain.ErrInvalidInput, "validate url", fmt.Errorf("unsupported scheme %q", parsed.Scheme))
	}
	if parsed.Host == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate url", errors.New("missing host"))
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
