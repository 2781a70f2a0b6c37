package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
	"github.com/mpetrov/rag-chatbot/internal/core/ports"
)

// Dispatcher picks the extraction strategy for a document: URL documents are
// fetched and scraped, file documents are read from object storage and
// decoded by filename extension.
type Dispatcher struct {
	storage ports.ObjectStorage
	web     *webFetcher
}

func NewDispatcher(storage ports.ObjectStorage) *Dispatcher {
	return &Dispatcher{
		storage: storage,
		web:     newWebFetcher(),
	}
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	if doc.Kind == domain.KindURL {
		return d.web.fetch(ctx, doc.Name)
	}

	raw, err := d.read(ctx, doc.StorageKey)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(doc.Name))
	switch ext {
	case ".txt", ".md":
		return extractPlaintext(raw, doc.Name)
	case ".pdf":
		return extractPDF(raw)
	case ".docx":
		return extractDOCX(raw)
	case ".xlsx":
		return extractXLSX(raw)
	default:
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract", fmt.Errorf("extension %q", ext))
	}
}

func (d *Dispatcher) read(ctx context.Context, key string) ([]byte, error) {
	reader, err := d.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}
	return raw, nil
}
