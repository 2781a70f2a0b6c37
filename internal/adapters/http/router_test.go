package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mpetrov/rag-chatbot/internal/config"
	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

type ingestFake struct {
	uploadErr  error
	urlErr     error
	enqueueErr error

	uploadedName string
	uploadedBody []byte
	addedURL     string
	enqueued     []string
}

func (f *ingestFake) UploadDocument(_ context.Context, name, contentType string, size int64, body io.Reader) (*domain.Document, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.uploadedName = name
	f.uploadedBody = raw

	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		Name:        name,
		Kind:        domain.KindFile,
		ContentType: contentType,
		SizeBytes:   size,
		StorageKey:  "doc-1_" + name,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (f *ingestFake) AddURL(_ context.Context, url string) (*domain.Document, error) {
	if f.urlErr != nil {
		return nil, f.urlErr
	}
	f.addedURL = url

	now := time.Now().UTC()
	return &domain.Document{
		ID:        "doc-2",
		Name:      url,
		Kind:      domain.KindURL,
		Status:    domain.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (f *ingestFake) Enqueue(_ context.Context, documentID string) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.enqueued = append(f.enqueued, documentID)
	return nil
}

type processorFake struct {
	err       error
	processed []string
}

func (f *processorFake) ProcessByID(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.processed = append(f.processed, documentID)
	return nil
}

type docsFake struct {
	doc *domain.Document
	err error
}

func (f *docsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.doc != nil {
		return f.doc, nil
	}
	now := time.Now().UTC()
	return &domain.Document{
		ID:         id,
		Name:       "file.txt",
		Kind:       domain.KindFile,
		Status:     domain.StatusReady,
		ChunkCount: 3,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

type indexerFake struct {
	sources    []string
	sourcesErr error
	clearErr   error
	deleteErr  error

	cleared bool
	deleted []string
}

func (f *indexerFake) Add(_ context.Context, _ string, texts []string) (int, error) {
	return len(texts), nil
}

func (f *indexerFake) DeleteSource(_ context.Context, source string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, source)
	return nil
}

func (f *indexerFake) Clear(context.Context) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = true
	return nil
}

func (f *indexerFake) Sources(context.Context) ([]string, error) {
	if f.sourcesErr != nil {
		return nil, f.sourcesErr
	}
	return f.sources, nil
}

type answerFake struct {
	result domain.QueryAnswer
	chunks []string

	lastQuestion string
}

func (f *answerFake) Answer(_ context.Context, question string) domain.QueryAnswer {
	f.lastQuestion = question
	return f.result
}

func (f *answerFake) AnswerStream(_ context.Context, question string, emit func(chunk string) error) error {
	f.lastQuestion = question
	for _, chunk := range f.chunks {
		if err := emit(chunk); err != nil {
			return err
		}
	}
	return nil
}

type catalogFake struct {
	models []string
	err    error
}

func (f *catalogFake) ListModels(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.models, nil
}

type routerFixture struct {
	cfg       config.Config
	ingest    *ingestFake
	processor *processorFake
	docs      *docsFake
	indexer   *indexerFake
	answerer  *answerFake
	catalog   *catalogFake
}

func newFixture() *routerFixture {
	return &routerFixture{
		cfg: config.Config{
			OllamaGenModel:    "gemma3:1b",
			OllamaEmbedModel:  "nomic-embed-text",
			QdrantCollection:  "documents",
			MaxUploadBytes:    1024,
			AllowedExtensions: ".pdf,.docx,.txt,.md,.xlsx",
			TopKResults:       10,
		},
		ingest:    &ingestFake{},
		processor: &processorFake{},
		docs:      &docsFake{},
		indexer:   &indexerFake{},
		answerer:  &answerFake{},
		catalog:   &catalogFake{models: []string{"gemma3:1b"}},
	}
}

func (fx *routerFixture) handler() http.Handler {
	return NewRouter(
		fx.cfg,
		fx.ingest,
		fx.processor,
		fx.docs,
		fx.indexer,
		fx.answerer,
		fx.catalog,
		nil,
	).Handler()
}

func newTestHandler(cfg config.Config) http.Handler {
	fx := newFixture()
	fx.cfg = cfg
	return fx.handler()
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func decodeJSON(t *testing.T, res *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
