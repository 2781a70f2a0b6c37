package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/mpetrov/rag-chatbot/internal/config"
	"github.com/mpetrov/rag-chatbot/internal/core/domain"
	"github.com/mpetrov/rag-chatbot/internal/core/ports"
	"github.com/mpetrov/rag-chatbot/internal/observability/metrics"
)

type uploadResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ChunksCount int    `json:"chunks_count"`
	Source      string `json:"source"`
}

type queryRequest struct {
	Question       string `json:"question"`
	IncludeSources bool   `json:"include_sources"`
}

type queryResponse struct {
	Success     bool               `json:"success"`
	Answer      string             `json:"answer"`
	Sources     []domain.SourceRef `json:"sources"`
	ContextUsed string             `json:"context_used"`
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type knowledgeBaseInfo struct {
	TotalSources int      `json:"total_sources"`
	Sources      []string `json:"sources"`
}

type systemStatusResponse struct {
	OllamaModel      string            `json:"ollama_model"`
	ModelAvailable   bool              `json:"model_available"`
	EmbeddingModel   string            `json:"embedding_model"`
	VectorCollection string            `json:"vector_collection"`
	KnowledgeBase    knowledgeBaseInfo `json:"knowledge_base"`
}

type documentAcceptedResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

type Router struct {
	cfg       config.Config
	ingest    ports.DocumentIngestor
	processor ports.DocumentProcessor
	docs      ports.DocumentReader
	indexer   ports.KnowledgeIndexer
	answerer  ports.AnswerService
	catalog   ports.ModelCatalog
	metrics   *metrics.HTTPServerMetrics

	allowedExts map[string]struct{}
}

func NewRouter(
	cfg config.Config,
	ingest ports.DocumentIngestor,
	processor ports.DocumentProcessor,
	docs ports.DocumentReader,
	indexer ports.KnowledgeIndexer,
	answerer ports.AnswerService,
	catalog ports.ModelCatalog,
	m *metrics.HTTPServerMetrics,
) *Router {
	allowedExts := make(map[string]struct{})
	for _, ext := range cfg.AllowedExtensionList() {
		allowedExts[ext] = struct{}{}
	}
	return &Router{
		cfg:         cfg,
		ingest:      ingest,
		processor:   processor,
		docs:        docs,
		indexer:     indexer,
		answerer:    answerer,
		catalog:     catalog,
		metrics:     m,
		allowedExts: allowedExts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.handleRoot)
	mux.HandleFunc("/health", rt.handleHealth)
	mux.HandleFunc("/status", rt.handleStatus)
	mux.HandleFunc("/upload", rt.handleUpload)
	mux.HandleFunc("/add-url", rt.handleAddURL)
	mux.HandleFunc("/query", rt.handleQuery)
	mux.HandleFunc("/query-stream", rt.handleQueryStream)
	mux.HandleFunc("/knowledge-base", rt.handleKnowledgeBase)
	mux.HandleFunc("/source", rt.handleDeleteSource)
	mux.HandleFunc("/v1/documents", rt.handleCreateDocument)
	mux.HandleFunc("/v1/documents/", rt.handleGetDocument)
	mux.HandleFunc("/openapi.json", rt.handleOpenAPI)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.APIMaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxConcurrent, time.Duration(rt.cfg.APIQueueTimeoutMS)*time.Millisecond)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "RAG ChatBot API is running!"})
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (rt *Router) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	sources, err := rt.indexer.Sources(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, systemStatusResponse{
		OllamaModel:      rt.cfg.OllamaGenModel,
		ModelAvailable:   rt.modelAvailable(r.Context()),
		EmbeddingModel:   rt.cfg.OllamaEmbedModel,
		VectorCollection: rt.cfg.QdrantCollection,
		KnowledgeBase: knowledgeBaseInfo{
			TotalSources: len(sources),
			Sources:      sources,
		},
	})
}

func (rt *Router) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	if status, msg := rt.validateUpload(header.Filename, header.Size); status != 0 {
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	ctx := r.Context()
	doc, err := rt.ingest.UploadDocument(ctx, header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		rt.recordIngest("file", "error")
		writeJSON(w, mapErrorToHTTPStatus(err), uploadResponse{
			Message: fmt.Sprintf("Error processing file: %v", err),
			Source:  header.Filename,
		})
		return
	}

	if err := rt.processor.ProcessByID(ctx, doc.ID); err != nil {
		rt.recordIngest("file", "error")
		writeJSON(w, mapErrorToHTTPStatus(err), uploadResponse{
			Message: fmt.Sprintf("Error processing file: %v", err),
			Source:  header.Filename,
		})
		return
	}

	chunks := rt.chunkCount(ctx, doc.ID)
	rt.recordIngest("file", "success")
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:     true,
		Message:     fmt.Sprintf("Successfully processed %d chunks from file", chunks),
		ChunksCount: chunks,
		Source:      header.Filename,
	})
}

func (rt *Router) handleAddURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}

	ctx := r.Context()
	doc, err := rt.ingest.AddURL(ctx, req.URL)
	if err != nil {
		rt.recordIngest("url", "error")
		writeJSON(w, mapErrorToHTTPStatus(err), uploadResponse{
			Message: fmt.Sprintf("Error processing URL: %v", err),
			Source:  req.URL,
		})
		return
	}

	if err := rt.processor.ProcessByID(ctx, doc.ID); err != nil {
		rt.recordIngest("url", "error")
		writeJSON(w, mapErrorToHTTPStatus(err), uploadResponse{
			Message: fmt.Sprintf("Error processing URL: %v", err),
			Source:  req.URL,
		})
		return
	}

	chunks := rt.chunkCount(ctx, doc.ID)
	rt.recordIngest("url", "success")
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:     true,
		Message:     fmt.Sprintf("Successfully processed %d chunks from URL", chunks),
		ChunksCount: chunks,
		Source:      req.URL,
	})
}

func (rt *Router) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	req := queryRequest{IncludeSources: true}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	result := rt.answerer.Answer(r.Context(), req.Question)

	if !result.Success() {
		writeJSON(w, mapErrorToHTTPStatus(result.Err), queryResponse{
			Answer:  result.Answer,
			Sources: []domain.SourceRef{},
		})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRAGObservation("query", len(result.Sources), time.Since(start))
	}

	sources := result.Sources
	if !req.IncludeSources || sources == nil {
		sources = []domain.SourceRef{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Success:     true,
		Answer:      result.Answer,
		Sources:     sources,
		ContextUsed: result.ContextUsed,
	})
}

func (rt *Router) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	err := rt.answerer.AnswerStream(r.Context(), req.Question, func(chunk string) error {
		if _, werr := fmt.Fprintf(w, "data: %s\n\n", chunk); werr != nil {
			return werr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Headers are already out; the consumer dropped mid-stream.
		slog.Warn("query_stream_aborted", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
}

func (rt *Router) handleKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sources, err := rt.indexer.Sources(r.Context())
		if err != nil {
			writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, knowledgeBaseInfo{
			TotalSources: len(sources),
			Sources:      sources,
		})
	case http.MethodDelete:
		if err := rt.indexer.Clear(r.Context()); err != nil {
			writeJSON(w, mapErrorToHTTPStatus(err), actionResponse{
				Message: fmt.Sprintf("Error clearing knowledge base: %v", err),
			})
			return
		}
		writeJSON(w, http.StatusOK, actionResponse{
			Success: true,
			Message: "Successfully cleared knowledge base",
		})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "source is required"})
		return
	}

	if err := rt.indexer.DeleteSource(r.Context(), req.Source); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), actionResponse{
			Message: fmt.Sprintf("Error deleting source: %v", err),
		})
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully deleted source: %s", req.Source),
	})
}

// handleCreateDocument is the async ingest path: persist and enqueue, the
// worker does the processing.
func (rt *Router) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	if status, msg := rt.validateUpload(header.Filename, header.Size); status != 0 {
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	ctx := r.Context()
	doc, err := rt.ingest.UploadDocument(ctx, header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		rt.recordIngest("file", "error")
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if err := rt.ingest.Enqueue(ctx, doc.ID); err != nil {
		rt.recordIngest("file", "error")
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	rt.recordIngest("file", "enqueued")
	writeJSON(w, http.StatusAccepted, documentAcceptedResponse{
		DocumentID: doc.ID,
		Status:     string(doc.Status),
	})
}

func (rt *Router) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapiDocument)
}

// validateUpload returns a non-zero status and a message when the upload
// must be rejected before touching storage.
func (rt *Router) validateUpload(filename string, size int64) (int, string) {
	if rt.cfg.MaxUploadBytes > 0 && size > rt.cfg.MaxUploadBytes {
		return http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File size exceeds maximum allowed size of %d bytes", rt.cfg.MaxUploadBytes)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := rt.allowedExts[ext]; !ok {
		return http.StatusBadRequest,
			fmt.Sprintf("File type not supported. Allowed types: %s", strings.Join(rt.cfg.AllowedExtensionList(), ", "))
	}
	return 0, ""
}

func (rt *Router) modelAvailable(ctx context.Context) bool {
	if rt.catalog == nil {
		return false
	}
	models, err := rt.catalog.ListModels(ctx)
	if err != nil {
		slog.Warn("model_catalog_unavailable", "error", err)
		return false
	}
	for _, model := range models {
		if model == rt.cfg.OllamaGenModel {
			return true
		}
	}
	return false
}

func (rt *Router) chunkCount(ctx context.Context, documentID string) int {
	if rt.docs == nil {
		return 0
	}
	doc, err := rt.docs.GetByID(ctx, documentID)
	if err != nil {
		slog.Warn("document_refetch_failed", "document_id", documentID, "error", err)
		return 0
	}
	return doc.ChunkCount
}

func (rt *Router) recordIngest(kind, result string) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordIngest(kind, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
