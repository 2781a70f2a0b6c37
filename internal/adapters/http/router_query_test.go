package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

func postQuery(t *testing.T, handler http.Handler, payload any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestQueryReturnsAnswerWithSources(t *testing.T) {
	fx := newFixture()
	fx.answerer.result = domain.QueryAnswer{
		Outcome: domain.OutcomeAnswered,
		Answer:  "He built a RAG chatbot.",
		Sources: []domain.SourceRef{
			{Source: "resume.pdf", RelevanceScore: 0.912, ChunkInfo: "Chunk 1 of 4"},
		},
		ContextUsed: "resume context",
	}
	handler := fx.handler()

	res := postQuery(t, handler, map[string]any{"question": "what did he build?"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var resp queryResponse
	decodeJSON(t, res, &resp)
	if !resp.Success {
		t.Fatal("expected success=true")
	}
	if resp.Answer != "He built a RAG chatbot." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Source != "resume.pdf" {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if resp.Sources[0].ChunkInfo != "Chunk 1 of 4" {
		t.Errorf("chunk_info = %q", resp.Sources[0].ChunkInfo)
	}
	if resp.ContextUsed != "resume context" {
		t.Errorf("context_used = %q", resp.ContextUsed)
	}
	if fx.answerer.lastQuestion != "what did he build?" {
		t.Errorf("question passed = %q", fx.answerer.lastQuestion)
	}
}

func TestQueryOmitsSourcesWhenDisabled(t *testing.T) {
	fx := newFixture()
	fx.answerer.result = domain.QueryAnswer{
		Outcome: domain.OutcomeAnswered,
		Answer:  "yes",
		Sources: []domain.SourceRef{{Source: "resume.pdf"}},
	}
	handler := fx.handler()

	res := postQuery(t, handler, map[string]any{"question": "q", "include_sources": false})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp queryResponse
	decodeJSON(t, res, &resp)
	if len(resp.Sources) != 0 {
		t.Errorf("sources should be empty, got %+v", resp.Sources)
	}

	// The field must serialize as [] rather than null.
	if !bytes.Contains(res.Body.Bytes(), []byte(`"sources":[]`)) {
		t.Errorf("sources not serialized as empty array: %s", res.Body.String())
	}
}

func TestQueryEmptyKnowledgeBaseAnswer(t *testing.T) {
	fx := newFixture()
	fx.answerer.result = domain.QueryAnswer{
		Outcome: domain.OutcomeEmpty,
		Answer:  domain.NoInformationAnswer,
		Sources: []domain.SourceRef{},
	}
	handler := fx.handler()

	res := postQuery(t, handler, map[string]any{"question": "anything?"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty outcome, got %d", res.Code)
	}

	var resp queryResponse
	decodeJSON(t, res, &resp)
	if !resp.Success {
		t.Fatal("empty outcome is still a successful response")
	}
	if resp.Answer != domain.NoInformationAnswer {
		t.Errorf("answer = %q", resp.Answer)
	}
}

func TestQueryRejectsBlankQuestion(t *testing.T) {
	handler := newFixture().handler()

	res := postQuery(t, handler, map[string]any{"question": "   "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryFailureMapsTo500(t *testing.T) {
	fx := newFixture()
	genErr := domain.WrapError(domain.ErrGeneration, "complete", errors.New("model crashed"))
	fx.answerer.result = domain.QueryAnswer{
		Outcome: domain.OutcomeFailed,
		Answer:  "Error processing query: " + genErr.Error(),
		Sources: []domain.SourceRef{},
		Err:     genErr,
	}
	handler := fx.handler()

	res := postQuery(t, handler, map[string]any{"question": "q"})
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}

	var resp queryResponse
	decodeJSON(t, res, &resp)
	if resp.Success {
		t.Fatal("expected success=false")
	}
	if resp.Answer == "" {
		t.Error("failure message must be carried in answer")
	}
}

func TestQueryIndexOutageMapsTo503(t *testing.T) {
	fx := newFixture()
	idxErr := domain.WrapError(domain.ErrIndexUnavailable, "query index", errors.New("connection refused"))
	fx.answerer.result = domain.QueryAnswer{
		Outcome: domain.OutcomeFailed,
		Answer:  "Error processing query: " + idxErr.Error(),
		Sources: []domain.SourceRef{},
		Err:     idxErr,
	}
	handler := fx.handler()

	res := postQuery(t, handler, map[string]any{"question": "q"})
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestQueryStreamFramesChunks(t *testing.T) {
	fx := newFixture()
	fx.answerer.chunks = []string{"Hel", "lo"}
	handler := fx.handler()

	payload, _ := json.Marshal(map[string]string{"question": "greet me"})
	req := httptest.NewRequest(http.MethodPost, "/query-stream", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := res.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q", got)
	}
	if body := res.Body.String(); body != "data: Hel\n\ndata: lo\n\n" {
		t.Errorf("unexpected stream body %q", body)
	}
}

func TestQueryStreamRejectsBlankQuestion(t *testing.T) {
	handler := newFixture().handler()

	req := httptest.NewRequest(http.MethodPost, "/query-stream", bytes.NewBufferString(`{"question": ""}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryMethodNotAllowed(t *testing.T) {
	handler := newFixture().handler()

	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
