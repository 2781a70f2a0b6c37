package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

type storageFake struct {
	files map[string][]byte
}

func (f storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.files[key] = raw
	return nil
}

func (f storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.files[key]
	if !ok {
		return nil, errors.New("missing key")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func fileDoc(name, key string) *domain.Document {
	return &domain.Document{ID: "doc-1", Name: name, Kind: domain.KindFile, StorageKey: key}
}

func TestExtractPlainTextFromStorage(t *testing.T) {
	storage := storageFake{files: map[string][]byte{
		"doc-1_notes.txt": []byte("  line one\nline two  \n"),
	}}

	text, err := NewDispatcher(storage).Extract(context.Background(), fileDoc("notes.txt", "doc-1_notes.txt"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "line one\nline two" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractMarkdownUsesPlaintextPath(t *testing.T) {
	storage := storageFake{files: map[string][]byte{
		"doc-1_readme.md": []byte("# Title\n\nBody."),
	}}

	text, err := NewDispatcher(storage).Extract(context.Background(), fileDoc("readme.md", "doc-1_readme.md"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "# Title\n\nBody." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractRejectsUnknownExtension(t *testing.T) {
	storage := storageFake{files: map[string][]byte{
		"doc-1_tool.exe": []byte("MZ"),
	}}

	_, err := NewDispatcher(storage).Extract(context.Background(), fileDoc("tool.exe", "doc-1_tool.exe"))
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractRejectsBinaryTextFile(t *testing.T) {
	storage := storageFake{files: map[string][]byte{
		"doc-1_data.txt": {0xff, 0xfe, 0x00, 0x41},
	}}

	_, err := NewDispatcher(storage).Extract(context.Background(), fileDoc("data.txt", "doc-1_data.txt"))
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func docxFixture(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDOCXJoinsParagraphs(t *testing.T) {
	document := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
<w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t xml:space="preserve"> half.</w:t></w:r></w:p>
</w:body>
</w:document>`

	storage := storageFake{files: map[string][]byte{
		"doc-1_cv.docx": docxFixture(t, map[string]string{"word/document.xml": document}),
	}}

	text, err := NewDispatcher(storage).Extract(context.Background(), fileDoc("cv.docx", "doc-1_cv.docx"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "First paragraph.\nSecond half." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractDOCXMissingDocumentPart(t *testing.T) {
	storage := storageFake{files: map[string][]byte{
		"doc-1_cv.docx": docxFixture(t, map[string]string{"word/other.xml": "<x/>"}),
	}}

	_, err := NewDispatcher(storage).Extract(context.Background(), fileDoc("cv.docx", "doc-1_cv.docx"))
	if !domain.IsKind(err, domain.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestExtractXLSXRendersSheetRows(t *testing.T) {
	workbook := excelize.NewFile()
	cells := map[string]string{"A1": "name", "B1": "role", "A2": "petrov", "B2": "engineer"}
	for cell, value := range cells {
		if err := workbook.SetCellValue("Sheet1", cell, value); err != nil {
			t.Fatalf("set cell %s: %v", cell, err)
		}
	}
	buf, err := workbook.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	storage := storageFake{files: map[string][]byte{
		"doc-1_team.xlsx": buf.Bytes(),
	}}

	text, err := NewDispatcher(storage).Extract(context.Background(), fileDoc("team.xlsx", "doc-1_team.xlsx"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "name\trole\npetrov\tengineer" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractWebPageStripsScriptsAndCollapsesWhitespace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Doc</title><style>body{color:red}</style>` +
			`<script>var x=1;</script></head><body><h1>Hello</h1><p>This is   a page.</p></body></html>`))
	}))
	defer server.Close()

	doc := &domain.Document{ID: "doc-1", Name: server.URL, Kind: domain.KindURL}
	text, err := NewDispatcher(storageFake{}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "Doc Hello This is a page." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractWebPageServerErrorIsFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	doc := &domain.Document{ID: "doc-1", Name: server.URL, Kind: domain.KindURL}
	_, err := NewDispatcher(storageFake{}).Extract(context.Background(), doc)
	if !domain.IsKind(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}
