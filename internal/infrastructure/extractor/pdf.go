package extractor

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

func extractPDF(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "parse pdf", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "extract pdf text", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return "", domain.WrapError(domain.ErrParse, "read pdf text", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
