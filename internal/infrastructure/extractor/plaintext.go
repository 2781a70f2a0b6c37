package extractor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

func extractPlaintext(raw []byte, name string) (string, error) {
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "decode text", fmt.Errorf("%s is not valid utf-8", name))
	}
	return strings.TrimSpace(string(raw)), nil
}
