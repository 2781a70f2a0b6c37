package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

// extractDOCX reads the main document part of the docx zip archive and
// collects run text, one line per paragraph.
func extractDOCX(raw []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "open docx archive", err)
	}

	var document *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			document = f
			break
		}
	}
	if document == nil {
		return "", domain.WrapError(domain.ErrParse, "parse docx", fmt.Errorf("word/document.xml missing"))
	}

	part, err := document.Open()
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "open docx document part", err)
	}
	defer part.Close()

	text, err := collectRunText(part)
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "parse docx xml", err)
	}
	return strings.TrimSpace(text), nil
}

func collectRunText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var sb strings.Builder
	var inText bool
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteString("\t")
			case "br":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
