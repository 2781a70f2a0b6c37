package chunking

import (
	"errors"
	"strings"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split cuts text into overlapping windows of at most ChunkSize runes,
// preferring paragraph, line, sentence, and word breaks over hard cuts.
func (s *Splitter) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrEmptyInput, "split text", errors.New("no text content found"))
	}

	runes := []rune(text)
	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = snapToBoundary(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			// Overlap larger than the snapped window; skip it to keep moving.
			next = end
		}
		start = next
	}
	return out, nil
}

// snapToBoundary moves the cut back to the last natural break found in the
// tail half of the window, so boundary snapping never produces degenerate
// tiny chunks. Hard cut when the tail half has no break at all.
func snapToBoundary(runes []rune, start, end int) int {
	floor := start + (end-start)/2

	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	for i := end - 2; i > floor; i-- {
		if isSentenceEnd(runes[i]) && runes[i+1] == ' ' {
			return i + 1
		}
	}
	for i := end - 1; i > floor; i-- {
		if runes[i] == ' ' {
			return i + 1
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
