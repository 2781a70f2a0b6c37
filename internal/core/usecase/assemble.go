package usecase

import (
	"fmt"
	"strings"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

const (
	// dedupPrefixRunes is the fragment-text prefix length compared when
	// dropping near-duplicate matches.
	dedupPrefixRunes = 100

	// minPartialRunes is the smallest leftover budget worth filling with a
	// truncated fragment.
	minPartialRunes = 200

	contextSeparator = "\n---\n"
	contextEllipsis  = "..."
)

// AssembleContext merges ranked matches into one bounded context string.
// Matches are taken in input order and deduplicated by text prefix, then
// rendered as "Source: <source>\n<text>\n" and joined with a separator until
// the rune budget runs out. When the next fragment would overflow but the
// leftover budget is still useful, a truncated slice of it goes in with an
// ellipsis marker. Returns the context plus the matches whose text made it
// in; the output never exceeds maxContextChars by more than the ellipsis.
func AssembleContext(matches []domain.RetrievalMatch, maxContextChars int) (string, []domain.RetrievalMatch) {
	var (
		b    strings.Builder
		used []domain.RetrievalMatch
		size int
	)
	seen := make(map[string]struct{}, len(matches))

	for _, m := range matches {
		if m.Fragment.Text == "" {
			continue
		}
		key := textPrefix(m.Fragment.Text, dedupPrefixRunes)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		block := []rune(fmt.Sprintf("Source: %s\n%s\n", m.Fragment.Source, m.Fragment.Text))
		sep := 0
		if size > 0 {
			sep = len([]rune(contextSeparator))
		}

		if size+sep+len(block) > maxContextChars {
			remaining := maxContextChars - size - sep
			if remaining >= minPartialRunes {
				if sep > 0 {
					b.WriteString(contextSeparator)
				}
				b.WriteString(string(block[:remaining]))
				b.WriteString(contextEllipsis)
				used = append(used, m)
			}
			break
		}

		if sep > 0 {
			b.WriteString(contextSeparator)
		}
		b.WriteString(string(block))
		size += sep + len(block)
		used = append(used, m)
	}

	return b.String(), used
}

func textPrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
