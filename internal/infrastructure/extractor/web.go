package extractor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

type webFetcher struct {
	httpClient *http.Client
}

func newWebFetcher() *webFetcher {
	return &webFetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *webFetcher) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", domain.WrapError(domain.ErrFetch, "create url request", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", domain.WrapError(domain.ErrFetch, "fetch url", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", domain.WrapError(domain.ErrFetch, "fetch url", fmt.Errorf("status %s", resp.Status))
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "parse html", err)
	}

	var sb strings.Builder
	collectTextNodes(root, &sb)
	return cleanScrapedText(sb.String()), nil
}

// collectTextNodes walks the DOM gathering text, skipping script and style
// subtrees entirely.
func collectTextNodes(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteString("\n")
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectTextNodes(child, sb)
	}
}

// cleanScrapedText strips each line, splits out runs separated by double
// spaces and joins the surviving phrases with single spaces.
func cleanScrapedText(raw string) string {
	var phrases []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, phrase := range strings.Split(line, "  ") {
			phrase = strings.TrimSpace(phrase)
			if phrase != "" {
				phrases = append(phrases, phrase)
			}
		}
	}
	return strings.Join(phrases, " ")
}
