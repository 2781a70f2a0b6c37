package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
	"github.com/mpetrov/rag-chatbot/internal/infrastructure/resilience"
)

const scrollPageSize = 256

// Client implements the vector index on the qdrant HTTP API. The collection
// is created lazily on first upsert, sized to the embedding width seen there.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

// New builds a client for one qdrant collection. The executor may be nil,
// in which case calls are made without retries or a circuit breaker.
func New(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := c.ensureCollection(ctx, len(records[0].Vector)); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(records))
	for _, rec := range records {
		points = append(points, point{
			ID:     rec.ID,
			Vector: rec.Vector,
			Payload: map[string]any{
				"text":        rec.Fragment.Text,
				"source":      rec.Fragment.Source,
				"chunk_index": rec.Fragment.ChunkIndex,
				"chunk_count": rec.Fragment.ChunkCount,
			},
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	return c.call(ctx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert")
}

func (c *Client) Query(ctx context.Context, vector []float32, k int) ([]domain.IndexHit, error) {
	payload := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}

	var response struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.call(ctx, http.MethodPost, path, payload, &response, "search"); err != nil {
		// No collection yet means nothing has been indexed.
		if isMissingCollection(err) {
			return nil, nil
		}
		return nil, err
	}

	hits := make([]domain.IndexHit, 0, len(response.Result))
	for _, r := range response.Result {
		hits = append(hits, domain.IndexHit{
			Fragment: fragmentFromPayload(r.Payload),
			Distance: 1 - r.Score,
		})
	}
	return hits, nil
}

func (c *Client) DeleteBySource(ctx context.Context, source string) error {
	payload := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "source", "match": map[string]any{"value": source}},
			},
		},
	}

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", c.collection)
	err := c.call(ctx, http.MethodPost, path, payload, nil, "delete_points")
	if err != nil && isMissingCollection(err) {
		return nil
	}
	return err
}

func (c *Client) Clear(ctx context.Context) error {
	path := fmt.Sprintf("/collections/%s", c.collection)
	err := c.call(ctx, http.MethodDelete, path, nil, nil, "drop_collection")
	if err != nil && !isMissingCollection(err) {
		return err
	}

	c.ensureMu.Lock()
	c.ensuredCollection = false
	c.ensuredVectorSize = 0
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) ListSources(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var sources []string

	var offset any
	for {
		payload := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": []string{"source"},
			"with_vector":  false,
		}
		if offset != nil {
			payload["offset"] = offset
		}

		var response struct {
			Result struct {
				Points []struct {
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		path := fmt.Sprintf("/collections/%s/points/scroll", c.collection)
		if err := c.call(ctx, http.MethodPost, path, payload, &response, "scroll"); err != nil {
			if isMissingCollection(err) {
				return nil, nil
			}
			return nil, err
		}

		for _, p := range response.Result.Points {
			source := payloadString(p.Payload, "source")
			if source == "" {
				continue
			}
			if _, ok := seen[source]; ok {
				continue
			}
			seen[source] = struct{}{}
			sources = append(sources, source)
		}

		if response.Result.NextPageOffset == nil {
			return sources, nil
		}
		offset = response.Result.NextPageOffset
	}
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	payload := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	path := fmt.Sprintf("/collections/%s", c.collection)
	err := c.call(ctx, http.MethodPut, path, payload, nil, "ensure_collection")
	if err != nil {
		// 409 means another writer created the collection first.
		if isConflict(err) {
			c.markEnsured(vectorSize)
			return nil
		}
		return err
	}
	c.markEnsured(vectorSize)
	return nil
}

func (c *Client) markEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func fragmentFromPayload(payload map[string]any) domain.Fragment {
	return domain.Fragment{
		Text:       payloadString(payload, "text"),
		Source:     payloadString(payload, "source"),
		ChunkIndex: payloadInt(payload, "chunk_index"),
		ChunkCount: payloadInt(payload, "chunk_count"),
	}
}

func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func payloadInt(payload map[string]any, key string) int {
	// JSON numbers decode as float64.
	if v, ok := payload[key].(float64); ok {
		return int(v)
	}
	return 0
}
