package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

// Index is a brute-force in-memory vector index used when no qdrant URL is
// configured. It mirrors the qdrant contract, cosine distance included, so
// the rest of the pipeline cannot tell the two apart.
type Index struct {
	mu      sync.RWMutex
	records map[string]domain.IndexRecord
}

func New() *Index {
	return &Index{records: make(map[string]domain.IndexRecord)}
}

func (i *Index) Upsert(_ context.Context, records []domain.IndexRecord) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, rec := range records {
		vector := make([]float32, len(rec.Vector))
		copy(vector, rec.Vector)
		rec.Vector = vector
		i.records[rec.ID] = rec
	}
	return nil
}

func (i *Index) Query(_ context.Context, vector []float32, k int) ([]domain.IndexHit, error) {
	if k <= 0 {
		return nil, nil
	}

	i.mu.RLock()
	hits := make([]domain.IndexHit, 0, len(i.records))
	for _, rec := range i.records {
		hits = append(hits, domain.IndexHit{
			Fragment: rec.Fragment,
			Distance: 1 - cosineSimilarity(vector, rec.Vector),
		})
	}
	i.mu.RUnlock()

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Distance != hits[b].Distance {
			return hits[a].Distance < hits[b].Distance
		}
		if hits[a].Fragment.Source != hits[b].Fragment.Source {
			return hits[a].Fragment.Source < hits[b].Fragment.Source
		}
		return hits[a].Fragment.ChunkIndex < hits[b].Fragment.ChunkIndex
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (i *Index) DeleteBySource(_ context.Context, source string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for id, rec := range i.records {
		if rec.Fragment.Source == source {
			delete(i.records, id)
		}
	}
	return nil
}

func (i *Index) Clear(_ context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.records = make(map[string]domain.IndexRecord)
	return nil
}

func (i *Index) ListSources(_ context.Context) ([]string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	seen := make(map[string]struct{})
	var sources []string
	for _, rec := range i.records {
		if _, ok := seen[rec.Fragment.Source]; ok {
			continue
		}
		seen[rec.Fragment.Source] = struct{}{}
		sources = append(sources, rec.Fragment.Source)
	}
	sort.Strings(sources)
	return sources, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for idx := 0; idx < n; idx++ {
		dot += float64(a[idx]) * float64(b[idx])
		normA += float64(a[idx]) * float64(a[idx])
		normB += float64(b[idx]) * float64(b[idx])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
