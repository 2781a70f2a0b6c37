package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
	"github.com/mpetrov/rag-chatbot/internal/core/ports"
)

// defaultProbeLimit caps a probe search when its rule does not set K.
const defaultProbeLimit = 3

// RetrieveUseCase answers ranked similarity queries against the vector
// index, optionally widened by keyword-triggered probe searches.
type RetrieveUseCase struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	rules    []domain.ExpansionRule
}

func NewRetrieveUseCase(embedder ports.Embedder, index ports.VectorIndex, rules []domain.ExpansionRule) *RetrieveUseCase {
	return &RetrieveUseCase{
		embedder: embedder,
		index:    index,
		rules:    rules,
	}
}

// Search embeds the query and returns up to k matches ranked by descending
// relevance. Relevance is 1 minus the index's cosine distance. An empty
// index yields an empty result, not an error.
func (uc *RetrieveUseCase) Search(ctx context.Context, query string, k int) ([]domain.RetrievalMatch, error) {
	vector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := uc.index.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	matches := make([]domain.RetrievalMatch, 0, len(hits))
	for _, hit := range hits {
		matches = append(matches, domain.RetrievalMatch{
			Fragment: hit.Fragment,
			Score:    1 - hit.Distance,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, nil
}

// SearchExpanded runs Search for the query plus one probe search per
// triggered expansion rule. Probes run concurrently; their results follow
// the primal results in rule order, unsorted across groups, so callers see
// primal matches first. A failed probe is logged and skipped rather than
// failing the whole retrieval.
func (uc *RetrieveUseCase) SearchExpanded(ctx context.Context, query string, k int) ([]domain.RetrievalMatch, error) {
	matches, err := uc.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	triggered := uc.triggeredRules(query)
	if len(triggered) == 0 {
		return matches, nil
	}

	probeMatches := make([][]domain.RetrievalMatch, len(triggered))
	var wg sync.WaitGroup
	for i, rule := range triggered {
		wg.Add(1)
		go func(slot int, rule domain.ExpansionRule) {
			defer wg.Done()
			limit := rule.K
			if limit <= 0 {
				limit = defaultProbeLimit
			}
			found, probeErr := uc.Search(ctx, rule.Probe, limit)
			if probeErr != nil {
				slog.Warn("probe_search_failed", "probe", rule.Probe, "error", probeErr)
				return
			}
			probeMatches[slot] = found
		}(i, rule)
	}
	wg.Wait()

	for _, found := range probeMatches {
		matches = append(matches, found...)
	}
	return matches, nil
}

func (uc *RetrieveUseCase) triggeredRules(query string) []domain.ExpansionRule {
	lower := strings.ToLower(query)
	var triggered []domain.ExpansionRule
	for _, rule := range uc.rules {
		if rule.Matches(lower) {
			triggered = append(triggered, rule)
		}
	}
	return triggered
}
