package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
	"github.com/mpetrov/rag-chatbot/internal/core/ports"
)

const (
	defaultTopK            = 10
	defaultMaxContextChars = 2000
	defaultTopSources      = 5

	// contextPreviewRunes caps the context echoed back in answers.
	contextPreviewRunes = 500
)

// AnswerUseCase drives the retrieve, assemble, generate flow for one
// question, in whole-answer and streaming variants.
type AnswerUseCase struct {
	searcher        ports.KnowledgeSearcher
	model           ports.LanguageModel
	topK            int
	maxContextChars int
	topSources      int
}

func NewAnswerUseCase(searcher ports.KnowledgeSearcher, model ports.LanguageModel, topK, maxContextChars, topSources int) *AnswerUseCase {
	if topK <= 0 {
		topK = defaultTopK
	}
	if maxContextChars <= 0 {
		maxContextChars = defaultMaxContextChars
	}
	if topSources <= 0 {
		topSources = defaultTopSources
	}
	return &AnswerUseCase{
		searcher:        searcher,
		model:           model,
		topK:            topK,
		maxContextChars: maxContextChars,
		topSources:      topSources,
	}
}

// Answer resolves a question against the knowledge base. An empty retrieval
// produces the fixed no-information answer; collaborator faults come back as
// a failed result carrying the error, never as a raw fault.
func (uc *AnswerUseCase) Answer(ctx context.Context, question string) domain.QueryAnswer {
	matches, err := uc.searcher.SearchExpanded(ctx, question, uc.topK)
	if err != nil {
		return failedAnswer(err)
	}
	if len(matches) == 0 {
		return domain.QueryAnswer{
			Outcome: domain.OutcomeEmpty,
			Answer:  domain.NoInformationAnswer,
			Sources: []domain.SourceRef{},
		}
	}

	contextText, used := AssembleContext(matches, uc.maxContextChars)

	answer, err := uc.model.Complete(ctx, buildPrompt(question, contextText))
	if err != nil {
		return failedAnswer(err)
	}

	return domain.QueryAnswer{
		Outcome:     domain.OutcomeAnswered,
		Answer:      answer,
		Sources:     uc.sourceRefs(used),
		ContextUsed: previewContext(contextText),
	}
}

// AnswerStream is Answer with incremental delivery: chunks are handed to
// emit as the model produces them. A collaborator failure surfaces as one
// final error-text chunk instead of an error; the only error returned is
// emit's own, so a dropped consumer stops generation.
func (uc *AnswerUseCase) AnswerStream(ctx context.Context, question string, emit func(chunk string) error) error {
	matches, err := uc.searcher.SearchExpanded(ctx, question, uc.topK)
	if err != nil {
		return emit(queryErrorText(err))
	}
	if len(matches) == 0 {
		return emit(domain.NoInformationAnswer)
	}

	contextText, _ := AssembleContext(matches, uc.maxContextChars)

	if err := uc.model.CompleteStream(ctx, buildPrompt(question, contextText), emit); err != nil {
		return emit(generationErrorText(err))
	}
	return nil
}

func (uc *AnswerUseCase) sourceRefs(used []domain.RetrievalMatch) []domain.SourceRef {
	refs := make([]domain.SourceRef, 0, uc.topSources)
	seen := make(map[string]struct{}, len(used))
	for _, m := range used {
		if len(refs) == uc.topSources {
			break
		}
		if _, dup := seen[m.Fragment.Source]; dup {
			continue
		}
		seen[m.Fragment.Source] = struct{}{}
		refs = append(refs, domain.SourceRef{
			Source:         m.Fragment.Source,
			RelevanceScore: roundScore(m.Score),
			ChunkInfo:      fmt.Sprintf("Chunk %d of %d", m.Fragment.ChunkIndex+1, m.Fragment.ChunkCount),
		})
	}
	return refs
}

func failedAnswer(err error) domain.QueryAnswer {
	return domain.QueryAnswer{
		Outcome: domain.OutcomeFailed,
		Answer:  queryErrorText(err),
		Sources: []domain.SourceRef{},
		Err:     err,
	}
}

func queryErrorText(err error) string {
	return fmt.Sprintf("Error processing query: %v", err)
}

func generationErrorText(err error) string {
	return fmt.Sprintf("Error generating response: %v", err)
}

func roundScore(score float64) float64 {
	return math.Round(score*1000) / 1000
}

func previewContext(contextText string) string {
	runes := []rune(contextText)
	if len(runes) <= contextPreviewRunes {
		return contextText
	}
	return string(runes[:contextPreviewRunes]) + contextEllipsis
}
