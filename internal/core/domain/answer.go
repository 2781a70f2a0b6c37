package domain

// NoInformationAnswer is the fixed response for queries against an empty or
// unmatching knowledge base.
const NoInformationAnswer = "I don't have any relevant information to answer your question. Please add some documents first."

type AnswerOutcome string

const (
	OutcomeAnswered AnswerOutcome = "answered"
	OutcomeEmpty    AnswerOutcome = "empty"
	OutcomeFailed   AnswerOutcome = "failed"
)

// SourceRef describes one surfaced source of an answer.
type SourceRef struct {
	Source         string  `json:"source"`
	RelevanceScore float64 `json:"relevance_score"`
	ChunkInfo      string  `json:"chunk_info"`
}

// QueryAnswer is the terminal result of one orchestrated query. Err is
// non-nil only when Outcome is OutcomeFailed; collaborator faults never
// escape as raw errors.
type QueryAnswer struct {
	Outcome     AnswerOutcome `json:"outcome"`
	Answer      string        `json:"answer"`
	Sources     []SourceRef   `json:"sources"`
	ContextUsed string        `json:"context_used"`
	Err         error         `json:"-"`
}

func (a QueryAnswer) Success() bool {
	return a.Outcome != OutcomeFailed
}
