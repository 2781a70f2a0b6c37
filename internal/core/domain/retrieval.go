package domain

import "strings"

// Fragment is a contiguous slice of source text with positional metadata.
// Identity is (Source, ChunkIndex); fragments are immutable once created.
type Fragment struct {
	Text       string `json:"text"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	ChunkCount int    `json:"chunk_count"`
}

// IndexRecord is a fragment paired with its embedding for upsert. The record
// ID is derived from (Source, ChunkIndex) so re-indexing the same position
// overwrites rather than duplicates.
type IndexRecord struct {
	ID       string    `json:"id"`
	Fragment Fragment  `json:"fragment"`
	Vector   []float32 `json:"-"`
}

// IndexHit is a raw nearest-neighbor result. Distance is the index's cosine
// distance; smaller means closer.
type IndexHit struct {
	Fragment Fragment `json:"fragment"`
	Distance float64  `json:"distance"`
}

// RetrievalMatch is a scored fragment produced by a query; higher score means
// more relevant. Never persisted.
type RetrievalMatch struct {
	Fragment Fragment `json:"fragment"`
	Score    float64  `json:"score"`
}

// ExpansionRule widens a retrieval when the question mentions one of the
// keywords: the probe text is searched alongside the original question and
// its top K hits merged into the result set.
type ExpansionRule struct {
	Keywords []string
	Probe    string
	K        int
}

// Matches reports whether the question, lowercased, contains any keyword.
// Keywords are stored lowercase; matching is plain substring containment.
func (r ExpansionRule) Matches(questionLower string) bool {
	for _, kw := range r.Keywords {
		if kw != "" && strings.Contains(questionLower, kw) {
			return true
		}
	}
	return false
}
