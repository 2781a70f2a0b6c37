package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type DocumentKind string

const (
	KindFile DocumentKind = "file"
	KindURL  DocumentKind = "url"
)

// Document is the registry row tracking one ingested source through its
// lifecycle. The knowledge-base listing itself always comes from the vector
// index, not from here.
type Document struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Kind        DocumentKind   `json:"kind"`
	ContentType string         `json:"content_type,omitempty"`
	SizeBytes   int64          `json:"size_bytes,omitempty"`
	StorageKey  string         `json:"storage_key,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	ChunkCount  int            `json:"chunk_count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IngestJob is the queue payload for asynchronous processing. QueuedAt feeds
// the worker's queue-lag observation.
type IngestJob struct {
	DocumentID string    `json:"document_id"`
	QueuedAt   time.Time `json:"queued_at"`
}
