package models

// IngestionMetadata carries success details of an ingestion run.
type IngestionMetadata struct {
	SourceMetadata map[string]string `json:"source_metadata,omitempty"`
	EmbeddingModel string            `json:"embedding_model"`
	ChunkSize      int               `json:"chunk_size"`
	ChunkOverlap   int               `json:"chunk_overlap"`
}

// IngestionResult is the outcome of ingesting one document. Failures are
// reported here, never raised past the pipeline.
type IngestionResult struct {
	Success       bool               `json:"success"`
	DocumentID    string             `json:"document_id"`
	Filename      string             `json:"filename"`
	ChunksCreated int                `json:"chunks_created"`
	TotalPages    int                `json:"total_pages"`
	Error         string             `json:"error,omitempty"`
	Metadata      *IngestionMetadata `json:"metadata,omitempty"`
}

// RetrievedChunk is one chunk returned by a similarity search, with its
// raw payload preserved.
type RetrievedChunk struct {
	Text       string            `json:"text"`
	Score      float32           `json:"score"`
	DocumentID string            `json:"document_id"`
	Filename   string            `json:"filename"`
	PageNumber int               `json:"page_number"`
	ChunkIndex int               `json:"chunk_index"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Citation is the display-ready projection of a retrieved chunk.
// Index is 1-based and matches the [Source N] markers in context text.
type Citation struct {
	Index  int     `json:"index"`
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Score  float32 `json:"score"`
}

// CitationRecord is the external-facing citation shape. Score is
// intentionally omitted.
type CitationRecord struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// RetrievalResult is the outcome of one retrieval call. Chunks and
// Citations are parallel, in descending similarity order.
type RetrievalResult struct {
	Success     bool             `json:"success"`
	Chunks      []RetrievedChunk `json:"chunks"`
	Citations   []Citation       `json:"citations"`
	ContextText string           `json:"context_text"`
	LatencyMS   float64          `json:"latency_ms"`
	Error       string           `json:"error,omitempty"`
}
