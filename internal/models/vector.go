package models

// Payload keys stored with every vector. These are the external
// compatibility contract for anything already ingested, do not rename.
const (
	PayloadDocumentID = "document_id"
	PayloadFilename   = "filename"
	PayloadText       = "text"
	PayloadChunkIndex = "chunk_index"
	PayloadPageNumber = "page_number"
	PayloadStartChar  = "start_char"
	PayloadEndChar    = "end_char"
	PayloadIngestedAt = "ingested_at"
	PayloadProjectID  = "project_id"
)

// VectorRecord is one point to upsert into a collection. An empty ID
// means the store generates one.
type VectorRecord struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// SearchHit is one ranked result from a similarity search.
type SearchHit struct {
	ID      string
	Score   float32
	Payload map[string]string
}

// CollectionInfo describes a user's collection.
type CollectionInfo struct {
	Name        string `json:"name"`
	PointsCount int    `json:"points_count"`
	Status      string `json:"status"`
}
