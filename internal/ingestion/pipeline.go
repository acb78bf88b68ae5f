package ingestion

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ragcore/internal/chunker"
	"ragcore/internal/embedding"
	"ragcore/internal/helper"
	"ragcore/internal/models"
	"ragcore/internal/vectorstore"
)

// Options carries the optional ingestion parameters.
type Options struct {
	// ProjectID tags every stored chunk for later filtered retrieval.
	ProjectID string
	// DocumentID overrides the generated document id.
	DocumentID string
	// SourceMetadata is document-level metadata from the extraction
	// collaborator, echoed back in the result.
	SourceMetadata map[string]string
}

// Pipeline turns extracted page text into stored, searchable vectors:
// chunk, embed, upsert. Failures are captured into the result, the
// pipeline never raises past its boundary.
type Pipeline struct {
	chunker  *chunker.Chunker
	embedder *embedding.Service
	store    vectorstore.Store
}

func NewPipeline(c *chunker.Chunker, embedder *embedding.Service, store vectorstore.Store) *Pipeline {
	return &Pipeline{
		chunker:  c,
		embedder: embedder,
		store:    store,
	}
}

// Ingest processes one document for one user.
func (p *Pipeline) Ingest(ctx context.Context, userID string, pages []models.Page, filename string, opts Options) (result models.IngestionResult) {
	documentID := opts.DocumentID
	if documentID == "" {
		if generated, err := helper.GenerateToken(); err == nil {
			documentID = generated
		}
	}

	result = models.IngestionResult{
		DocumentID: documentID,
		Filename:   filename,
		TotalPages: len(pages),
	}

	// The boundary contract: whatever goes wrong below ends up in
	// result.Error, never in the caller's lap.
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("document_id", documentID).Msg("Ingestion panicked")
			result.Success = false
			result.ChunksCreated = 0
			result.Error = fmt.Sprintf("ingestion failed: %v", r)
		}
	}()

	hasText := false
	for _, page := range pages {
		if strings.TrimSpace(page.Text) != "" {
			hasText = true
			break
		}
	}
	if !hasText {
		result.Error = models.ErrNoTextExtracted.Error()
		return result
	}

	chunks := p.chunker.ChunkPages(pages, documentID, filename)
	if len(chunks) == 0 {
		result.Error = models.ErrNoChunks.Error()
		return result
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors := p.embedder.EmbedMany(ctx, texts)

	// Chunks whose embedding failed are dropped, not fatal.
	var validChunks []models.TextChunk
	var validVectors [][]float32
	for i, chunk := range chunks {
		if len(vectors[i]) > 0 {
			validChunks = append(validChunks, chunk)
			validVectors = append(validVectors, vectors[i])
		}
	}
	if len(validVectors) == 0 {
		result.Error = models.ErrEmbeddingFailed.Error()
		return result
	}
	if dropped := len(chunks) - len(validChunks); dropped > 0 {
		log.Warn().
			Int("dropped", dropped).
			Str("document_id", documentID).
			Msg("Some chunks failed to embed and were skipped")
	}

	ingestedAt := time.Now().UTC().Format(time.RFC3339)
	records := make([]models.VectorRecord, len(validChunks))
	for i, chunk := range validChunks {
		payload := map[string]string{
			models.PayloadDocumentID: documentID,
			models.PayloadFilename:   filename,
			models.PayloadText:       chunk.Text,
			models.PayloadChunkIndex: strconv.Itoa(chunk.ChunkIndex),
			models.PayloadPageNumber: pageNumber(chunk),
			models.PayloadStartChar:  strconv.Itoa(chunk.StartChar),
			models.PayloadEndChar:    strconv.Itoa(chunk.EndChar),
			models.PayloadIngestedAt: ingestedAt,
		}
		if opts.ProjectID != "" {
			payload[models.PayloadProjectID] = opts.ProjectID
		}
		records[i] = models.VectorRecord{
			ID:      fmt.Sprintf("%s_%d", documentID, chunk.ChunkIndex),
			Vector:  validVectors[i],
			Payload: payload,
		}
	}

	if _, err := p.store.Upsert(ctx, userID, records); err != nil {
		result.Error = err.Error()
		return result
	}

	log.Info().
		Str("document_id", documentID).
		Str("filename", filename).
		Int("chunks", len(validChunks)).
		Int("pages", len(pages)).
		Msg("Ingested document")

	result.Success = true
	result.ChunksCreated = len(validChunks)
	result.Metadata = &models.IngestionMetadata{
		SourceMetadata: opts.SourceMetadata,
		EmbeddingModel: p.embedder.Model(),
		ChunkSize:      p.chunker.ChunkSize(),
		ChunkOverlap:   p.chunker.ChunkOverlap(),
	}
	return result
}

// DeleteDocument removes a document's vectors. Underlying errors are
// logged and reported as a false return, never raised.
func (p *Pipeline) DeleteDocument(ctx context.Context, userID, documentID string) bool {
	if err := p.store.DeleteByDocument(ctx, userID, documentID); err != nil {
		log.Error().Err(err).Str("document_id", documentID).Msg("Failed to delete document vectors")
		return false
	}
	return true
}

// Stats returns the user's collection statistics, or a "not yet
// created" placeholder.
func (p *Pipeline) Stats(ctx context.Context, userID string) map[string]interface{} {
	info, err := p.store.Info(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read collection info")
	}
	if info == nil {
		return map[string]interface{}{
			"name":         nil,
			"points_count": 0,
			"status":       "not_created",
		}
	}
	return map[string]interface{}{
		"name":         info.Name,
		"points_count": info.PointsCount,
		"status":       info.Status,
	}
}

// HealthCheck reports per-component health.
func (p *Pipeline) HealthCheck(ctx context.Context) map[string]bool {
	return map[string]bool{
		"provider": p.embedder.HealthCheck(ctx),
		"store":    p.store.HealthCheck(ctx),
	}
}

func pageNumber(chunk models.TextChunk) string {
	if n, ok := chunk.Metadata[models.PayloadPageNumber]; ok {
		return n
	}
	return "1"
}
