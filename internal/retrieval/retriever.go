package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ragcore/internal/embedding"
	"ragcore/internal/models"
	"ragcore/internal/vectorstore"
)

const contextSeparator = "\n\n---\n\n"

const ragInstruction = `
You have access to the following relevant information from the user's documents.
Use this context to answer questions and create tasks when appropriate.
When you use information from the context, cite the source using [Source N] notation.

CONTEXT FROM USER'S DOCUMENTS:
%s

END OF CONTEXT
`

// Options narrows a retrieval: optional project/document filters and a
// per-call top-k override.
type Options struct {
	ProjectID  string
	DocumentID string
	TopK       int
}

// Retriever answers a query from a user's ingested documents: embed,
// search, rank, cite.
type Retriever struct {
	embedder       *embedding.Service
	store          vectorstore.Store
	topK           int
	scoreThreshold float32
	previewMaxLen  int
}

func NewRetriever(embedder *embedding.Service, store vectorstore.Store, topK int, scoreThreshold float32, previewMaxLen int) *Retriever {
	return &Retriever{
		embedder:       embedder,
		store:          store,
		topK:           topK,
		scoreThreshold: scoreThreshold,
		previewMaxLen:  previewMaxLen,
	}
}

// Retrieve embeds the query, searches the user's collection, and builds
// ranked chunks, citations, and the prompt context block. Failures are
// reported in the result.
func (r *Retriever) Retrieve(ctx context.Context, userID, query string, opts Options) models.RetrievalResult {
	start := time.Now()

	topK := opts.TopK
	if topK <= 0 {
		topK = r.topK
	}

	queryVector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return failureResult(start, err.Error())
	}

	var filter map[string]string
	if opts.ProjectID != "" || opts.DocumentID != "" {
		filter = make(map[string]string, 2)
		if opts.ProjectID != "" {
			filter[models.PayloadProjectID] = opts.ProjectID
		}
		if opts.DocumentID != "" {
			filter[models.PayloadDocumentID] = opts.DocumentID
		}
	}

	hits, err := r.store.Search(ctx, userID, queryVector, topK, r.scoreThreshold, filter)
	if err != nil {
		return failureResult(start, err.Error())
	}

	chunks := make([]models.RetrievedChunk, 0, len(hits))
	citations := make([]models.Citation, 0, len(hits))
	for i, hit := range hits {
		chunk := models.RetrievedChunk{
			Text:       hit.Payload[models.PayloadText],
			Score:      hit.Score,
			DocumentID: hit.Payload[models.PayloadDocumentID],
			Filename:   hit.Payload[models.PayloadFilename],
			PageNumber: payloadInt(hit.Payload, models.PayloadPageNumber, 1),
			ChunkIndex: payloadInt(hit.Payload, models.PayloadChunkIndex, 0),
			Metadata:   hit.Payload,
		}
		chunks = append(chunks, chunk)

		citations = append(citations, models.Citation{
			Index:  i + 1,
			Text:   truncate(chunk.Text, r.previewMaxLen),
			Source: chunk.Filename,
			Page:   chunk.PageNumber,
			Score:  chunk.Score,
		})
	}

	log.Debug().
		Str("user_id", userID).
		Int("hits", len(chunks)).
		Msg("Retrieved context")

	return models.RetrievalResult{
		Success:     true,
		Chunks:      chunks,
		Citations:   citations,
		ContextText: buildContextText(chunks),
		LatencyMS:   latencyMS(start),
	}
}

// RetrieveWithFallback never fails the calling conversation: an
// unhealthy store short-circuits to an explicit unavailable result, and
// anything else that goes wrong degrades to a failure result.
func (r *Retriever) RetrieveWithFallback(ctx context.Context, userID, query string, opts Options) (result models.RetrievalResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("Retrieval panicked")
			result = failureResult(time.Now(), fmt.Sprintf("retrieval failed: %v", rec))
		}
	}()

	if !r.store.HealthCheck(ctx) {
		return models.RetrievalResult{
			Success: false,
			Error:   "retrieval service unavailable",
		}
	}

	return r.Retrieve(ctx, userID, query, opts)
}

// FormatCitations projects citations into their external shape. Scores
// stay internal.
func FormatCitations(citations []models.Citation) []models.CitationRecord {
	records := make([]models.CitationRecord, len(citations))
	for i, c := range citations {
		records[i] = models.CitationRecord{
			Index:  c.Index,
			Text:   c.Text,
			Source: c.Source,
			Page:   c.Page,
		}
	}
	return records
}

// AugmentPrompt appends the citation instruction block with the
// retrieved context to a base prompt. An empty context leaves the prompt
// untouched.
func AugmentPrompt(basePrompt, contextText string) string {
	if contextText == "" {
		return basePrompt
	}
	return basePrompt + "\n\n" + fmt.Sprintf(ragInstruction, contextText)
}

func buildContextText(chunks []models.RetrievedChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("[Source %d: %s, Page %d]\n%s", i+1, chunk.Filename, chunk.PageNumber, chunk.Text)
	}
	return strings.Join(parts, contextSeparator)
}

func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen-3] + "..."
}

func payloadInt(payload map[string]string, key string, fallback int) int {
	if v, ok := payload[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func failureResult(start time.Time, message string) models.RetrievalResult {
	return models.RetrievalResult{
		Success:   false,
		LatencyMS: latencyMS(start),
		Error:     message,
	}
}

func latencyMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
