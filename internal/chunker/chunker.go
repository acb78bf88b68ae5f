package chunker

import (
	"strconv"
	"strings"

	"ragcore/internal/models"
)

// Default separators, coarsest to finest. The empty string is the last
// resort and splits into individual characters.
var defaultSeparators = []string{
	"\n\n", // paragraph breaks
	"\n",   // line breaks
	". ",   // sentence ends
	"! ",
	"? ",
	"; ",
	", ", // clause breaks
	" ",  // word breaks
	"",   // character level
}

// Chunker splits text into bounded overlapping chunks using recursive
// separator-based splitting, similar to LangChain's recursive character
// splitter but with positional metadata.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func New(chunkSize, chunkOverlap int) *Chunker {
	return NewWithSeparators(chunkSize, chunkOverlap, nil)
}

func NewWithSeparators(chunkSize, chunkOverlap int, separators []string) *Chunker {
	if separators == nil {
		separators = defaultSeparators
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   separators,
	}
}

func (c *Chunker) ChunkSize() int    { return c.chunkSize }
func (c *Chunker) ChunkOverlap() int { return c.chunkOverlap }

// Chunk splits text into overlapping chunks, attaching a copy of metadata
// to each. Empty or whitespace-only input yields no chunks.
func (c *Chunker) Chunk(text string, metadata map[string]string) []models.TextChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	splits := c.splitText(text, c.separators)

	var chunks []models.TextChunk
	chunkIndex := 0
	startChar := 0

	var current []string
	currentLen := 0

	for _, split := range splits {
		splitLen := len(split)

		// Close the current chunk before this split would overflow it.
		if currentLen+splitLen > c.chunkSize && len(current) > 0 {
			chunkText := strings.TrimSpace(strings.Join(current, ""))
			overlapText := ""
			if chunkText != "" {
				chunks = append(chunks, models.TextChunk{
					Text:       chunkText,
					ChunkIndex: chunkIndex,
					StartChar:  startChar,
					EndChar:    startChar + len(chunkText),
					Metadata:   cloneMeta(metadata),
				})
				chunkIndex++

				// Seed the next chunk with the closed chunk's tail. The
				// next start offset accounts for the overlap carried back.
				overlapStart := len(chunkText) - c.chunkOverlap
				if overlapStart < 0 {
					overlapStart = 0
				}
				startChar += overlapStart
				overlapText = chunkText[overlapStart:]
			}

			current = current[:0]
			currentLen = 0
			if overlapText != "" {
				current = append(current, overlapText)
				currentLen = len(overlapText)
			}
		}

		current = append(current, split)
		currentLen += splitLen
	}

	if len(current) > 0 {
		chunkText := strings.TrimSpace(strings.Join(current, ""))
		if chunkText != "" {
			chunks = append(chunks, models.TextChunk{
				Text:       chunkText,
				ChunkIndex: chunkIndex,
				StartChar:  startChar,
				EndChar:    startChar + len(chunkText),
				Metadata:   cloneMeta(metadata),
			})
		}
	}

	return chunks
}

// splitText recursively splits by the first separator, descending to the
// finer ones for fragments that still exceed the chunk size. The
// separator is reattached to every fragment except the last so no text
// is lost. Termination is guaranteed by the character-level fallback.
func (c *Chunker) splitText(text string, separators []string) []string {
	if len(separators) == 0 {
		return splitChars(text)
	}

	separator := separators[0]
	remaining := separators[1:]

	if separator == "" {
		return splitChars(text)
	}

	parts := strings.Split(text, separator)
	var result []string
	for i, part := range parts {
		if part == "" {
			continue
		}

		if len(part) <= c.chunkSize {
			if i < len(parts)-1 {
				result = append(result, part+separator)
			} else {
				result = append(result, part)
			}
			continue
		}

		sub := c.splitText(part, remaining)
		if i < len(parts)-1 && len(sub) > 0 {
			sub[len(sub)-1] += separator
		}
		result = append(result, sub...)
	}

	return result
}

// ChunkPages chunks a multi-page document, skipping pages without
// extractable text and rewriting chunk indices into one ascending
// sequence across all pages.
func (c *Chunker) ChunkPages(pages []models.Page, documentID, filename string) []models.TextChunk {
	var all []models.TextChunk
	globalIndex := 0

	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}

		pageNumber := page.PageNumber
		if pageNumber < 1 {
			pageNumber = 1
		}

		metadata := map[string]string{
			models.PayloadDocumentID: documentID,
			models.PayloadFilename:   filename,
			models.PayloadPageNumber: strconv.Itoa(pageNumber),
		}

		chunks := c.Chunk(page.Text, metadata)
		for i := range chunks {
			chunks[i].ChunkIndex = globalIndex
			chunks[i].Metadata["global_chunk_index"] = strconv.Itoa(globalIndex)
			globalIndex++
		}

		all = append(all, chunks...)
	}

	return all
}

// EstimateCount estimates how many chunks Chunk would produce. Exact for
// character-packed text, approximate once separator-aware packing kicks
// in.
func (c *Chunker) EstimateCount(text string) int {
	if text == "" {
		return 0
	}

	effective := c.chunkSize - c.chunkOverlap
	if effective <= 0 {
		return 1
	}

	n := (len(text) + effective - 1) / effective
	if n < 1 {
		n = 1
	}
	return n
}

func splitChars(text string) []string {
	out := make([]string, 0, len(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

func cloneMeta(metadata map[string]string) map[string]string {
	clone := make(map[string]string, len(metadata))
	for k, v := range metadata {
		clone[k] = v
	}
	return clone
}
