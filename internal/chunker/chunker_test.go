package chunker

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/models"
)

// prose builds plain prose of roughly n characters with no paragraph
// breaks, so packing has to work at word granularity.
func prose(n int) string {
	var b strings.Builder
	words := []string{"retrieval", "pipelines", "turn", "documents", "into", "searchable", "context", "for", "assistants"}
	i := 0
	for b.Len() < n {
		b.WriteString(words[i%len(words)])
		b.WriteString(" ")
		i++
	}
	return strings.TrimSpace(b.String()[:n])
}

func TestChunk_BoundedWithOverlap(t *testing.T) {
	c := New(1000, 200)
	text := prose(2500)

	chunks := c.Chunk(text, nil)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Text), 1000, "chunk %d too long", i)
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.NotEmpty(t, strings.TrimSpace(chunk.Text))
	}

	// Each chunk after the first starts with the tail of its predecessor
	// (modulo the leading whitespace trimmed when the chunk was closed).
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		tail := prev
		if len(prev) > 200 {
			tail = prev[len(prev)-200:]
		}
		tail = strings.TrimLeft(tail, " ")
		assert.True(t, strings.HasPrefix(chunks[i].Text, tail),
			"chunk %d does not start with predecessor overlap", i)
	}
}

func TestChunk_Offsets(t *testing.T) {
	c := New(1000, 200)
	chunks := c.Chunk(prose(2500), nil)
	require.NotEmpty(t, chunks)

	prevStart := -1
	for _, chunk := range chunks {
		assert.Equal(t, chunk.StartChar+len(chunk.Text), chunk.EndChar)
		assert.Greater(t, chunk.StartChar, prevStart)
		prevStart = chunk.StartChar
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New(1000, 200)

	assert.Empty(t, c.Chunk("", nil))
	assert.Empty(t, c.Chunk("   ", nil))
	assert.Empty(t, c.Chunk("\n\n\t", nil))
}

func TestChunk_ShortInput(t *testing.T) {
	c := New(1000, 200)

	chunks := c.Chunk("just one small paragraph", map[string]string{"document_id": "d1"})
	require.Len(t, chunks, 1)
	assert.Equal(t, "just one small paragraph", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, "d1", chunks[0].Metadata["document_id"])
}

func TestChunk_MetadataIsCopiedPerChunk(t *testing.T) {
	c := New(1000, 200)
	meta := map[string]string{"filename": "a.pdf"}

	chunks := c.Chunk(prose(2500), meta)
	require.Greater(t, len(chunks), 1)

	chunks[0].Metadata["filename"] = "changed"
	assert.Equal(t, "a.pdf", chunks[1].Metadata["filename"])
	assert.Equal(t, "a.pdf", meta["filename"])
}

func TestChunk_NoSeparatorsFallsBackToCharacters(t *testing.T) {
	c := New(10, 2)
	text := strings.Repeat("x", 35) // no separator anywhere

	chunks := c.Chunk(text, nil)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Text), 10)
	}
}

func TestChunkPages_GlobalIndices(t *testing.T) {
	c := New(1000, 200)
	pages := []models.Page{
		{PageNumber: 1, Text: prose(1800)},
		{PageNumber: 2, Text: "   "},
		{PageNumber: 3, Text: prose(1800)},
	}

	chunks := c.ChunkPages(pages, "doc-1", "report.pdf")
	require.NotEmpty(t, chunks)

	sawPage3 := false
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex, "indices must ascend across pages")
		assert.Equal(t, strconv.Itoa(i), chunk.Metadata["global_chunk_index"])
		assert.Equal(t, "doc-1", chunk.Metadata[models.PayloadDocumentID])
		assert.Equal(t, "report.pdf", chunk.Metadata[models.PayloadFilename])
		assert.NotEqual(t, "2", chunk.Metadata[models.PayloadPageNumber], "blank page must be skipped")
		if chunk.Metadata[models.PayloadPageNumber] == "3" {
			sawPage3 = true
		}
	}
	assert.True(t, sawPage3)
}

func TestChunkPages_Empty(t *testing.T) {
	c := New(1000, 200)

	assert.Empty(t, c.ChunkPages(nil, "d", "f"))
	assert.Empty(t, c.ChunkPages([]models.Page{{PageNumber: 1, Text: ""}}, "d", "f"))
}

func TestEstimateCount(t *testing.T) {
	c := New(1000, 200)

	assert.Equal(t, 0, c.EstimateCount(""))
	assert.Equal(t, 1, c.EstimateCount("short"))
	assert.Equal(t, 2, c.EstimateCount(strings.Repeat("a", 1600)))

	// Degenerate configuration collapses to a single chunk estimate.
	d := New(100, 100)
	assert.Equal(t, 1, d.EstimateCount(strings.Repeat("a", 5000)))

	// Estimate tracks actual output for plain prose.
	text := prose(2500)
	actual := len(c.Chunk(text, nil))
	estimate := c.EstimateCount(text)
	assert.InDelta(t, actual, estimate, 1)
}
