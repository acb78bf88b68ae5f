package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_Text(t *testing.T) {
	path := writeTemp(t, "notes.txt", "plain text body")

	doc, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 1, doc.Pages[0].PageNumber)
	assert.Equal(t, "plain text body", doc.Pages[0].Text)
	assert.Equal(t, "notes", doc.Metadata["title"])
	assert.Equal(t, "txt", doc.Metadata["file_type"])
	assert.Equal(t, "1", doc.Metadata["total_pages"])
}

func TestParse_Markdown(t *testing.T) {
	path := writeTemp(t, "guide.md", "# Heading\n\nSome **bold** prose.")

	doc, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Contains(t, doc.Pages[0].Text, "Heading")
	assert.Contains(t, doc.Pages[0].Text, "bold")
	assert.NotContains(t, doc.Pages[0].Text, "<strong>")
	assert.NotContains(t, doc.Pages[0].Text, "**")
}

func TestParse_UnsupportedFormat(t *testing.T) {
	path := writeTemp(t, "image.png", "not really an image")

	_, err := Parse(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file format")
}

func TestParse_MissingFile(t *testing.T) {
	_, err := Parse("/nonexistent/file.txt")
	assert.Error(t, err)
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "hello world", stripTags("<p>hello <em>world</em></p>"))
	assert.Equal(t, `a "b" & c`, stripTags("a &quot;b&quot; &amp; c"))
}
