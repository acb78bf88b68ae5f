package models

// Page is one page of extracted document text as supplied by the
// extraction collaborator. PageNumber is 1-based.
type Page struct {
	PageNumber int
	Text       string
}

// TextChunk represents a bounded span of document text with positional
// metadata. StartChar/EndChar are cumulative best-effort offsets, not
// byte-exact positions in the original text.
type TextChunk struct {
	Text       string
	ChunkIndex int
	StartChar  int
	EndChar    int
	Metadata   map[string]string
}
