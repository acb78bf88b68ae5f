package models

import "errors"

var (
	// ErrEmptyText is returned when a caller asks to embed an empty or
	// whitespace-only string directly.
	ErrEmptyText = errors.New("cannot embed empty text")

	// ErrNoTextExtracted means the supplied pages held no usable text.
	ErrNoTextExtracted = errors.New("no text could be extracted from the document")

	// ErrNoChunks means the chunker produced nothing from non-empty input.
	ErrNoChunks = errors.New("no chunks could be created from the document")

	// ErrEmbeddingFailed means every chunk of a document failed to embed.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings for document")

	// ErrStoreUnavailable means the vector database is unreachable.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)
