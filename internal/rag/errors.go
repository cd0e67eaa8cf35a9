package rag

import "errors"

// Typed failures surfaced to the HTTP boundary. Extraction and provider
// errors (extract.ErrUnsupportedType, provider.ErrQuotaExceeded, ...) pass
// through unwrapped so the boundary can map them too.
var (
	// ErrEmptyContent means extraction produced no usable text or chunking
	// produced no chunks. The upload is rejected as a whole.
	ErrEmptyContent = errors.New("rag: no text content in document")
	// ErrInvalidQuery marks an empty or over-length query.
	ErrInvalidQuery = errors.New("rag: invalid query")
	// ErrStorage means both vector store variants failed at ingestion time.
	ErrStorage = errors.New("rag: vector storage failed")
	// ErrDocumentNotFound covers both a missing id and an ownership
	// mismatch; the two are indistinguishable to avoid leaking existence
	// of other users' documents.
	ErrDocumentNotFound = errors.New("rag: document not found")
	// ErrNoContent means the document exists but has no chunks to quiz on.
	ErrNoContent = errors.New("rag: document has no content")
	// ErrQuestionCount marks an out-of-range quiz question count.
	ErrQuestionCount = errors.New("rag: question count out of range")
)
