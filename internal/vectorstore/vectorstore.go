// Package vectorstore persists chunk embeddings and performs top-K cosine
// similarity search. Two interchangeable variants exist: a remote vector
// index reached over HTTP, and a Postgres linear-scan fallback that ranks
// against embeddings stored in a plain array column.
package vectorstore

import (
	"context"

	"github.com/studyowl/studyowl/models"
)

// Record is one chunk vector together with the metadata carried alongside
// it. OwnerID scopes searches per user so one user's content never surfaces
// for another.
type Record struct {
	ID           string
	DocumentID   string
	DocumentName string
	OwnerID      string
	Text         string
	Embedding    []float32
}

// Store is the common contract both variants satisfy. Search results are
// ordered by descending similarity; ownerID == "" disables owner scoping.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, topK int, ownerID string) ([]models.VectorSearchResult, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}
