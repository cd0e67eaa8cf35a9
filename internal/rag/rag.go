// Package rag composes extraction, chunking, embedding and the vector
// stores into the two end-to-end retrieval flows: document ingestion and
// grounded query answering.
package rag

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/studyowl/studyowl/config"
	"github.com/studyowl/studyowl/internal/chunk"
	"github.com/studyowl/studyowl/internal/extract"
	"github.com/studyowl/studyowl/internal/vectorstore"
	"github.com/studyowl/studyowl/models"
	"github.com/studyowl/studyowl/provider"
)

// RecordStore is the slice of the relational store the orchestrator needs.
type RecordStore interface {
	CreateDocument(ctx context.Context, userID, name string) (string, error)
	SetDocumentStorageMethod(ctx context.Context, id string, method models.StorageMethod) error
	GetDocument(ctx context.Context, id, userID string) (models.Document, error)
	DeleteDocument(ctx context.Context, id, userID string) error
	InsertChunks(ctx context.Context, documentID string, chunks []models.Chunk) error
	DeleteChunks(ctx context.Context, documentID string) error
	DocumentChunkTexts(ctx context.Context, documentID string) ([]string, error)
	CreateChat(ctx context.Context, userID, query, answer string) (string, error)
}

// OwnerPurger is satisfied by the remote index variant, which supports
// deleting every vector tagged with an owner. The relational variant relies
// on the user cascade instead.
type OwnerPurger interface {
	DeleteByOwner(ctx context.Context, ownerID string) error
}

// Orchestrator wires the retrieval pipeline together. The store selection
// is resolved once at construction: primary is the remote index (nil when
// not configured) and fallback is the Postgres linear scan. The fallback
// decision happens at ingestion time only; a chunk is always searched in
// the store that holds its vector.
type Orchestrator struct {
	provider provider.Provider
	records  RecordStore
	primary  vectorstore.Store
	fallback vectorstore.Store
	cfg      config.RetrievalConfig
	maxQuiz  int
	logger   *log.Logger
}

// New builds an Orchestrator. primary may be nil.
func New(p provider.Provider, records RecordStore, primary, fallback vectorstore.Store, cfg config.RetrievalConfig, maxQuizQuestions int, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[RAG] ", log.LstdFlags)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.ScoreThreshold == 0 {
		cfg.ScoreThreshold = 0.70
	}
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = 1000
	}
	if cfg.ChunkMaxTokens <= 0 {
		cfg.ChunkMaxTokens = chunk.DefaultMaxTokens
	}
	if cfg.MaxContextChunks <= 0 {
		cfg.MaxContextChunks = 5
	}
	if maxQuizQuestions <= 0 {
		maxQuizQuestions = 20
	}
	return &Orchestrator{
		provider: p,
		records:  records,
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		maxQuiz:  maxQuizQuestions,
		logger:   logger,
	}
}

// Ingest runs the full ingestion flow: extract, clean, chunk, create the
// document record, embed every chunk in one batch call, then store the
// vectors. The remote index is preferred when configured; on a store-time
// failure the vectors are written to the chunk rows instead and the
// degradation is logged. When both stores fail the chunk rows are removed,
// leaving an empty document the caller should treat as failed.
func (o *Orchestrator) Ingest(ctx context.Context, ownerID string, data []byte, mimeType, fileName string) (*models.IngestResult, error) {
	text, err := extract.Extract(data, mimeType)
	if err != nil {
		ingestTotal.WithLabelValues("extract_error").Inc()
		return nil, err
	}

	cleaned := chunk.Clean(text)
	if cleaned == "" {
		ingestTotal.WithLabelValues("empty").Inc()
		return nil, ErrEmptyContent
	}
	parts := chunk.Split(cleaned, o.cfg.ChunkMaxTokens)
	if len(parts) == 0 {
		ingestTotal.WithLabelValues("empty").Inc()
		return nil, ErrEmptyContent
	}

	docID, err := o.records.CreateDocument(ctx, ownerID, fileName)
	if err != nil {
		ingestTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("create document: %w", err)
	}

	embedded, err := o.provider.Embed(ctx, parts)
	if err != nil {
		// The document record remains with zero chunks; callers treat that
		// as failed and eligible for deletion or retry.
		ingestTotal.WithLabelValues("embed_error").Inc()
		return nil, err
	}
	if len(embedded.Vectors) != len(parts) {
		ingestTotal.WithLabelValues("embed_error").Inc()
		return nil, fmt.Errorf("embedding batch mismatch: %d chunks, %d vectors", len(parts), len(embedded.Vectors))
	}

	chunks := make([]models.Chunk, len(parts))
	records := make([]vectorstore.Record, len(parts))
	for i, content := range parts {
		id := uuid.NewString()
		chunks[i] = models.Chunk{ID: id, DocumentID: docID, Position: i, Content: content}
		records[i] = vectorstore.Record{
			ID:           id,
			DocumentID:   docID,
			DocumentName: fileName,
			OwnerID:      ownerID,
			Text:         content,
			Embedding:    embedded.Vectors[i],
		}
	}

	if err := o.records.InsertChunks(ctx, docID, chunks); err != nil {
		ingestTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("insert chunks: %w", err)
	}

	method := models.StoragePostgres
	stored := false
	if o.primary != nil {
		if err := o.primary.Upsert(ctx, records); err != nil {
			o.logger.Printf("vector index store failed for document %s, falling back to postgres: %v", docID, err)
			storageFallbackTotal.Inc()
		} else {
			method = models.StorageVectorIndex
			stored = true
		}
	}
	if !stored {
		if err := o.fallback.Upsert(ctx, records); err != nil {
			// Leave the document empty so the failure is visible and the
			// upload can be retried.
			if derr := o.records.DeleteChunks(ctx, docID); derr != nil {
				o.logger.Printf("cleanup of chunks for document %s failed: %v", docID, derr)
			}
			ingestTotal.WithLabelValues("storage_error").Inc()
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}

	if err := o.records.SetDocumentStorageMethod(ctx, docID, method); err != nil {
		o.logger.Printf("recording storage method for document %s failed: %v", docID, err)
	}

	ingestTotal.WithLabelValues("ok").Inc()
	return &models.IngestResult{
		DocumentID:    docID,
		DocumentName:  fileName,
		ChunksCreated: len(chunks),
		StorageMethod: method,
		TextLength:    len(cleaned),
	}, nil
}

// Query answers a natural-language question grounded in the owner's
// documents. The chat record is persisted best-effort: a persistence
// failure is logged but never fails the response.
func (o *Orchestrator) Query(ctx context.Context, ownerID, text string) (*models.QueryResult, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		queryTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: empty", ErrInvalidQuery)
	}
	if len(query) > o.cfg.MaxQueryLength {
		queryTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: longer than %d characters", ErrInvalidQuery, o.cfg.MaxQueryLength)
	}

	vector, err := o.provider.EmbedOne(ctx, query)
	if err != nil {
		queryTotal.WithLabelValues("embed_error").Inc()
		return nil, err
	}

	results, err := o.search(ctx, vector, ownerID)
	if err != nil {
		queryTotal.WithLabelValues("search_error").Inc()
		return nil, err
	}

	relevant := make([]models.VectorSearchResult, 0, len(results))
	for _, r := range results {
		if r.Score > o.cfg.ScoreThreshold {
			relevant = append(relevant, r)
		}
		if len(relevant) >= o.cfg.MaxContextChunks {
			break
		}
	}

	answer, err := o.provider.Complete(ctx, groundedSystemPrompt(), query, buildContext(relevant))
	if err != nil {
		queryTotal.WithLabelValues("completion_error").Inc()
		return nil, err
	}

	chatID, err := o.records.CreateChat(ctx, ownerID, query, answer)
	if err != nil {
		o.logger.Printf("chat record persistence failed: %v", err)
		chatID = ""
	}

	references := make([]string, len(relevant))
	for i, r := range relevant {
		references[i] = formatReference(r)
	}

	queryTotal.WithLabelValues("ok").Inc()
	return &models.QueryResult{Answer: answer, References: references, ChatID: chatID}, nil
}

// search queries whichever stores hold vectors and merges the hits by
// descending score. Each chunk's vector lives in exactly one store, so the
// merge never mixes storage and search paths for the same chunk.
func (o *Orchestrator) search(ctx context.Context, vector []float32, ownerID string) ([]models.VectorSearchResult, error) {
	var merged []models.VectorSearchResult
	if o.primary != nil {
		hits, err := o.primary.Search(ctx, vector, o.cfg.TopK, ownerID)
		if err != nil {
			return nil, fmt.Errorf("vector index search: %w", err)
		}
		merged = append(merged, hits...)
	}
	hits, err := o.fallback.Search(ctx, vector, o.cfg.TopK, ownerID)
	if err != nil {
		return nil, fmt.Errorf("postgres search: %w", err)
	}
	merged = append(merged, hits...)

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > o.cfg.TopK {
		merged = merged[:o.cfg.TopK]
	}
	return merged, nil
}

// DeleteDocument removes an owner's document. When the vectors live in the
// remote index they are purged there first; relational rows go with the
// document's cascade.
func (o *Orchestrator) DeleteDocument(ctx context.Context, ownerID, documentID string) error {
	doc, err := o.records.GetDocument(ctx, documentID, ownerID)
	if err != nil {
		return mapNotFound(err)
	}
	if doc.StorageMethod == models.StorageVectorIndex && o.primary != nil {
		if err := o.primary.DeleteByDocument(ctx, documentID); err != nil {
			return fmt.Errorf("delete index vectors: %w", err)
		}
	}
	return mapNotFound(o.records.DeleteDocument(ctx, documentID, ownerID))
}

// PurgeOwner removes every trace of a user from the vector stores. Called
// before the relational user cascade fires.
func (o *Orchestrator) PurgeOwner(ctx context.Context, ownerID string) error {
	if purger, ok := o.primary.(OwnerPurger); ok && o.primary != nil {
		return purger.DeleteByOwner(ctx, ownerID)
	}
	return nil
}
