// Package store is the relational record store for users, documents, chunks
// and chat history, backed by Postgres through lib/pq.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/studyowl/studyowl/models"
)

// ErrNotFound is returned when a record does not exist or is owned by
// another user. The two cases are deliberately indistinguishable so callers
// cannot probe for other users' documents.
var ErrNotFound = errors.New("store: not found")

// Store wraps the database handle. All queries are raw parameterized SQL.
type Store struct {
	DB *sql.DB
}

// NewWithDSN opens and pings a Postgres connection.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// User operations

func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// DeleteUser removes the user; documents, chunks and chats follow via
// cascade. Remote index vectors are purged separately by the caller.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	return err
}

// Document operations

// CreateDocument inserts a document owned by userID. The storage method
// starts as postgres and is updated once the vector store is chosen.
func (s *Store) CreateDocument(ctx context.Context, userID, name string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO documents (user_id, name, storage_method) VALUES ($1,$2,$3) RETURNING id
`, userID, name, string(models.StoragePostgres)).Scan(&id)
	return id, err
}

func (s *Store) SetDocumentStorageMethod(ctx context.Context, id string, method models.StorageMethod) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE documents SET storage_method=$2 WHERE id=$1`, id, string(method))
	return err
}

// GetDocument fetches a document scoped to its owner.
func (s *Store) GetDocument(ctx context.Context, id, userID string) (models.Document, error) {
	var doc models.Document
	var method string
	err := s.DB.QueryRowContext(ctx, `
SELECT id, user_id, name, storage_method, created_at FROM documents WHERE id=$1 AND user_id=$2
`, id, userID).Scan(&doc.ID, &doc.UserID, &doc.Name, &method, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, ErrNotFound
	}
	if err != nil {
		return models.Document{}, err
	}
	doc.StorageMethod = models.StorageMethod(method)
	return doc, nil
}

func (s *Store) ListDocuments(ctx context.Context, userID string) ([]models.Document, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, name, storage_method, created_at FROM documents WHERE user_id=$1 ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		var method string
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Name, &method, &doc.CreatedAt); err != nil {
			return nil, err
		}
		doc.StorageMethod = models.StorageMethod(method)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes an owner-scoped document; its chunks cascade.
func (s *Store) DeleteDocument(ctx context.Context, id, userID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM documents WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Chunk operations

// InsertChunks writes the chunk rows for a document in one transaction,
// preserving chunker order through the position column. Embeddings may be
// nil when the vectors live in the remote index.
func (s *Store) InsertChunks(ctx context.Context, documentID string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (id, document_id, position, content, embedding) VALUES ($1,$2,$3,$4,$5)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		var embedding interface{}
		if len(c.Embedding) > 0 {
			embedding = pq.Array(c.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, documentID, c.Position, c.Content, embedding); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Position, err)
		}
	}
	return tx.Commit()
}

// DeleteChunks removes a document's chunk rows without touching the
// document record itself.
func (s *Store) DeleteChunks(ctx context.Context, documentID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM chunks WHERE document_id=$1`, documentID)
	return err
}

// DocumentChunkTexts returns a document's chunk texts in source order.
func (s *Store) DocumentChunkTexts(ctx context.Context, documentID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT content FROM chunks WHERE document_id=$1 ORDER BY position
`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		texts = append(texts, t)
	}
	return texts, rows.Err()
}

// Chat operations

func (s *Store) CreateChat(ctx context.Context, userID, query, answer string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO chats (user_id, query, answer) VALUES ($1,$2,$3) RETURNING id
`, userID, query, answer).Scan(&id)
	return id, err
}

func (s *Store) ListChats(ctx context.Context, userID string, limit int) ([]models.ChatRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, query, answer, created_at FROM chats WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chats []models.ChatRecord
	for rows.Next() {
		var c models.ChatRecord
		if err := rows.Scan(&c.ID, &c.UserID, &c.Query, &c.Answer, &c.CreatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}
