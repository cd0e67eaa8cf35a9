package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/studyowl/studyowl/models"
)

func TestCreateDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}

	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO documents (user_id, name, storage_method) VALUES ($1,$2,$3) RETURNING id
`)).
		WithArgs("user-1", "notes.pdf", "postgres").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("doc-1"))

	id, err := st.CreateDocument(context.Background(), "user-1", "notes.pdf")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if id != "doc-1" {
		t.Fatalf("expected doc-1 got %s", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}

	mock.ExpectQuery(`SELECT id, user_id, name, storage_method, created_at FROM documents`).
		WithArgs("doc-1", "someone-else").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "storage_method", "created_at"}))

	_, err = st.GetDocument(context.Background(), "doc-1", "someone-else")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	created := time.Now()

	mock.ExpectQuery(`SELECT id, user_id, name, storage_method, created_at FROM documents`).
		WithArgs("doc-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "storage_method", "created_at"}).
			AddRow("doc-1", "user-1", "notes.pdf", "vector_index", created))

	doc, err := st.GetDocument(context.Background(), "doc-1", "user-1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.StorageMethod != models.StorageVectorIndex {
		t.Fatalf("expected vector_index, got %s", doc.StorageMethod)
	}
}

func TestDeleteDocumentNotOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM documents WHERE id=$1 AND user_id=$2`)).
		WithArgs("doc-1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := st.DeleteDocument(context.Background(), "doc-1", "intruder"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertChunksTransactional(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}

	insert := regexp.QuoteMeta(`
INSERT INTO chunks (id, document_id, position, content, embedding) VALUES ($1,$2,$3,$4,$5)
`)
	mock.ExpectBegin()
	mock.ExpectPrepare(insert)
	mock.ExpectExec(insert).
		WithArgs("c1", "doc-1", 0, "first chunk", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).
		WithArgs("c2", "doc-1", 1, "second chunk", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	chunks := []models.Chunk{
		{ID: "c1", Position: 0, Content: "first chunk"},
		{ID: "c2", Position: 1, Content: "second chunk", Embedding: []float32{0.1, 0.2}},
	}
	if err := st.InsertChunks(context.Background(), "doc-1", chunks); err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertChunksRollbackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}

	insert := regexp.QuoteMeta(`
INSERT INTO chunks (id, document_id, position, content, embedding) VALUES ($1,$2,$3,$4,$5)
`)
	mock.ExpectBegin()
	mock.ExpectPrepare(insert)
	mock.ExpectExec(insert).
		WithArgs("c1", "doc-1", 0, "first", nil).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = st.InsertChunks(context.Background(), "doc-1", []models.Chunk{{ID: "c1", Position: 0, Content: "first"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertChunksEmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	if err := st.InsertChunks(context.Background(), "doc-1", nil); err != nil {
		t.Fatalf("InsertChunks(nil): %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentChunkTextsOrdered(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}

	mock.ExpectQuery(`SELECT content FROM chunks WHERE document_id=\$1 ORDER BY position`).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"content"}).AddRow("first").AddRow("second"))

	texts, err := st.DocumentChunkTexts(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("DocumentChunkTexts: %v", err)
	}
	if len(texts) != 2 || texts[0] != "first" || texts[1] != "second" {
		t.Fatalf("unexpected texts %v", texts)
	}
}

func TestListChatsDefaultLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	created := time.Now()

	mock.ExpectQuery(`SELECT id, user_id, query, answer, created_at FROM chats`).
		WithArgs("user-1", 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "query", "answer", "created_at"}).
			AddRow("chat-1", "user-1", "what?", "that.", created))

	chats, err := st.ListChats(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 1 || chats[0].Answer != "that." {
		t.Fatalf("unexpected chats %+v", chats)
	}
}
