package vectorstore

import (
	"context"
	"math"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgres(db)

	query := regexp.QuoteMeta(`UPDATE chunks SET embedding = $2 WHERE id = $1`)
	mock.ExpectBegin()
	mock.ExpectPrepare(query)
	mock.ExpectExec(query).WithArgs("chunk-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("chunk-2", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	records := []Record{
		{ID: "chunk-1", Embedding: []float32{0.1, 0.2}},
		{ID: "chunk-2", Embedding: []float32{0.3, 0.4}},
	}
	if err := st.Upsert(context.Background(), records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresUpsertMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgres(db)

	query := regexp.QuoteMeta(`UPDATE chunks SET embedding = $2 WHERE id = $1`)
	mock.ExpectBegin()
	mock.ExpectPrepare(query)
	mock.ExpectExec(query).WithArgs("ghost", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = st.Upsert(context.Background(), []Record{{ID: "ghost", Embedding: []float32{1}}})
	if err == nil {
		t.Fatal("expected error for a chunk with no row")
	}
}

func TestPostgresUpsertRejectsEmptyEmbedding(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgres(db)
	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta(`UPDATE chunks SET embedding = $2 WHERE id = $1`))
	mock.ExpectRollback()

	if err := st.Upsert(context.Background(), []Record{{ID: "chunk-1"}}); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}

func TestPostgresSearchRanksByCosine(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgres(db)

	rows := sqlmock.NewRows([]string{"id", "content", "embedding", "document_id", "name"}).
		AddRow("c-orthogonal", "unrelated", []byte(`{0,1}`), "d1", "doc.pdf").
		AddRow("c-exact", "exact match", []byte(`{1,0}`), "d1", "doc.pdf").
		AddRow("c-close", "close match", []byte(`{0.9,0.1}`), "d2", "other.pdf")

	mock.ExpectQuery(`SELECT c\.id, c\.content, c\.embedding, c\.document_id, d\.name`).
		WithArgs("user-1").
		WillReturnRows(rows)

	results, err := st.Search(context.Background(), []float32{1, 0}, 2, "user-1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected topK=2 results, got %d", len(results))
	}
	if results[0].ChunkID != "c-exact" || results[1].ChunkID != "c-close" {
		t.Fatalf("wrong ranking: %s, %s", results[0].ChunkID, results[1].ChunkID)
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Fatalf("exact match should score 1.0, got %f", results[0].Score)
	}
	if results[1].Score >= results[0].Score {
		t.Fatalf("scores not descending: %f >= %f", results[1].Score, results[0].Score)
	}
}

func TestPostgresSearchEmptyVector(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgres(db)
	if _, err := st.Search(context.Background(), nil, 5, ""); err == nil {
		t.Fatal("expected error for empty vector")
	}
}

func TestCosine(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cosine(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("cosine(%v, %v) = %f, want %f", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
