package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"

	"github.com/lib/pq"

	"github.com/studyowl/studyowl/models"
)

// Postgres is the relational fallback variant. Chunk rows already exist in
// the chunks table (the record store inserts them during ingestion); this
// variant writes each vector into the row's plain real[] column and ranks
// searches by brute-force cosine similarity over the owner-scoped rows.
// It is the correctness baseline: any replacement indexing strategy must
// match its top-K cosine ranking.
type Postgres struct {
	DB *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

// Upsert writes the embeddings onto the existing chunk rows.
func (p *Postgres) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE chunks SET embedding = $2 WHERE id = $1`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if len(rec.Embedding) == 0 {
			return fmt.Errorf("embedding vector required for chunk %s", rec.ID)
		}
		res, err := stmt.ExecContext(ctx, rec.ID, pq.Array(rec.Embedding))
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("chunk %s has no row to attach an embedding to", rec.ID)
		}
	}
	return tx.Commit()
}

// Search loads the candidate rows (scoped to the owner when given) and ranks
// them by cosine similarity, descending, limited to topK. The linear scan is
// the defined semantic baseline, not an optimization target.
func (p *Postgres) Search(ctx context.Context, vector []float32, topK int, ownerID string) ([]models.VectorSearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector must not be empty")
	}
	if topK <= 0 {
		topK = 5
	}
	rows, err := p.DB.QueryContext(ctx, `
SELECT c.id, c.content, c.embedding, c.document_id, d.name
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE c.embedding IS NOT NULL
  AND ($1 = '' OR d.user_id::text = $1)
`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.VectorSearchResult
	for rows.Next() {
		var (
			res       models.VectorSearchResult
			embedding pq.Float32Array
		)
		if err := rows.Scan(&res.ChunkID, &res.Content, &embedding, &res.DocumentID, &res.DocumentName); err != nil {
			return nil, err
		}
		res.Score = cosine(vector, embedding)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteByDocument is a no-op: relational chunk rows (and their embeddings)
// are removed by the document's cascading delete.
func (p *Postgres) DeleteByDocument(ctx context.Context, documentID string) error {
	return nil
}

// cosine is the dot product of two vectors divided by the product of their
// magnitudes, in [-1, 1]. Mismatched or zero-magnitude vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
