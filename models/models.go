package models

import "time"

// StorageMethod indicates which vector store holds a document's embeddings.
type StorageMethod string

const (
	StorageVectorIndex StorageMethod = "vector_index"
	StoragePostgres    StorageMethod = "postgres"
)

// Document is an uploaded file whose text has been chunked and embedded.
type Document struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Name          string        `json:"name"`
	StorageMethod StorageMethod `json:"storage_method"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Chunk is a bounded segment of a document's text. The embedding column is
// populated only when the chunk's vector lives in the relational store.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Position   int       `json:"position"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChatRecord stores one answered query. Persistence is best-effort.
type ChatRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// VectorSearchResult is a single similarity-search hit. Score is cosine
// similarity in [-1, 1].
type VectorSearchResult struct {
	ChunkID      string  `json:"chunk_id"`
	Content      string  `json:"content"`
	Score        float64 `json:"score"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
}

// QuizQuestion is a generated multiple-choice question. Options always has
// exactly four entries and CorrectAnswer indexes into it.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// IngestResult reports a successful document ingestion.
type IngestResult struct {
	DocumentID    string        `json:"document_id"`
	DocumentName  string        `json:"document_name"`
	ChunksCreated int           `json:"chunks_created"`
	StorageMethod StorageMethod `json:"storage_method"`
	TextLength    int           `json:"text_length"`
}

// QueryResult is the grounded answer for one chat query.
type QueryResult struct {
	Answer     string   `json:"answer"`
	References []string `json:"references"`
	ChatID     string   `json:"chat_id,omitempty"`
}

// QuizResult bundles generated questions with the source document name.
type QuizResult struct {
	Questions    []QuizQuestion `json:"questions"`
	DocumentName string         `json:"document_name"`
}

// QuizAnswerResult reports the outcome for one answered question.
type QuizAnswerResult struct {
	Question      string `json:"question"`
	Correct       bool   `json:"correct"`
	UserAnswer    int    `json:"user_answer"`
	CorrectAnswer int    `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

// QuizValidation is the score summary for a submitted quiz.
type QuizValidation struct {
	Score          int                `json:"score"`
	TotalQuestions int                `json:"total_questions"`
	Percentage     float64            `json:"percentage"`
	Results        []QuizAnswerResult `json:"results"`
}
