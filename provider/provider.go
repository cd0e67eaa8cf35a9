package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/studyowl/studyowl/models"
)

// Sentinel errors surfaced by provider implementations. Callers distinguish
// quota exhaustion from transient failures so the boundary can map it to a
// billing-specific status.
var (
	// ErrEmptyInput is returned when every input text is empty or whitespace.
	ErrEmptyInput = errors.New("provider: empty input")
	// ErrEmptyResponse is returned when the provider answers with no content.
	ErrEmptyResponse = errors.New("provider: empty response")
	// ErrQuotaExceeded marks a quota-exhaustion signal. It is never retried.
	ErrQuotaExceeded = errors.New("provider: quota exceeded")
	// ErrMalformedQuiz is returned when quiz output fails JSON parsing or
	// shape validation. Parse failures are not retried.
	ErrMalformedQuiz = errors.New("provider: malformed quiz output")
)

// APIError is a transport-level failure from the provider HTTP API.
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter int // seconds, from the Retry-After header; 0 when absent
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider API error: status %d code %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("provider API error: status %d: %s", e.Status, e.Message)
}

// EmbeddingResult carries the vectors for a batch call, index-aligned with
// the filtered inputs, plus the per-input token cost. The provider reports
// only aggregate usage for a batch, so the total is apportioned evenly.
type EmbeddingResult struct {
	Vectors     [][]float32
	TotalTokens int
	TokensEach  []int
}

// Provider is the credential-free call surface the retrieval pipeline
// consumes. Implementations wrap a remote embedding/completion API and apply
// the shared retry policy to every outbound call.
type Provider interface {
	// Embed returns one vector per non-empty input, in input order.
	// Empty/whitespace-only texts are filtered out before the call and do
	// not appear in the output. Fails with ErrEmptyInput when nothing
	// remains.
	Embed(ctx context.Context, texts []string) (*EmbeddingResult, error)
	// EmbedOne embeds a single text.
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	// Complete generates an answer. When contextText is non-empty the user
	// turn is framed as "Context information:\n<ctx>\n\nQuestion: <query>".
	Complete(ctx context.Context, systemPrompt, query, contextText string) (string, error)
	// GenerateQuiz asks the model for a JSON array of multiple-choice
	// questions derived from contextText and validates the shape of each.
	GenerateQuiz(ctx context.Context, contextText string, numQuestions int) ([]models.QuizQuestion, error)
}
