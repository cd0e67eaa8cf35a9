package rag

import (
	"fmt"
	"strings"

	"github.com/studyowl/studyowl/models"
)

// InsufficientAnswer is the fixed sentence the model is instructed to emit
// when the retrieved context cannot answer the question.
const InsufficientAnswer = "I don't have enough information in the uploaded documents to answer that question."

// groundedSystemPrompt constrains the model to the retrieved context only.
func groundedSystemPrompt() string {
	return fmt.Sprintf(`You are a study assistant that answers questions about the user's uploaded documents.

Answer using ONLY the context information provided with the question. Do not use outside knowledge. If the context does not contain the information needed to answer, reply with exactly this sentence: %q`, InsufficientAnswer)
}

// buildContext joins the surfaced chunk texts with blank-line separators.
func buildContext(results []models.VectorSearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Content
	}
	return strings.Join(texts, "\n\n")
}

const referenceExcerptLen = 100

// formatReference renders a surfaced chunk as a human-readable citation:
// a truncated excerpt plus the similarity score to three decimals.
func formatReference(r models.VectorSearchResult) string {
	excerpt := r.Content
	if runes := []rune(excerpt); len(runes) > referenceExcerptLen {
		excerpt = string(runes[:referenceExcerptLen]) + "..."
	}
	return fmt.Sprintf("%s (similarity: %.3f)", excerpt, r.Score)
}
