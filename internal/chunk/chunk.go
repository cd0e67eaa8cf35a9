// Package chunk normalizes extracted text and splits it into bounded,
// sentence-respecting segments for embedding.
package chunk

import (
	"strings"
	"unicode"
)

// DefaultMaxTokens is the per-chunk budget used when the caller passes 0.
const DefaultMaxTokens = 500

// charsPerToken is the rough characters-per-token ratio used for the budget
// estimate. It is intentionally approximate, not a tokenizer.
const charsPerToken = 4

// Clean collapses whitespace and strips characters outside a conservative
// alphanumeric-plus-basic-punctuation set.
func Clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case strings.ContainsRune(`.,!?;:'"()-`, r):
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Split breaks text into chunks of at most maxTokens estimated tokens
// (len/4 characters), never cutting inside a sentence. Sentences accumulate
// into the running chunk and the chunk is flushed whenever the next sentence
// would push the estimate over the budget. A single sentence that alone
// exceeds the budget is kept whole rather than split mid-sentence. Chunks
// appear in source order; empty chunks are dropped.
func Split(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	maxChars := maxTokens * charsPerToken

	sentences := splitSentences(text)
	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+1+len(sentence) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitSentences cuts on sentence-terminal punctuation, keeping the
// terminator attached to its sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			flush()
		}
	}
	flush()
	return sentences
}

// EstimateTokens reports the approximate token count used for the chunk
// budget.
func EstimateTokens(text string) int {
	return len(text) / charsPerToken
}
