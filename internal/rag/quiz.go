package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/studyowl/studyowl/internal/store"
	"github.com/studyowl/studyowl/models"
)

// GenerateQuiz builds numQuestions multiple-choice questions from one of
// the owner's documents. A missing document and an ownership mismatch are
// reported identically as ErrDocumentNotFound.
func (o *Orchestrator) GenerateQuiz(ctx context.Context, ownerID, documentID string, numQuestions int) (*models.QuizResult, error) {
	if numQuestions < 1 || numQuestions > o.maxQuiz {
		quizTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: must be between 1 and %d", ErrQuestionCount, o.maxQuiz)
	}

	doc, err := o.records.GetDocument(ctx, documentID, ownerID)
	if err != nil {
		quizTotal.WithLabelValues("not_found").Inc()
		return nil, mapNotFound(err)
	}

	texts, err := o.records.DocumentChunkTexts(ctx, documentID)
	if err != nil {
		quizTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("load document content: %w", err)
	}
	if len(texts) == 0 {
		quizTotal.WithLabelValues("no_content").Inc()
		return nil, ErrNoContent
	}

	questions, err := o.provider.GenerateQuiz(ctx, strings.Join(texts, "\n\n"), numQuestions)
	if err != nil {
		quizTotal.WithLabelValues("generation_error").Inc()
		return nil, err
	}

	quizTotal.WithLabelValues("ok").Inc()
	return &models.QuizResult{Questions: questions, DocumentName: doc.Name}, nil
}

// ValidateQuizAnswers scores a submitted quiz. It is a pure function:
// answers[i] is the user's chosen option index for questions[i], and the
// two slices must be the same length.
func ValidateQuizAnswers(answers []int, questions []models.QuizQuestion) (*models.QuizValidation, error) {
	if len(answers) != len(questions) {
		return nil, fmt.Errorf("answers and questions length mismatch: %d vs %d", len(answers), len(questions))
	}
	validation := &models.QuizValidation{
		TotalQuestions: len(questions),
		Results:        make([]models.QuizAnswerResult, len(questions)),
	}
	for i, q := range questions {
		correct := answers[i] == q.CorrectAnswer
		if correct {
			validation.Score++
		}
		validation.Results[i] = models.QuizAnswerResult{
			Question:      q.Question,
			Correct:       correct,
			UserAnswer:    answers[i],
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		}
	}
	if validation.TotalQuestions > 0 {
		validation.Percentage = float64(validation.Score) / float64(validation.TotalQuestions) * 100
	}
	return validation, nil
}

// mapNotFound converts the store's not-found sentinel into the pipeline's.
func mapNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrDocumentNotFound
	}
	return err
}
