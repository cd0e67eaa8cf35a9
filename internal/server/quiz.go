package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studyowl/studyowl/internal/rag"
	"github.com/studyowl/studyowl/internal/runtime"
	"github.com/studyowl/studyowl/models"
)

type quizGenerator interface {
	GenerateQuiz(ctx context.Context, ownerID, documentID string, numQuestions int) (*models.QuizResult, error)
}

// QuizHandler exposes quiz generation and answer validation.
type QuizHandler struct {
	Orch quizGenerator
}

type quizGenerateRequest struct {
	DocumentID   string `json:"document_id"`
	NumQuestions int    `json:"num_questions"`
}

type quizValidateRequest struct {
	Answers   []int                 `json:"answers"`
	Questions []models.QuizQuestion `json:"questions"`
}

func (h *QuizHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("/generate", h.generate)
	g.POST("/validate", h.validate)
}

func (h *QuizHandler) generate(c echo.Context) error {
	userID := c.Get("user_id").(string)
	var req quizGenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DocumentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "document_id is required")
	}
	if req.NumQuestions == 0 {
		req.NumQuestions = 5
	}
	result, err := h.Orch.GenerateQuiz(c.Request().Context(), userID, req.DocumentID, req.NumQuestions)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *QuizHandler) validate(c echo.Context) error {
	var req quizValidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	validation, err := rag.ValidateQuizAnswers(req.Answers, req.Questions)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, validation)
}
