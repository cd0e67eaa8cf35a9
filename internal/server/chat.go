package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/studyowl/studyowl/internal/runtime"
	"github.com/studyowl/studyowl/models"
)

type querier interface {
	Query(ctx context.Context, ownerID, text string) (*models.QueryResult, error)
}

type chatStore interface {
	ListChats(ctx context.Context, userID string, limit int) ([]models.ChatRecord, error)
}

// ChatHandler exposes grounded question answering and chat history.
type ChatHandler struct {
	Orch  querier
	Store chatStore
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *ChatHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("", h.ask)
	g.GET("/history", h.history)
}

func (h *ChatHandler) ask(c echo.Context) error {
	userID := c.Get("user_id").(string)
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.Orch.Query(c.Request().Context(), userID, req.Message)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *ChatHandler) history(c echo.Context) error {
	userID := c.Get("user_id").(string)
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}
	chats, err := h.Store.ListChats(c.Request().Context(), userID, limit)
	if err != nil {
		return toHTTPError(err)
	}
	if chats == nil {
		chats = []models.ChatRecord{}
	}
	return c.JSON(http.StatusOK, chats)
}
