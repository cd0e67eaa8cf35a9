package server

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/studyowl/studyowl/internal/runtime"
	"github.com/studyowl/studyowl/models"
)

// maxUploadBytes bounds an uploaded document.
const maxUploadBytes = 20 << 20

type ingestor interface {
	Ingest(ctx context.Context, ownerID string, data []byte, mimeType, fileName string) (*models.IngestResult, error)
	DeleteDocument(ctx context.Context, ownerID, documentID string) error
}

type documentStore interface {
	ListDocuments(ctx context.Context, userID string) ([]models.Document, error)
	GetDocument(ctx context.Context, id, userID string) (models.Document, error)
}

// DocumentsHandler exposes document upload, listing and deletion.
type DocumentsHandler struct {
	Orch  ingestor
	Store documentStore
}

func (h *DocumentsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("", h.upload)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)
}

func (h *DocumentsHandler) upload(c echo.Context) error {
	userID := c.Get("user_id").(string)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file field")
	}
	if fileHeader.Size > maxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(data) > maxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mimeFromName(fileHeader.Filename)
	}

	result, err := h.Orch.Ingest(c.Request().Context(), userID, data, mimeType, fileHeader.Filename)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *DocumentsHandler) list(c echo.Context) error {
	userID := c.Get("user_id").(string)
	docs, err := h.Store.ListDocuments(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return c.JSON(http.StatusOK, docs)
}

func (h *DocumentsHandler) get(c echo.Context) error {
	userID := c.Get("user_id").(string)
	doc, err := h.Store.GetDocument(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *DocumentsHandler) delete(c echo.Context) error {
	userID := c.Get("user_id").(string)
	if err := h.Orch.DeleteDocument(c.Request().Context(), userID, c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// mimeFromName guesses a content type from the file extension when the
// upload did not declare one.
func mimeFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt", ".md":
		return "text/plain"
	default:
		return ""
	}
}
