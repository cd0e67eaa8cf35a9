package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studyowl/studyowl/internal/extract"
	"github.com/studyowl/studyowl/internal/rag"
	"github.com/studyowl/studyowl/internal/store"
	"github.com/studyowl/studyowl/provider"
)

// toHTTPError maps the pipeline's typed failures to HTTP statuses. Quota
// exhaustion gets its own status so clients can show a billing-specific
// message rather than a generic failure.
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusRequestTimeout, "request cancelled")
	case errors.Is(err, provider.ErrQuotaExceeded):
		return echo.NewHTTPError(http.StatusTooManyRequests, "provider quota exceeded")
	case errors.Is(err, extract.ErrUnsupportedType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, extract.ErrExtraction),
		errors.Is(err, rag.ErrEmptyContent),
		errors.Is(err, rag.ErrInvalidQuery),
		errors.Is(err, rag.ErrQuestionCount),
		errors.Is(err, provider.ErrEmptyInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, rag.ErrDocumentNotFound), errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	case errors.Is(err, rag.ErrNoContent):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, provider.ErrMalformedQuiz),
		errors.Is(err, provider.ErrEmptyResponse):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) {
			return echo.NewHTTPError(http.StatusBadGateway, "provider unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
