package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-resale/internal/status"
)

const msgInternal = "Something went wrong while processing your request."

// apiError turns a service error into the PocketBase error response for its
// kind. Errors without a kind are logged and hidden behind a generic 500.
func apiError(e *core.RequestEvent, err error) error {
	var se *status.Error
	if errors.As(err, &se) {
		switch {
		case errors.Is(err, status.ErrValidation):
			return apis.NewBadRequestError(se.Message, se.Details)
		case errors.Is(err, status.ErrAuth):
			return apis.NewUnauthorizedError(se.Message, nil)
		case errors.Is(err, status.ErrForbidden):
			return apis.NewForbiddenError(se.Message, nil)
		case errors.Is(err, status.ErrNotFound):
			return apis.NewNotFoundError(se.Message, nil)
		case errors.Is(err, status.ErrConflict):
			return apis.NewApiError(http.StatusConflict, se.Message, nil)
		}
	}

	slog.Error("Request failed",
		"method", e.Request.Method,
		"path", e.Request.URL.Path,
		"request_id", RequestIDFrom(e),
		"error", err,
	)
	return apis.NewInternalServerError(msgInternal, nil)
}
