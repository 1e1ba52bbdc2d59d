package notifications

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/notifykit/pkg/binder"
	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/router"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var schemaErr *template.SchemaError
	switch {
	case errors.Is(err, ErrNoRecipient):
		status = http.StatusUnauthorized
	case errors.Is(err, template.ErrNotFound),
		errors.Is(err, router.ErrBindingNotFound),
		errors.Is(err, dispatcher.ErrLogNotFound),
		errors.Is(err, notification.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, template.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, template.ErrSystemTemplate):
		status = http.StatusForbidden
	case errors.Is(err, template.ErrInactiveTemplate),
		errors.Is(err, template.ErrChannelNotSupported):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &schemaErr),
		errors.Is(err, router.ErrEventTypeEmpty),
		errors.Is(err, router.ErrEntityTypeEmpty),
		errors.Is(err, router.ErrTemplateCodeEmpty),
		errors.Is(err, router.ErrNegativeDelay),
		errors.Is(err, router.ErrConditionFieldEmpty),
		errors.Is(err, router.ErrUnknownOperator),
		errors.Is(err, router.ErrRecipientMissing),
		errors.Is(err, binder.ErrFailedToParseJSON),
		errors.Is(err, binder.ErrMissingContentType),
		errors.Is(err, binder.ErrUnsupportedMediaType):
		status = http.StatusBadRequest
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}
