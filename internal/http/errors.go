package http

import (
	"errors"
	"net/http"

	"dompet/internal/core"
	"dompet/internal/log"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case core.IsValidation(err), errors.Is(err, core.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Backend failures are logged and hidden behind a
// generic message; domain errors are shown as they are.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var partial *core.PartialWriteError
	if errors.As(err, &partial) {
		body = errorBody{Error: "transaction saved but the savings offset was not", TransactionID: partial.PrimaryID}
	} else if status == http.StatusInternalServerError {
		body.Error = "internal error"
	}

	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method, log.FieldPath, r.URL.Path, log.FieldError, err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldStatusCode, status, log.FieldError, err)
	}

	NewHTMXResponse().
		Status(status).
		TriggerErrorNotification(body.Error).
		JSON(body).
		Write(w)
}

// writeAuthError is the onError hook for the bearer token middleware.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, core.ErrUnauthorized) {
		err = core.ErrUnauthorized
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="dompet"`)
	writeError(w, r, err)
}
