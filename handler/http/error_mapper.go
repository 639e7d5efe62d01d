package httpServer

import (
	stdErrors "errors"
	"log/slog"
	"net/http"

	domainErr "github.com/Tanmoy095/loadboard/internal/domain/errors"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// mapError translates a domain error into a status code and a body that is
// safe to show the caller. Unknown errors never leak their text.
func mapError(err error) (int, errorBody) {
	switch {
	case stdErrors.Is(err, domainErr.ErrValidation):
		return http.StatusBadRequest, errorBody{Error: "validation_error", Details: err.Error()}
	case stdErrors.Is(err, domainErr.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "not_found", Details: err.Error()}
	case stdErrors.Is(err, domainErr.ErrConflict):
		return http.StatusConflict, errorBody{Error: "conflict", Details: err.Error()}
	case stdErrors.Is(err, domainErr.ErrTransaction):
		return http.StatusServiceUnavailable, errorBody{Error: "transaction_failed", Details: "the change was rolled back, retry the request"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal_error", Details: "internal error"}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapError(err)
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	writeJSON(w, status, body)
}
