package server

import (
	"encoding/json"
	"net/http"

	"github.com/lessonmarket/backend/internal/apperrors"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError сопоставляет вид доменной ошибки с HTTP-статусом.
// Недоменные ошибки отдаются как 500 без деталей.
func writeError(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindAuthorization:
		status = http.StatusForbidden
	case apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindPolicy:
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: string(kind)})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
