package server

import (
	"encoding/json"
	"net/http"

	"github.com/sadopc/courier/internal/apierr"
	"github.com/sadopc/courier/internal/logging"
)

// writeJSON serializes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends a {"error": msg} JSON response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes the request body into v.
func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeAPIErr maps err to a status code per spec.md §7's propagation
// policy and writes it as a JSON error body. Internal errors are
// scrubbed to a generic message before leaving the process — only the
// operational logger sees the real cause.
func writeAPIErr(w http.ResponseWriter, err error) {
	switch apierr.ClassOf(err) {
	case apierr.ClassNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case apierr.ClassValidation:
		writeError(w, http.StatusBadRequest, err.Error())
	case apierr.ClassAuthorization:
		writeError(w, http.StatusForbidden, err.Error())
	default:
		logging.Op().Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
