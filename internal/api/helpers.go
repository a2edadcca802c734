package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// writeJSON encodes v with the status code and the CORS headers the
// dashboard needs.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Default().Error("failed to encode response", "error", err)
		}
	}
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeInternalError logs the real error and returns a generic message so
// upstream failures never leak into responses.
func writeInternalError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	logger.Error(op, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// pathID extracts the id segment from /api/<resource>/{id}[/suffix...],
// returning the id and any trailing suffix.
func pathID(path, prefix string) (id, suffix string) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		suffix = parts[1]
	}
	return id, suffix
}

// preflight answers CORS preflight requests. Returns true when the request
// was a preflight and has been handled.
func preflight(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusOK)
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
