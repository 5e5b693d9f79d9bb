// Package handlers implements the REST endpoints under /api/v1.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const maxRequestBody = 1 << 20

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeError writes {"error": message}.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeList writes the {"data": [...], "meta": {"total": n}} envelope.
func writeList[T any](w http.ResponseWriter, items []T) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]int{"total": len(items)},
	})
}

// parseLimit returns the positive "limit" query value, or 0 when absent or invalid.
func parseLimit(r *http.Request) int {
	lim, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || lim < 0 {
		return 0
	}
	return lim
}
