package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// normalizeCode upper-cases a user-typed session code.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
