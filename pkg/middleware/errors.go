package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError renders the same envelope as pkg/http.WriteError. Kept local
// so middleware does not depend on the handler helpers.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
		"code":    code,
	})
}
