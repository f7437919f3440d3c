package api

import (
	"encoding/json"
	"net/http"
)

// apiError is the body of every non-2xx JSON answer, e.g.
// {"error":"reviews unavailable","code":"backend_error"}.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, apiError{Error: message, Code: code})
}

// writeJSON encodes v as the response body. Encoding errors are ignored; the
// status line has already been sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
