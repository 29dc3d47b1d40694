package web

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform result shape every endpoint answers with. Failures
// never surface internal detail; the error string is already user-facing.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func OK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func Fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
