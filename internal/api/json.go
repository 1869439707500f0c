package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Message string            `json:"message" validate:"required"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Message: msg}
}

// faultBody carries the underlying error text for server faults.
func faultBody(msg string, err error) errResponse {
	return errResponse{Message: msg, Error: err.Error()}
}
