// Package api exposes the consulting workflow session over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vesyn/consult/internal/models"
)

// fallbackErrorBody is marshaled once at startup so an encoding failure at
// request time still produces a well-formed envelope.
var fallbackErrorBody []byte

func init() {
	body, err := json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("marshal of fallback error body failed at startup: %v", err))
	}
	fallbackErrorBody = body
}

// writeJSONResponse marshals the envelope before touching the writer so the
// status code can still be swapped for 500 when encoding fails.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	body, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal response", "error", err)
		body = fallbackErrorBody
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Error("Server.writeJSONResponse: failed to write response", "error", err)
	}
}
