package controller

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"

	"github.com/janzheng/notion-api-worker/app/api/controller/types"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

func writeErrorWithMessage(w http.ResponseWriter, status int, msg, detail string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Message: detail})
}
