package daemonhttp

import (
	"encoding/json"
	"net/http"

	"github.com/shaneholloman/summarize/internal/apperrors"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, apperrors.Code(err), map[string]string{"error": apperrors.Message(err)})
}
