package handlers

import (
	"net/http"

	"solbot-backend/pkg/httputil"
)

// RespondWithJSON writes a JSON response with the given status code and payload.
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	httputil.RespondJSON(w, statusCode, payload)
}

// RespondWithError writes a JSON error response with the given status code and message.
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	httputil.RespondError(w, statusCode, message)
}
