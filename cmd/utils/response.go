package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/memeland/memeland-server/cmd/apperrors"
)

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a taxonomy error to its HTTP status code and writes the
// {code, description} body. Unclassified errors become a generic 500 and the
// underlying message is logged, never leaked to the client.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	description := "An error occurred"

	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
		description = err.Error()
	case apperrors.KindAuthentication:
		status = http.StatusUnauthorized
		description = err.Error()
	case apperrors.KindForbidden:
		status = http.StatusForbidden
		description = err.Error()
	case apperrors.KindNotFound, apperrors.KindNoContent:
		status = http.StatusNotFound
		description = err.Error()
	case apperrors.KindConflict:
		status = http.StatusConflict
		description = err.Error()
	default:
		log.Printf("internal error: %v", err)
	}

	WriteJSON(w, status, map[string]interface{}{
		"code":        status,
		"description": description,
	})
}
