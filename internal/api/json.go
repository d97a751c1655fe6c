package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"dispatchd/internal/dispatch"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps dispatch errors onto status codes: business-rule
// violations surface synchronously as 4xx, everything else is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrUnknownOrder), errors.Is(err, dispatch.ErrUnknownVehicle):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dispatch.ErrVehicleExists), errors.Is(err, dispatch.ErrOrderExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
