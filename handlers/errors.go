package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/you/subway/models"
)

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// errorCodes maps each rejection to the code clients switch on. Order
// matters only in that the first match wins.
var errorCodes = []struct {
	err    error
	code   string
	status int
}{
	{models.ErrNotFound, "NOT_FOUND", http.StatusNotFound},
	{models.ErrStationInUse, "STATION_IN_USE", http.StatusConflict},
	{models.ErrInvalidRequest, "INVALID_REQUEST", http.StatusBadRequest},
	{models.ErrInvalidSection, "INVALID_SECTION", http.StatusBadRequest},
	{models.ErrDuplicateSection, "ALREADY_SECTION", http.StatusBadRequest},
	{models.ErrDisconnectedSection, "CAN_NOT_BE_ADDED_SECTION", http.StatusBadRequest},
	{models.ErrInvalidDistance, "INVALID_DISTANCE", http.StatusBadRequest},
	{models.ErrOnlySection, "ONLY_SECTION", http.StatusBadRequest},
	{models.ErrStationNotFound, "STATION_NOT_ON_LINE", http.StatusBadRequest},
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps err to a status and code. Unrecognised errors are logged
// and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			writeJSON(w, ec.status, ErrorResponse{Error: err.Error(), Code: ec.code})
			return
		}
	}

	logger.Error("request failed",
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: "internal server error",
		Code:  "INTERNAL",
	})
}

func writeBadRequest(w http.ResponseWriter, message string, details map[string]interface{}) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Code:    "INVALID_REQUEST",
		Details: details,
	})
}

// idParam parses a positive int64 chi URL parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
