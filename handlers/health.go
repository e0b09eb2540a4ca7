package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks that the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the JSON response for GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Health handles GET /health with a database connectivity test
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:    "error",
				Database:  "disconnected",
				Timestamp: time.Now().UTC(),
				Error:     err.Error(),
			})
			return
		}

		writeJSON(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Database:  "connected",
			Timestamp: time.Now().UTC(),
		})
	}
}
