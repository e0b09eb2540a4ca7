package handlers

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/you/subway/logging"
	"github.com/you/subway/models"
)

// StationService defines the station operations the handler needs
type StationService interface {
	CreateStation(ctx context.Context, req models.StationRequest) (*models.Station, error)
	GetStations(ctx context.Context) ([]models.Station, error)
	DeleteStation(ctx context.Context, id int64) error
}

// StationHandler handles HTTP requests for stations
type StationHandler struct {
	svc    StationService
	logger *zap.Logger
}

// NewStationHandler creates a new handler with the given service
func NewStationHandler(svc StationService, logger *zap.Logger) *StationHandler {
	return &StationHandler{
		svc:    svc,
		logger: logging.OrNop(logger).With(zap.String("handler", "stations")),
	}
}

// GetStationsResponse is the JSON response structure for GET /stations
type GetStationsResponse struct {
	Stations []models.Station `json:"stations"`
	Count    int              `json:"count"`
}

// CreateStation handles POST /stations
func (h *StationHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var req models.StationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body", map[string]interface{}{"internal": err.Error()})
		return
	}

	st, err := h.svc.CreateStation(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/stations/%d", st.ID))
	writeJSON(w, http.StatusCreated, st)
}

// GetStations handles GET /stations
func (h *StationHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.svc.GetStations(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, GetStationsResponse{
		Stations: stations,
		Count:    len(stations),
	})
}

// DeleteStation handles DELETE /stations/{id}
func (h *StationHandler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "id parameter must be a positive integer", nil)
		return
	}

	if err := h.svc.DeleteStation(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
