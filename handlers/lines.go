package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/you/subway/logging"
	"github.com/you/subway/models"
)

// LineService defines the line and section operations the handler needs
type LineService interface {
	CreateLine(ctx context.Context, req models.LineRequest) (*models.Line, error)
	GetLines(ctx context.Context) ([]models.Line, error)
	GetLine(ctx context.Context, id int64) (*models.Line, error)
	ModifyLine(ctx context.Context, id int64, req models.ModifyLineRequest) error
	DeleteLine(ctx context.Context, id int64) error
	AddSection(ctx context.Context, lineID int64, req models.SectionRequest) (*models.Line, error)
	RemoveSection(ctx context.Context, lineID, stationID int64) error
}

// LineHandler handles HTTP requests for lines and their sections
type LineHandler struct {
	svc    LineService
	logger *zap.Logger
}

// NewLineHandler creates a new handler with the given service
func NewLineHandler(svc LineService, logger *zap.Logger) *LineHandler {
	return &LineHandler{
		svc:    svc,
		logger: logging.OrNop(logger).With(zap.String("handler", "lines")),
	}
}

// GetLinesResponse is the JSON response structure for GET /lines
type GetLinesResponse struct {
	Lines []models.LineResponse `json:"lines"`
	Count int                   `json:"count"`
}

// CreateLine handles POST /lines
func (h *LineHandler) CreateLine(w http.ResponseWriter, r *http.Request) {
	var req models.LineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body", map[string]interface{}{"internal": err.Error()})
		return
	}

	line, err := h.svc.CreateLine(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/lines/%d", line.ID))
	writeJSON(w, http.StatusCreated, line.ToResponse())
}

// GetLines handles GET /lines
func (h *LineHandler) GetLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.GetLines(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := GetLinesResponse{Lines: make([]models.LineResponse, 0, len(lines)), Count: len(lines)}
	for i := range lines {
		resp.Lines = append(resp.Lines, lines[i].ToResponse())
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetLine handles GET /lines/{id}
// Returns the line with its stations ordered from up terminus to down terminus
func (h *LineHandler) GetLine(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "id parameter must be a positive integer", nil)
		return
	}

	line, err := h.svc.GetLine(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, line.ToResponse())
}

// ModifyLine handles PUT /lines/{id}
func (h *LineHandler) ModifyLine(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "id parameter must be a positive integer", nil)
		return
	}

	var req models.ModifyLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body", map[string]interface{}{"internal": err.Error()})
		return
	}

	if err := h.svc.ModifyLine(r.Context(), id, req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeleteLine handles DELETE /lines/{id}
func (h *LineHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "id parameter must be a positive integer", nil)
		return
	}

	if err := h.svc.DeleteLine(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddSection handles POST /lines/{id}/sections
func (h *LineHandler) AddSection(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "id parameter must be a positive integer", nil)
		return
	}

	var req models.SectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body", map[string]interface{}{"internal": err.Error()})
		return
	}

	line, err := h.svc.AddSection(r.Context(), id, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, line.ToResponse())
}

// RemoveSection handles DELETE /lines/{id}/sections?stationId={stationId}
func (h *LineHandler) RemoveSection(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "id parameter must be a positive integer", nil)
		return
	}

	raw := r.URL.Query().Get("stationId")
	stationID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || stationID <= 0 {
		writeBadRequest(w, "stationId query parameter must be a positive integer", map[string]interface{}{
			"stationId": raw,
		})
		return
	}

	if err := h.svc.RemoveSection(r.Context(), id, stationID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
