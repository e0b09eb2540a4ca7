package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/you/subway/logging"
	"github.com/you/subway/metrics"
	"github.com/you/subway/models"
)

// LineService manages lines and the sections that make them up
type LineService struct {
	lines    LineRepository
	stations StationRepository
	logger   *zap.Logger
}

// NewLineService creates a new LineService
func NewLineService(lines LineRepository, stations StationRepository, logger *zap.Logger) *LineService {
	return &LineService{
		lines:    lines,
		stations: stations,
		logger:   logging.OrNop(logger).With(zap.String("service", "lines")),
	}
}

// CreateLine stores a new line whose first section runs from the request's
// up station to its down station.
func (s *LineService) CreateLine(ctx context.Context, req models.LineRequest) (*models.Line, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Color = strings.TrimSpace(req.Color)
	if err := req.Validate(); err != nil {
		return nil, invalidRequest(err)
	}

	first, err := s.resolveSection(ctx, req.UpStationID, req.DownStationID, req.Distance)
	if err != nil {
		return nil, err
	}

	line, err := s.lines.CreateLine(ctx, req.Name, req.Color, first)
	if err != nil {
		return nil, err
	}

	s.logger.Info("line created",
		zap.Int64("line_id", line.ID),
		zap.String("name", line.Name),
		zap.Int64("up_station_id", first.UpStation.ID),
		zap.Int64("down_station_id", first.DownStation.ID),
		zap.Int("distance", first.Distance),
	)
	return line, nil
}

// GetLines returns all lines
func (s *LineService) GetLines(ctx context.Context) ([]models.Line, error) {
	return s.lines.GetAllLines(ctx)
}

// GetLine returns a single line
func (s *LineService) GetLine(ctx context.Context, id int64) (*models.Line, error) {
	return s.lines.GetLine(ctx, id)
}

// ModifyLine changes a line's name and/or color
func (s *LineService) ModifyLine(ctx context.Context, id int64, req models.ModifyLineRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Color = strings.TrimSpace(req.Color)
	if err := req.Validate(); err != nil {
		return invalidRequest(err)
	}
	if err := s.lines.UpdateLine(ctx, id, req.Name, req.Color); err != nil {
		return err
	}

	s.logger.Info("line modified", zap.Int64("line_id", id))
	return nil
}

// DeleteLine removes a line and all of its sections
func (s *LineService) DeleteLine(ctx context.Context, id int64) error {
	if err := s.lines.DeleteLine(ctx, id); err != nil {
		return err
	}

	s.logger.Info("line deleted", zap.Int64("line_id", id))
	return nil
}

// AddSection inserts a section into the line, extending a terminus or
// splitting the section the new station falls inside.
func (s *LineService) AddSection(ctx context.Context, lineID int64, req models.SectionRequest) (line *models.Line, err error) {
	defer func() { metrics.RecordSectionMutation("add", outcome(err)) }()

	if err := req.Validate(); err != nil {
		return nil, invalidRequest(err)
	}
	sec, err := s.resolveSection(ctx, req.UpStationID, req.DownStationID, req.Distance)
	if err != nil {
		return nil, err
	}

	line, err = s.lines.UpdateSections(ctx, lineID, func(chain *models.Sections) error {
		return chain.Add(sec)
	})
	if err != nil {
		s.logger.Debug("section rejected",
			zap.Int64("line_id", lineID),
			zap.Int64("up_station_id", req.UpStationID),
			zap.Int64("down_station_id", req.DownStationID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("section added",
		zap.Int64("line_id", lineID),
		zap.Int64("up_station_id", sec.UpStation.ID),
		zap.Int64("down_station_id", sec.DownStation.ID),
		zap.Int("distance", sec.Distance),
		zap.Int("sections", line.Sections.Len()),
	)
	return line, nil
}

// RemoveSection takes a station off the line, merging its neighbouring
// sections when it sits between two others.
func (s *LineService) RemoveSection(ctx context.Context, lineID, stationID int64) (err error) {
	defer func() { metrics.RecordSectionMutation("remove", outcome(err)) }()

	if stationID <= 0 {
		return invalidRequest(errors.New("stationId must be positive"))
	}

	// The chain compares by id only, so an unknown station id simply is not
	// on the line.
	target := models.Station{ID: stationID}
	line, err := s.lines.UpdateSections(ctx, lineID, func(chain *models.Sections) error {
		return chain.Remove(target)
	})
	if err != nil {
		s.logger.Debug("section removal rejected",
			zap.Int64("line_id", lineID),
			zap.Int64("station_id", stationID),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("station removed from line",
		zap.Int64("line_id", lineID),
		zap.Int64("station_id", stationID),
		zap.Int("sections", line.Sections.Len()),
	)
	return nil
}

// resolveSection looks up both stations and builds the section between them.
func (s *LineService) resolveSection(ctx context.Context, upID, downID int64, distance int) (models.Section, error) {
	if upID == downID {
		return models.Section{}, fmt.Errorf("%w: station %d", models.ErrInvalidSection, upID)
	}

	up, err := s.stations.GetStation(ctx, upID)
	if err != nil {
		return models.Section{}, fmt.Errorf("up station: %w", err)
	}
	down, err := s.stations.GetStation(ctx, downID)
	if err != nil {
		return models.Section{}, fmt.Errorf("down station: %w", err)
	}

	return models.NewSection(*up, *down, distance)
}
