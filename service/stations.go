package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/you/subway/logging"
	"github.com/you/subway/models"
)

// StationService manages stations
type StationService struct {
	repo   StationRepository
	logger *zap.Logger
}

// NewStationService creates a new StationService
func NewStationService(repo StationRepository, logger *zap.Logger) *StationService {
	return &StationService{
		repo:   repo,
		logger: logging.OrNop(logger).With(zap.String("service", "stations")),
	}
}

// CreateStation stores a new station
func (s *StationService) CreateStation(ctx context.Context, req models.StationRequest) (*models.Station, error) {
	candidate := models.Station{Name: strings.TrimSpace(req.Name)}
	if err := candidate.Validate(); err != nil {
		return nil, invalidRequest(err)
	}

	st, err := s.repo.CreateStation(ctx, candidate.Name)
	if err != nil {
		return nil, err
	}

	s.logger.Info("station created", zap.Int64("station_id", st.ID), zap.String("name", st.Name))
	return st, nil
}

// GetStations returns all stations
func (s *StationService) GetStations(ctx context.Context) ([]models.Station, error) {
	return s.repo.GetAllStations(ctx)
}

// DeleteStation removes a station that is not on any line
func (s *StationService) DeleteStation(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalidRequest(errors.New("station id must be positive"))
	}
	if err := s.repo.DeleteStation(ctx, id); err != nil {
		return err
	}

	s.logger.Info("station deleted", zap.Int64("station_id", id))
	return nil
}
