// Package service holds the station, line and section use cases. It resolves
// ids through the repositories and runs chain edits inside the line
// repository's transaction.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/you/subway/models"
)

// StationRepository stores stations
type StationRepository interface {
	CreateStation(ctx context.Context, name string) (*models.Station, error)
	GetAllStations(ctx context.Context) ([]models.Station, error)
	GetStation(ctx context.Context, id int64) (*models.Station, error)
	DeleteStation(ctx context.Context, id int64) error
}

// LineRepository stores lines and their section chains.
//
// UpdateSections must run fn against the current chain and persist the
// result atomically, writing nothing when fn fails.
type LineRepository interface {
	CreateLine(ctx context.Context, name, color string, first models.Section) (*models.Line, error)
	GetAllLines(ctx context.Context) ([]models.Line, error)
	GetLine(ctx context.Context, id int64) (*models.Line, error)
	UpdateLine(ctx context.Context, id int64, name, color string) error
	DeleteLine(ctx context.Context, id int64) error
	UpdateSections(ctx context.Context, id int64, fn func(*models.Sections) error) (*models.Line, error)
}

// invalidRequest marks err as a malformed request. Section rejections keep
// their own kind.
func invalidRequest(err error) error {
	if models.IsSectionError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
}

// outcome is the metrics label for the result of a section mutation.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case models.IsSectionError(err), errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrInvalidRequest):
		return "rejected"
	default:
		return "error"
	}
}
