package models

import (
	"errors"
	"fmt"
)

// Line is a named subway line and its chain of sections.
type Line struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	Sections *Sections `json:"sections"`
}

// Stations returns the line's stations from up terminus to down terminus.
func (l *Line) Stations() []Station {
	if l.Sections == nil {
		return []Station{}
	}
	return l.Sections.OrderedStations()
}

// Validate checks that the line has the required fields and a valid chain
func (l *Line) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("%w: line name is required", ErrInvalidRequest)
	}
	if l.Color == "" {
		return fmt.Errorf("%w: line color is required", ErrInvalidRequest)
	}
	if l.Sections == nil {
		return ErrInvalidChain
	}
	return l.Sections.Validate()
}

// LineResponse is the JSON shape of a line returned by the API
type LineResponse struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	Distance int       `json:"distance"`
	Stations []Station `json:"stations"`
	Sections []Section `json:"sections"`
}

// ToResponse projects the line into its API shape with stations in path order.
func (l *Line) ToResponse() LineResponse {
	resp := LineResponse{
		ID:       l.ID,
		Name:     l.Name,
		Color:    l.Color,
		Stations: l.Stations(),
		Sections: []Section{},
	}
	if l.Sections != nil {
		resp.Distance = l.Sections.TotalDistance()
		resp.Sections = l.Sections.Ordered()
	}
	return resp
}

// LineRequest is the body of POST /lines.
type LineRequest struct {
	Name          string `json:"name"`
	Color         string `json:"color"`
	UpStationID   int64  `json:"upStationId"`
	DownStationID int64  `json:"downStationId"`
	Distance      int    `json:"distance"`
}

// Validate checks the request fields that do not need storage
func (r LineRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Color == "" {
		return errors.New("color is required")
	}
	if r.UpStationID == 0 || r.DownStationID == 0 {
		return errors.New("upStationId and downStationId are required")
	}
	return checkDistanceRange(r.Distance)
}

// ModifyLineRequest is the body of PUT /lines/{id}.
type ModifyLineRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Validate checks the request fields
func (r ModifyLineRequest) Validate() error {
	if r.Name == "" && r.Color == "" {
		return errors.New("name or color is required")
	}
	return nil
}

// SectionRequest is the body of POST /lines/{id}/sections.
type SectionRequest struct {
	UpStationID   int64 `json:"upStationId"`
	DownStationID int64 `json:"downStationId"`
	Distance      int   `json:"distance"`
}

// Validate checks the request fields that do not need storage
func (r SectionRequest) Validate() error {
	if r.UpStationID == 0 || r.DownStationID == 0 {
		return errors.New("upStationId and downStationId are required")
	}
	return checkDistanceRange(r.Distance)
}

// checkDistanceRange rejects distances the distance column cannot store.
// Non-positive values are left to Section.Validate.
func checkDistanceRange(distance int) error {
	if distance > MaxDistance {
		return fmt.Errorf("%w: %d exceeds the maximum of %d", ErrInvalidDistance, distance, MaxDistance)
	}
	return nil
}

// StationRequest is the body of POST /stations.
type StationRequest struct {
	Name string `json:"name"`
}
