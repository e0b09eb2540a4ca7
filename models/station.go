package models

import "errors"

// Station is a stop on one or more lines. Stations are compared by ID.
type Station struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Is reports whether s and other are the same station.
func (s Station) Is(other Station) bool {
	return s.ID == other.ID
}

// Validate checks that the station has the required fields
func (s Station) Validate() error {
	if s.Name == "" {
		return errors.New("station name is required")
	}
	return nil
}
