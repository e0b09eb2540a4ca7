package repository

import (
	"errors"
	"fmt"

	"github.com/you/subway/models"
)

// sectionColumns selects one section row with both stations resolved.
// Callers append their own WHERE clause.
const sectionColumns = `
		SELECT
			s.line_id,
			u.id,
			u.name,
			d.id,
			d.name,
			s.distance
		FROM sections s
		JOIN stations u ON u.id = s.up_station_id
		JOIN stations d ON d.id = s.down_station_id
`

// rowScanner is the subset of *sql.Rows and pgx.Rows used to read section rows.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanSections reads section rows and groups them by line id.
func scanSections(rows rowScanner) (map[int64][]models.Section, error) {
	byLine := make(map[int64][]models.Section)
	for rows.Next() {
		var lineID int64
		var sec models.Section
		err := rows.Scan(
			&lineID,
			&sec.UpStation.ID,
			&sec.UpStation.Name,
			&sec.DownStation.ID,
			&sec.DownStation.Name,
			&sec.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section row: %w", err)
		}
		byLine[lineID] = append(byLine[lineID], sec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating section rows: %w", err)
	}

	return byLine, nil
}

// buildChain turns stored rows back into a chain. Stored data that no longer
// forms a single path is reported rather than silently repaired.
func buildChain(lineID int64, items []models.Section) (*models.Sections, error) {
	chain, err := models.NewSections(items...)
	if err != nil {
		if !errors.Is(err, models.ErrInvalidChain) {
			// A bad stored row is corruption, not a rejected request.
			err = fmt.Errorf("%w: %v", models.ErrInvalidChain, err)
		}
		return nil, fmt.Errorf("line %d has corrupt sections: %w", lineID, err)
	}
	return chain, nil
}

func lineNotFound(id int64) error {
	return fmt.Errorf("line %d: %w", id, models.ErrNotFound)
}

func stationNotFound(id int64) error {
	return fmt.Errorf("station %d: %w", id, models.ErrNotFound)
}
