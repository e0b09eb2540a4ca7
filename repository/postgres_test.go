package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/subway/models"
)

func setupPostgres(t *testing.T) (*PostgresStationRepository, *PostgresLineRepository) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set - skipping Postgres test")
	}

	ctx := context.Background()
	db, err := NewPostgresDB(ctx, databaseURL)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	return NewPostgresStationRepository(db), NewPostgresLineRepository(db)
}

func TestPostgresLineLifecycle(t *testing.T) {
	stations, lines := setupPostgres(t)
	ctx := context.Background()

	var st []models.Station
	for _, name := range []string{"당고개역", "이수역", "사당역"} {
		s, err := stations.CreateStation(ctx, name)
		require.NoError(t, err)
		st = append(st, *s)
	}

	line, err := lines.CreateLine(ctx, "4호선", "blue", models.Section{UpStation: st[0], DownStation: st[1], Distance: 10})
	require.NoError(t, err)
	t.Cleanup(func() {
		lines.DeleteLine(ctx, line.ID)
		for _, s := range st {
			stations.DeleteStation(ctx, s.ID)
		}
	})

	updated, err := lines.UpdateSections(ctx, line.ID, func(s *models.Sections) error {
		return s.Add(models.Section{UpStation: st[0], DownStation: st[2], Distance: 3})
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Station{st[0], st[2], st[1]}, updated.Stations())

	got, err := lines.GetLine(ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Sections.Ordered(), got.Sections.Ordered())

	assert.ErrorIs(t, stations.DeleteStation(ctx, st[2].ID), models.ErrStationInUse)

	_, err = lines.UpdateSections(ctx, line.ID, func(s *models.Sections) error {
		return s.Add(models.Section{UpStation: st[0], DownStation: st[1], Distance: 1})
	})
	assert.ErrorIs(t, err, models.ErrDuplicateSection)

	require.NoError(t, lines.UpdateLine(ctx, line.ID, "4호선 급행", ""))
	got, err = lines.GetLine(ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, "4호선 급행", got.Name)
	assert.Equal(t, "blue", got.Color)

	_, err = lines.GetLine(ctx, -1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
