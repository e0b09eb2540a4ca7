package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/you/subway/models"
)

// pgForeignKeyViolation is SQLSTATE foreign_key_violation.
const pgForeignKeyViolation = "23503"

//go:embed schema_postgres.sql
var postgresSchema string

// PostgresSchema returns the embedded PostgreSQL schema.
func PostgresSchema() string {
	return postgresSchema
}

// PostgresDB wraps a pgx connection pool
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB connects to databaseURL and verifies the connection
func NewPostgresDB(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the pool
func (p *PostgresDB) Close() {
	p.pool.Close()
}

// Ping checks database connectivity
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// EnsureSchema creates tables if they don't exist.
func (p *PostgresDB) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// pgQueryer is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgQueryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStationRepository handles database operations for stations using Postgres
type PostgresStationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresStationRepository creates a new PostgresStationRepository
func NewPostgresStationRepository(db *PostgresDB) *PostgresStationRepository {
	return &PostgresStationRepository{pool: db.pool}
}

func (r *PostgresStationRepository) CreateStation(ctx context.Context, name string) (*models.Station, error) {
	st := models.Station{Name: name}
	err := r.pool.QueryRow(ctx, "INSERT INTO stations (name) VALUES ($1) RETURNING id", name).Scan(&st.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert station: %w", err)
	}
	return &st, nil
}

func (r *PostgresStationRepository) GetAllStations(ctx context.Context) ([]models.Station, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, name FROM stations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	stations := []models.Station{}
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, fmt.Errorf("failed to scan station row: %w", err)
		}
		stations = append(stations, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating station rows: %w", err)
	}

	return stations, nil
}

func (r *PostgresStationRepository) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	var st models.Station
	err := r.pool.QueryRow(ctx, "SELECT id, name FROM stations WHERE id = $1", id).Scan(&st.ID, &st.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, stationNotFound(id)
		}
		return nil, fmt.Errorf("failed to query station: %w", err)
	}
	return &st, nil
}

func (r *PostgresStationRepository) DeleteStation(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the station row so no section can start referencing it before the delete.
	var found int64
	err = tx.QueryRow(ctx, "SELECT id FROM stations WHERE id = $1 FOR UPDATE", id).Scan(&found)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stationNotFound(id)
		}
		return fmt.Errorf("failed to lock station: %w", err)
	}

	var uses int
	err = tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM sections WHERE up_station_id = $1 OR down_station_id = $1",
		id,
	).Scan(&uses)
	if err != nil {
		return fmt.Errorf("failed to count station uses: %w", err)
	}
	if uses > 0 {
		return fmt.Errorf("station %d: %w", id, models.ErrStationInUse)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM stations WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete station: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PostgresLineRepository handles database operations for lines and their
// sections using Postgres
type PostgresLineRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresLineRepository creates a new PostgresLineRepository
func NewPostgresLineRepository(db *PostgresDB) *PostgresLineRepository {
	return &PostgresLineRepository{pool: db.pool}
}

func (r *PostgresLineRepository) CreateLine(ctx context.Context, name, color string, first models.Section) (*models.Line, error) {
	chain, err := models.NewSections(first)
	if err != nil {
		return nil, err
	}
	line := models.Line{Name: name, Color: color, Sections: chain}
	if err := line.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, "INSERT INTO lines (name, color) VALUES ($1, $2) RETURNING id", name, color).Scan(&line.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert line: %w", err)
	}

	if err := writePostgresSections(ctx, tx, line.ID, chain); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &line, nil
}

func (r *PostgresLineRepository) GetAllLines(ctx context.Context) ([]models.Line, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, name, color FROM lines ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	lines := []models.Line{}
	for rows.Next() {
		var l models.Line
		if err := rows.Scan(&l.ID, &l.Name, &l.Color); err != nil {
			return nil, fmt.Errorf("failed to scan line row: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating line rows: %w", err)
	}

	sectionRows, err := r.pool.Query(ctx, sectionColumns+" ORDER BY s.line_id, s.position")
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer sectionRows.Close()

	byLine, err := scanSections(sectionRows)
	if err != nil {
		return nil, err
	}

	for i := range lines {
		chain, err := buildChain(lines[i].ID, byLine[lines[i].ID])
		if err != nil {
			return nil, err
		}
		lines[i].Sections = chain
	}

	return lines, nil
}

func (r *PostgresLineRepository) GetLine(ctx context.Context, id int64) (*models.Line, error) {
	return loadPostgresLine(ctx, r.pool, id, false)
}

func (r *PostgresLineRepository) UpdateLine(ctx context.Context, id int64, name, color string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lines
		SET name = COALESCE(NULLIF($1, ''), name),
		    color = COALESCE(NULLIF($2, ''), color),
		    updated_at = NOW()
		WHERE id = $3
	`, name, color, id)
	if err != nil {
		return fmt.Errorf("failed to update line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return lineNotFound(id)
	}
	return nil
}

func (r *PostgresLineRepository) DeleteLine(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM lines WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return lineNotFound(id)
	}
	return nil
}

// UpdateSections loads the line's chain under a row lock, passes it to fn and
// stores the result in the same transaction. When fn returns an error
// nothing is written and that error is returned unchanged.
func (r *PostgresLineRepository) UpdateSections(ctx context.Context, id int64, fn func(*models.Sections) error) (*models.Line, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	line, err := loadPostgresLine(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}

	if err := fn(line.Sections); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM sections WHERE line_id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to clear sections: %w", err)
	}
	if err := writePostgresSections(ctx, tx, id, line.Sections); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "UPDATE lines SET updated_at = NOW() WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to touch line: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return line, nil
}

// loadPostgresLine reads a line and its chain. forUpdate locks the line row
// until the surrounding transaction ends.
func loadPostgresLine(ctx context.Context, q pgQueryer, id int64, forUpdate bool) (*models.Line, error) {
	query := "SELECT id, name, color FROM lines WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	var line models.Line
	if err := q.QueryRow(ctx, query, id).Scan(&line.ID, &line.Name, &line.Color); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lineNotFound(id)
		}
		return nil, fmt.Errorf("failed to query line: %w", err)
	}

	rows, err := q.Query(ctx, sectionColumns+" WHERE s.line_id = $1 ORDER BY s.position", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	byLine, err := scanSections(rows)
	if err != nil {
		return nil, err
	}

	line.Sections, err = buildChain(id, byLine[id])
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func writePostgresSections(ctx context.Context, tx pgx.Tx, lineID int64, chain *models.Sections) error {
	ordered := chain.Ordered()
	rows := make([][]any, len(ordered))
	for i, sec := range ordered {
		rows[i] = []any{lineID, sec.UpStation.ID, sec.DownStation.ID, sec.Distance, i}
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"sections"},
		[]string{"line_id", "up_station_id", "down_station_id", "distance", "position"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("section references a missing station: %w", models.ErrNotFound)
		}
		return fmt.Errorf("failed to insert sections: %w", err)
	}
	return nil
}
