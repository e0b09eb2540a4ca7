package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/you/subway/models"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteSchema is applied by EnsureSchema.
//
//go:embed schema.sql
var sqliteSchema string

// SQLiteSchema returns the embedded SQLite schema.
func SQLiteSchema() string {
	return sqliteSchema
}

// SQLiteDB wraps a SQL database connection for SQLite with write serialization
type SQLiteDB struct {
	db      *sql.DB
	writeMu sync.Mutex // SQLite allows one writer; every write path takes this
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps pragmas and writes on one handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *SQLiteDB) GetDB() *sql.DB {
	return s.db
}

// Ping checks database connectivity
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates tables if they don't exist.
func (s *SQLiteDB) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SQLiteStationRepository handles database operations for stations using SQLite
type SQLiteStationRepository struct {
	store *SQLiteDB
}

// NewSQLiteStationRepository creates a new SQLiteStationRepository
func NewSQLiteStationRepository(store *SQLiteDB) *SQLiteStationRepository {
	return &SQLiteStationRepository{store: store}
}

// CreateStation inserts a station and returns it with its new id
func (r *SQLiteStationRepository) CreateStation(ctx context.Context, name string) (*models.Station, error) {
	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()

	res, err := r.store.db.ExecContext(ctx, "INSERT INTO stations (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("failed to insert station: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read station id: %w", err)
	}

	return &models.Station{ID: id, Name: name}, nil
}

// GetAllStations returns every station ordered by id
func (r *SQLiteStationRepository) GetAllStations(ctx context.Context) ([]models.Station, error) {
	rows, err := r.store.db.QueryContext(ctx, "SELECT id, name FROM stations ORDER BY id")
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

// GetStation returns a single station by id
func (r *SQLiteStationRepository) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	var st models.Station
	err := r.store.db.QueryRowContext(ctx, "SELECT id, name FROM stations WHERE id = ?", id).Scan(&st.ID, &st.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stationNotFound(id)
		}
		return nil, fmt.Errorf("failed to query station: %w", err)
	}
	return &st, nil
}

// DeleteStation removes a station that no section references
func (r *SQLiteStationRepository) DeleteStation(ctx context.Context, id int64) error {
	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var uses int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sections WHERE up_station_id = ? OR down_station_id = ?",
		id, id,
	).Scan(&uses)
	if err != nil {
		return fmt.Errorf("failed to count station uses: %w", err)
	}
	if uses > 0 {
		return fmt.Errorf("station %d: %w", id, models.ErrStationInUse)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM stations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete station: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		return stationNotFound(id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SQLiteLineRepository handles database operations for lines and their
// sections using SQLite
type SQLiteLineRepository struct {
	store *SQLiteDB
}

// NewSQLiteLineRepository creates a new SQLiteLineRepository
func NewSQLiteLineRepository(store *SQLiteDB) *SQLiteLineRepository {
	return &SQLiteLineRepository{store: store}
}

// sqlQueryer is satisfied by both *sql.DB and *sql.Tx.
type sqlQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateLine inserts a line together with its first section
func (r *SQLiteLineRepository) CreateLine(ctx context.Context, name, color string, first models.Section) (*models.Line, error) {
	chain, err := models.NewSections(first)
	if err != nil {
		return nil, err
	}
	line := &models.Line{Name: name, Color: color, Sections: chain}
	if err := line.Validate(); err != nil {
		return nil, err
	}

	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO lines (name, color) VALUES (?, ?)", name, color)
	if err != nil {
		return nil, fmt.Errorf("failed to insert line: %w", err)
	}
	line.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read line id: %w", err)
	}

	if err := writeSQLiteSections(ctx, tx, line.ID, chain); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return line, nil
}

// GetAllLines returns every line with its sections
func (r *SQLiteLineRepository) GetAllLines(ctx context.Context) ([]models.Line, error) {
	rows, err := r.store.db.QueryContext(ctx, "SELECT id, name, color FROM lines ORDER BY id")
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
	rows.Close()

	sectionRows, err := r.store.db.QueryContext(ctx, sectionColumns+" ORDER BY s.line_id, s.position")
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

// GetLine returns a single line with its sections
func (r *SQLiteLineRepository) GetLine(ctx context.Context, id int64) (*models.Line, error) {
	return loadSQLiteLine(ctx, r.store.db, id)
}

// UpdateLine changes a line's name and color. Empty values keep the current one.
func (r *SQLiteLineRepository) UpdateLine(ctx context.Context, id int64, name, color string) error {
	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()

	res, err := r.store.db.ExecContext(ctx, `
		UPDATE lines
		SET name = COALESCE(NULLIF(?, ''), name),
		    color = COALESCE(NULLIF(?, ''), color),
		    updated_at = datetime('now')
		WHERE id = ?
	`, name, color, id)
	if err != nil {
		return fmt.Errorf("failed to update line: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		return lineNotFound(id)
	}
	return nil
}

// DeleteLine removes a line and its sections
func (r *SQLiteLineRepository) DeleteLine(ctx context.Context, id int64) error {
	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sections WHERE line_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete sections: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM lines WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		return lineNotFound(id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateSections loads the line's chain, passes it to fn and stores the
// result in the same transaction. When fn returns an error nothing is
// written and that error is returned unchanged.
func (r *SQLiteLineRepository) UpdateSections(ctx context.Context, id int64, fn func(*models.Sections) error) (*models.Line, error) {
	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	line, err := loadSQLiteLine(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(line.Sections); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM sections WHERE line_id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to clear sections: %w", err)
	}
	if err := writeSQLiteSections(ctx, tx, id, line.Sections); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE lines SET updated_at = datetime('now') WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to touch line: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return line, nil
}

func loadSQLiteLine(ctx context.Context, q sqlQueryer, id int64) (*models.Line, error) {
	var line models.Line
	err := q.QueryRowContext(ctx, "SELECT id, name, color FROM lines WHERE id = ?", id).
		Scan(&line.ID, &line.Name, &line.Color)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lineNotFound(id)
		}
		return nil, fmt.Errorf("failed to query line: %w", err)
	}

	rows, err := q.QueryContext(ctx, sectionColumns+" WHERE s.line_id = ? ORDER BY s.position", id)
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

func writeSQLiteSections(ctx context.Context, tx *sql.Tx, lineID int64, chain *models.Sections) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sections (line_id, up_station_id, down_station_id, distance, position)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare section insert: %w", err)
	}
	defer stmt.Close()

	for i, sec := range chain.Ordered() {
		if _, err := stmt.ExecContext(ctx, lineID, sec.UpStation.ID, sec.DownStation.ID, sec.Distance, i); err != nil {
			if isSQLiteForeignKeyViolation(err) {
				return fmt.Errorf("section %d references a missing station: %w", i, models.ErrNotFound)
			}
			return fmt.Errorf("failed to insert section %d: %w", i, err)
		}
	}
	return nil
}

// isSQLiteForeignKeyViolation reports whether err is a failed FOREIGN KEY
// constraint, with or without extended result codes enabled.
func isSQLiteForeignKeyViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqliteErr.Error(), "FOREIGN KEY")
	}
	return false
}
