package repositories

import (
	"database/sql"
	"delivery-trajectory-service/internal/domain"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Initialize the SQLite database schema.
func InitSchema(db *sql.DB) error {
	return initSchema(db, sqliteSchema)
}

// Initialize the Postgres database schema.
func InitPostgresSchema(db *sql.DB) error {
	return initSchema(db, postgresSchema)
}

var sqliteSchema = []string{
	`
	CREATE TABLE IF NOT EXISTS position_reports (
		report_id TEXT NOT NULL,
		subject_key TEXT NOT NULL,
		lon REAL NOT NULL,
		lat REAL NOT NULL,
		recorded_at_ms INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (subject_key, report_id)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS route_cache (
        route_key TEXT PRIMARY KEY,
        path_json TEXT NOT NULL,
        point_count INTEGER NOT NULL
    );
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_position_reports_subject_time
    ON position_reports(subject_key, recorded_at_ms);
	`,
}

var postgresSchema = []string{
	`
	CREATE TABLE IF NOT EXISTS position_reports (
		report_id TEXT NOT NULL,
		subject_key TEXT NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (subject_key, report_id)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS route_cache (
        route_key TEXT PRIMARY KEY,
        path_json TEXT NOT NULL,
        point_count INTEGER NOT NULL
    );
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_position_reports_subject_time
    ON position_reports(subject_key, recorded_at);
	`,
}

func initSchema(db *sql.DB, statements []string) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type ReportSeed struct {
	ReportID   string    `json:"report_id"`
	SubjectKey string    `json:"subject_key"`
	Location   []float64 `json:"location"` // [lon, lat]
	Timestamp  time.Time `json:"timestamp"`
	Status     string    `json:"status"`
}

// LoadSeedReports reads and validates a JSON seed file of position reports.
func LoadSeedReports(jsonPath string) ([]domain.PositionReport, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed reports: read %q: %w", jsonPath, err)
	}

	var data []ReportSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("seed reports: parse json: %w", err)
	}

	rows := make([]domain.PositionReport, 0, len(data))
	for i, item := range data {
		subject := strings.TrimSpace(item.SubjectKey)
		if subject == "" {
			return nil, fmt.Errorf("seed reports: item at index %d: subject_key cannot be empty", i+1)
		}
		if len(item.Location) != 2 {
			return nil, fmt.Errorf("seed reports: item at index %d: location must be [lon, lat]", i+1)
		}

		c := domain.Coordinates{Lon: item.Location[0], Lat: item.Location[1]}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("seed reports: item at index %d: %w", i+1, err)
		}

		r := domain.PositionReport{
			ID:         strings.TrimSpace(item.ReportID),
			SubjectKey: subject,
			Coordinate: c,
			Timestamp:  item.Timestamp,
			Status:     domain.ReportStatus(item.Status),
		}
		r.ID = domain.ReportKey(r)
		rows = append(rows, r)
	}

	return rows, nil
}
