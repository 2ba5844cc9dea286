package repositories

import (
	"context"
	"database/sql"
	"delivery-trajectory-service/internal/domain"
	"delivery-trajectory-service/internal/platform/obs"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLite-backed implementation of the ReportRepository port.
// Timestamps are stored as unix milliseconds.
type SqliteReportRepository struct{ DB *sql.DB }

func NewSqliteReportRepository(db *sql.DB) *SqliteReportRepository {
	return &SqliteReportRepository{DB: db}
}

// Return every subject that has at least one stored report.
func (s *SqliteReportRepository) ListSubjects(ctx context.Context) ([]string, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite report repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT DISTINCT subject_key
	FROM position_reports
	ORDER BY subject_key;
	`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: query position_reports table: %w", err)
	}
	defer rows.Close()

	return scanSubjects(rows)
}

// Return the full trajectory for one subject, oldest first.
func (s *SqliteReportRepository) ListReports(ctx context.Context, subjectKey string) (_ []domain.PositionReport, err error) {
	defer obs.Time(ctx, "reports.sqlite.ListReports")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite report repository: DB is nil")
	}
	if strings.TrimSpace(subjectKey) == "" {
		return nil, errors.New("list reports: subject key must not be empty")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT
		report_id,
		subject_key,
		lon,
		lat,
		recorded_at_ms,
		status
	FROM position_reports
	WHERE subject_key = ?
	ORDER BY recorded_at_ms, report_id;
	`, subjectKey)
	if err != nil {
		return nil, fmt.Errorf("list reports: query position_reports table: %w", err)
	}
	defer rows.Close()

	reports := make([]domain.PositionReport, 0, 64)
	for rows.Next() {
		var r domain.PositionReport
		var ms int64
		var status string
		if err := rows.Scan(&r.ID, &r.SubjectKey, &r.Coordinate.Lon, &r.Coordinate.Lat, &ms, &status); err != nil {
			return nil, fmt.Errorf("list reports: scan row: %w", err)
		}
		r.Timestamp = time.UnixMilli(ms).UTC()
		r.Status = domain.ReportStatus(status)
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: row iteration: %w", err)
	}

	return reports, nil
}

// Insert reports, replacing rows that share a subject and report id.
func (s *SqliteReportRepository) InsertReports(ctx context.Context, reports []domain.PositionReport) error {
	if s.DB == nil {
		return errors.New("sqlite report repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert reports: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO position_reports (
		report_id,
		subject_key,
		lon,
		lat,
		recorded_at_ms,
		status
	)
	VALUES (?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("insert reports: prepare: %w", err)
	}
	defer stmt.Close()

	for i, r := range reports {
		_, err := stmt.ExecContext(ctx,
			domain.ReportKey(r),
			r.SubjectKey,
			r.Coordinate.Lon,
			r.Coordinate.Lat,
			r.Timestamp.UnixMilli(),
			string(r.Status),
		)
		if err != nil {
			return fmt.Errorf("insert reports: row #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert reports: commit tx: %w", err)
	}
	return nil
}

func scanSubjects(rows *sql.Rows) ([]string, error) {
	subjects := make([]string, 0, 16)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("list subjects: scan row: %w", err)
		}
		subjects = append(subjects, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subjects: row iteration: %w", err)
	}
	return subjects, nil
}
