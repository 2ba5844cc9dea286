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

// Postgres-backed implementation of the ReportRepository port.
type SQLReportRepository struct{ DB *sql.DB }

func NewSQLReportRepository(db *sql.DB) *SQLReportRepository {
	return &SQLReportRepository{DB: db}
}

func (s *SQLReportRepository) ListSubjects(ctx context.Context) ([]string, error) {
	if s.DB == nil {
		return nil, errors.New("sql report repository: DB is nil")
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

func (s *SQLReportRepository) ListReports(ctx context.Context, subjectKey string) (_ []domain.PositionReport, err error) {
	defer obs.Time(ctx, "reports.sql.ListReports")(&err)

	if s.DB == nil {
		return nil, errors.New("sql report repository: DB is nil")
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
		recorded_at,
		status
	FROM position_reports
	WHERE subject_key = $1
	ORDER BY recorded_at, report_id;
	`, subjectKey)
	if err != nil {
		return nil, fmt.Errorf("list reports: query position_reports table: %w", err)
	}
	defer rows.Close()

	reports := make([]domain.PositionReport, 0, 64)
	for rows.Next() {
		var r domain.PositionReport
		var at time.Time
		var status string
		if err := rows.Scan(&r.ID, &r.SubjectKey, &r.Coordinate.Lon, &r.Coordinate.Lat, &at, &status); err != nil {
			return nil, fmt.Errorf("list reports: scan row: %w", err)
		}
		r.Timestamp = at.UTC()
		r.Status = domain.ReportStatus(status)
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: row iteration: %w", err)
	}

	return reports, nil
}

func (s *SQLReportRepository) InsertReports(ctx context.Context, reports []domain.PositionReport) error {
	if s.DB == nil {
		return errors.New("sql report repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert reports: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, r := range reports {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO position_reports (
			report_id,
			subject_key,
			lon,
			lat,
			recorded_at,
			status
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subject_key, report_id) DO UPDATE
		SET
			lon = EXCLUDED.lon,
			lat = EXCLUDED.lat,
			recorded_at = EXCLUDED.recorded_at,
			status = EXCLUDED.status;
		`,
			domain.ReportKey(r),
			r.SubjectKey,
			r.Coordinate.Lon,
			r.Coordinate.Lat,
			r.Timestamp.UTC(),
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
