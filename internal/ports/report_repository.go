package ports

import (
	"context"
	"delivery-trajectory-service/internal/domain"
)

// Port: a boundary for reading position reports from a data source.
type ReportRepository interface {
	// Subjects that currently have at least one report.
	ListSubjects(ctx context.Context) ([]string, error)
	// All reports for a subject, in no particular order.
	ListReports(ctx context.Context, subjectKey string) ([]domain.PositionReport, error)
}

// Port: persists accepted reports so pollers and restarts can replay them.
type ReportWriter interface {
	InsertReports(ctx context.Context, reports []domain.PositionReport) error
}
