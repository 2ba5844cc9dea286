package services

import (
	"context"
	"delivery-trajectory-service/internal/domain"
	"delivery-trajectory-service/internal/ports"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// Ingester is the part of Engine the poller drives.
type Ingester interface {
	Ingest(ctx context.Context, subjectKey string, reports []domain.PositionReport, opts ...IngestOption) error
}

// Poller periodically replays each subject's stored reports into the
// engine. Feeds are cumulative, so unchanged subjects cost only a query.
type Poller struct {
	repo        ports.ReportRepository
	engine      Ingester
	interval    time.Duration
	concurrency int
}

func NewPoller(repo ports.ReportRepository, engine Ingester, interval time.Duration, concurrency int) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Poller{repo: repo, engine: engine, interval: interval, concurrency: concurrency}
}

// Run polls immediately and then on every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.PollOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("poller: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PollOnce ingests every subject's current reports. A failing subject
// is logged and does not stop the others.
func (p *Poller) PollOnce(ctx context.Context) error {
	subjects, err := p.repo.ListSubjects(ctx)
	if err != nil {
		return fmt.Errorf("poll: list subjects: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, key := range subjects {
		g.Go(func() error {
			reports, err := p.repo.ListReports(gctx, key)
			if err != nil {
				log.Printf("poller: subject=%s list reports: %v", key, err)
				return nil
			}
			if err := p.engine.Ingest(gctx, key, reports); err != nil {
				log.Printf("poller: subject=%s ingest: %v", key, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
