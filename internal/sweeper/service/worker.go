package service

import (
	"context"
	"log/slog"
	"time"
)

// Worker drives the sweep on a fixed interval. Run blocks until the context
// is cancelled; one sweep runs immediately on start so a restarted process
// never waits a full interval with overdue documents in the table.
type Worker struct {
	svc      *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(svc *Service, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{svc: svc, interval: interval, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("expiry sweeper started", "interval", w.interval.String())

	w.svc.Sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			w.svc.Sweep(ctx)
		}
	}
}
