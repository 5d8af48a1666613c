package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"captioner/internal/config"
)

// Handler processes one job id.
type Handler func(ctx context.Context, jobID string) error

// ErrStopped is returned by Enqueue once the scheduler has been stopped.
var ErrStopped = errors.New("scheduler stopped")

// Scheduler accepts job ids and runs them through a Handler.
type Scheduler interface {
	Enqueue(ctx context.Context, jobID string) error
	Start(ctx context.Context, handler Handler) error
	Stop()
	Stats() Stats
}

// Stats is a point-in-time view of scheduler activity.
type Stats struct {
	Backend   string `json:"backend"`
	Queued    int    `json:"queued"`
	Running   int    `json:"running"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
}

// NewFromConfig returns the scheduler selected by scheduler.backend.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (Scheduler, error) {
	switch cfg.Scheduler.Backend {
	case config.SchedulerLocal, "":
		return NewPool(cfg.Scheduler.Workers, cfg.Scheduler.Buffer, logger), nil
	case config.SchedulerAMQP:
		return NewAMQP(cfg.Scheduler.AMQPURL, cfg.Scheduler.AMQPQueue, cfg.Scheduler.Workers, logger), nil
	}
	return nil, fmt.Errorf("scheduler: unsupported backend %q", cfg.Scheduler.Backend)
}
