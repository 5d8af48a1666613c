package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"captioner/internal/config"
	"captioner/internal/logging"
)

// Run starts the daemon and blocks until SIGINT, SIGTERM, or ctx ends.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := New(cfg, logger, Options{})
	if err != nil {
		return err
	}
	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	defer d.Stop()

	<-signalCtx.Done()
	d.logger.Info("captioner daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}
