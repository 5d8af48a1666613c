package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"captioner/internal/config"
	"captioner/internal/httpapi"
	"captioner/internal/jobs"
	"captioner/internal/logging"
	"captioner/internal/notifications"
	"captioner/internal/pipeline"
	"captioner/internal/preflight"
	"captioner/internal/progress"
	"captioner/internal/scheduler"
	"captioner/internal/services/llm"
	"captioner/internal/services/transcription"
	"captioner/internal/storage"
)

const progressCapacity = 4096

// Options overrides collaborators the daemon would otherwise build from config.
type Options struct {
	Transcriber   pipeline.Transcriber
	Translator    pipeline.Translator
	Storage       storage.Backend
	Scheduler     scheduler.Scheduler
	Notifier      notifications.Service
	SkipPreflight bool
}

// Daemon owns the store, scheduler, and API server for one process.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	opts   Options

	lockPath string
	lock     *flock.Flock
	pidPath  string

	mu        sync.Mutex
	store     *jobs.Store
	hub       *progress.Hub
	scheduler scheduler.Scheduler
	api       *httpapi.Server
	cancel    context.CancelFunc
	running   atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	APIAddress   string
	DBPath       string
	LockFilePath string
	Scheduler    scheduler.Stats
}

// New constructs a daemon. Nothing is opened until Start.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		opts:     opts,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		pidPath:  filepath.Join(cfg.Paths.LogDir, "captioner.pid"),
	}, nil
}

// Start acquires the lock, recovers interrupted jobs, and starts serving.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another captioner daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.startLocked(runCtx); err != nil {
		cancel()
		d.teardownLocked()
		return err
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("captioner daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.Addr()),
	)
	return nil
}

func (d *Daemon) startLocked(ctx context.Context) error {
	if err := writePIDFile(d.pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}

	store, err := jobs.Open(d.cfg)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	d.store = store

	interrupted, err := store.FailInterrupted(ctx, jobs.DaemonStopReason)
	if err != nil {
		return fmt.Errorf("recover interrupted jobs: %w", err)
	}
	if interrupted > 0 {
		logging.WarnWithContext(d.logger, "failed jobs interrupted by previous shutdown", "jobs_interrupted",
			logging.Int64("count", interrupted),
			logging.String(logging.FieldImpact, "affected subjects need a new subtitle request"),
		)
	}

	if !d.opts.SkipPreflight {
		d.runPreflight(ctx)
	}

	backend := d.opts.Storage
	if backend == nil {
		backend, err = storage.NewFromConfig(d.cfg)
		if err != nil {
			return err
		}
	}
	var transcriber pipeline.Transcriber = d.opts.Transcriber
	if transcriber == nil {
		transcriber = transcription.NewFromConfig(d.cfg)
	}
	var translator pipeline.Translator = d.opts.Translator
	if translator == nil {
		translator = llm.NewFromConfig(d.cfg)
	}
	notifier := d.opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(d.cfg)
	}
	sched := d.opts.Scheduler
	if sched == nil {
		sched, err = scheduler.NewFromConfig(d.cfg, d.logger)
		if err != nil {
			return err
		}
	}
	d.scheduler = sched
	d.hub = progress.NewHub(progressCapacity)

	orch := pipeline.New(d.cfg, pipeline.Dependencies{
		Store:       store,
		Subjects:    store,
		Transcriber: transcriber,
		Translator:  translator,
		Storage:     backend,
		Reporter:    d.hub,
		Scheduler:   sched,
		Notifier:    notifier,
	}, d.logger)

	if err := sched.Start(ctx, orch.Run); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := d.requeuePending(ctx); err != nil {
		return err
	}

	d.api = httpapi.New(d.cfg.Paths.APIBind, httpapi.Dependencies{
		Pipeline:      orch,
		Store:         store,
		Hub:           d.hub,
		Scheduler:     sched,
		Token:         d.cfg.Paths.APIToken,
		DefaultTenant: d.cfg.Tenant.DefaultID,
		DBPath:        store.Path(),
	}, d.logger)
	if err := d.api.Start(ctx); err != nil {
		return err
	}
	return nil
}

// requeuePending hands jobs that never started back to the scheduler. With
// the AMQP backend the broker may still hold them; Run ignores duplicates.
func (d *Daemon) requeuePending(ctx context.Context) error {
	ids, err := d.store.PendingIDs(ctx)
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}
	for _, id := range ids {
		if err := d.scheduler.Enqueue(ctx, id); err != nil {
			return fmt.Errorf("requeue job %s: %w", id, err)
		}
	}
	if len(ids) > 0 {
		d.logger.Info("requeued pending jobs",
			logging.String(logging.FieldEventType, "jobs_requeued"),
			logging.Int("count", len(ids)),
		)
	}
	return nil
}

func (d *Daemon) runPreflight(ctx context.Context) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix the configuration or dependency before submitting jobs"),
		)
	}
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.teardownLocked()
	d.running.Store(false)
	d.logger.Info("captioner daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

func (d *Daemon) teardownLocked() {
	if d.api != nil {
		d.api.Stop()
	}
	if d.scheduler != nil {
		d.scheduler.Stop()
	}
	if d.hub != nil {
		d.hub.Close()
	}
	if d.store != nil {
		if _, err := d.store.FailInterrupted(context.Background(), jobs.DaemonStopReason); err != nil {
			d.logger.Warn("failed to mark interrupted jobs", logging.Error(err))
		}
		if err := d.store.Close(); err != nil {
			d.logger.Warn("failed to close job store", logging.Error(err))
		}
	}
	_ = os.Remove(d.pidPath)
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.api = nil
	d.scheduler = nil
	d.hub = nil
	d.store = nil
}

// Addr returns the API listen address while running.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.api == nil {
		return ""
	}
	return d.api.Addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := Status{
		Running:      d.running.Load(),
		DBPath:       d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
	if d.api != nil {
		status.APIAddress = d.api.Addr()
	}
	if d.scheduler != nil {
		status.Scheduler = d.scheduler.Stats()
	}
	return status
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
