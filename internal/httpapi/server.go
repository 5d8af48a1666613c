package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"captioner/internal/jobs"
	"captioner/internal/logging"
	"captioner/internal/pipeline"
	"captioner/internal/progress"
	"captioner/internal/scheduler"
	"captioner/internal/services"
)

// Pipeline is the subset of the orchestrator the API drives.
type Pipeline interface {
	Start(ctx context.Context, req pipeline.Request) (string, error)
	Status(ctx context.Context, subjectID string) (pipeline.StatusView, bool, error)
	Subtitle(ctx context.Context, subjectID, lang string) (string, error)
}

// Store is the subset of the job store the API reads and writes.
type Store interface {
	Get(ctx context.Context, id string) (*jobs.Job, error)
	List(ctx context.Context, statuses ...jobs.Status) ([]*jobs.Job, error)
	Stats(ctx context.Context) (map[jobs.Status]int, error)
	UpsertSubject(ctx context.Context, subject jobs.Subject) (*jobs.Subject, error)
}

// SchedulerStats reports scheduler activity for /api/status.
type SchedulerStats interface {
	Stats() scheduler.Stats
}

var (
	_ Pipeline       = (*pipeline.Orchestrator)(nil)
	_ Store          = (*jobs.Store)(nil)
	_ SchedulerStats = (scheduler.Scheduler)(nil)
)

// Dependencies wires the API to the rest of the daemon.
type Dependencies struct {
	Pipeline      Pipeline
	Store         Store
	Hub           *progress.Hub
	Scheduler     SchedulerStats
	Token         string
	DefaultTenant string
	DBPath        string
}

// Server serves the HTTP API.
type Server struct {
	deps      Dependencies
	logger    *slog.Logger
	startedAt time.Time
	handler   http.Handler

	bind     string
	listener net.Listener
	server   *http.Server
}

// New builds the router. Start must be called to listen.
func New(bind string, deps Dependencies, logger *slog.Logger) *Server {
	s := &Server{
		deps:      deps,
		logger:    logging.NewComponentLogger(logger, "api-server"),
		startedAt: time.Now().UTC(),
		bind:      strings.TrimSpace(bind),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestContext)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(s.deps.Token))
		r.Get("/api/status", s.handleStatus)
		r.Put("/api/subjects/{subjectID}", s.handleUpsertSubject)
		r.Post("/api/subjects/{subjectID}/subtitles", s.handleStart)
		r.Get("/api/subjects/{subjectID}/subtitles/status", s.handleSubjectStatus)
		r.Get("/api/subjects/{subjectID}/subtitles/{file}", s.handleSubtitleFile)
		r.Get("/api/jobs", s.handleListJobs)
		r.Get("/api/jobs/{jobID}", s.handleGetJob)
		r.Get("/api/jobs/{jobID}/events", s.handleEvents)
		r.Get("/api/jobs/{jobID}/ws", s.handleWebSocket)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(r)
}

// requestContext copies the chi request id into the services context so log
// lines carry a correlation id. Requests without one get a fresh uuid.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

// Start listens on the configured address and shuts down when ctx ends.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.deps.Store.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	jobsByStatus := make(map[string]int, len(counts))
	for _, status := range jobs.AllStatuses() {
		jobsByStatus[string(status)] = counts[status]
	}
	payload := DaemonStatus{
		Running:       true,
		PID:           os.Getpid(),
		StartedAt:     s.startedAt,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		DBPath:        s.deps.DBPath,
		Jobs:          jobsByStatus,
	}
	if s.deps.Scheduler != nil {
		payload.Scheduler = s.deps.Scheduler.Stats()
	}
	writeJSON(w, http.StatusOK, payload)
}
