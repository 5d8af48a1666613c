package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"captioner/internal/jobs"
	"captioner/internal/pipeline"
	"captioner/internal/progress"
	"captioner/internal/services"
)

const (
	maxBodyBytes   = 1 << 20
	maxEventWait   = 30 * time.Second
	defaultEventsN = 200
	srtContentType = "application/x-subrip; charset=utf-8"
)

func decodeBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return services.Wrap(services.ErrValidation, "api", "decode body", "request body is empty", nil)
		}
		return services.Wrap(services.ErrValidation, "api", "decode body", "", err)
	}
	return nil
}

func (s *Server) tenantOr(value string) string {
	if tenant := strings.TrimSpace(value); tenant != "" {
		return tenant
	}
	if s.deps.DefaultTenant != "" {
		return s.deps.DefaultTenant
	}
	return "default"
}

func (s *Server) handleUpsertSubject(w http.ResponseWriter, r *http.Request) {
	subjectID := strings.TrimSpace(chi.URLParam(r, "subjectID"))
	var req SubjectRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	if subjectID == "" {
		s.writeServiceError(w, r, services.Wrap(services.ErrValidation, "api", "upsert subject", "subject id is required", nil))
		return
	}
	subject, err := s.deps.Store.UpsertSubject(r.Context(), jobs.Subject{
		ID:       subjectID,
		TenantID: s.tenantOr(req.TenantID),
		Title:    strings.TrimSpace(req.Title),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSubjectResponse(subject))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	jobID, err := s.deps.Pipeline.Start(r.Context(), pipeline.Request{
		SubjectID:   chi.URLParam(r, "subjectID"),
		TenantID:    strings.TrimSpace(req.TenantID),
		VideoURL:    req.VideoURL,
		VideoSource: req.VideoSource,
		Languages:   req.Languages,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/jobs/"+jobID)
	writeJSON(w, http.StatusAccepted, StartResponse{JobID: jobID})
}

func (s *Server) handleSubjectStatus(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	view, ok, err := s.deps.Pipeline.Status(r.Context(), subjectID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no subtitle job for subject %q", subjectID))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSubtitleFile serves {language}.srt from the subject's latest job.
func (s *Server) handleSubtitleFile(w http.ResponseWriter, r *http.Request) {
	lang, ok := strings.CutSuffix(chi.URLParam(r, "file"), ".srt")
	if !ok || strings.TrimSpace(lang) == "" {
		writeError(w, http.StatusNotFound, "subtitle files are addressed as {language}.srt")
		return
	}
	content, err := s.deps.Pipeline.Subtitle(r.Context(), chi.URLParam(r, "subjectID"), lang)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", srtContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, content)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	for _, raw := range r.URL.Query()["status"] {
		for _, value := range strings.Split(raw, ",") {
			if strings.TrimSpace(value) == "" {
				continue
			}
			status, ok := jobs.ParseStatus(value)
			if !ok {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
				return
			}
			statuses = append(statuses, status)
		}
	}
	list, err := s.deps.Store.List(r.Context(), statuses...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := JobListResponse{Jobs: make([]JobResponse, 0, len(list))}
	for _, job := range list {
		resp.Jobs = append(resp.Jobs, NewJobResponse(job, false))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, NewJobResponse(job, true))
}

func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.deps.Store.Get(r.Context(), jobID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return nil, false
	}
	if job == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %q not found", jobID))
		return nil, false
	}
	return job, true
}

// handleEvents long-polls the progress hub. wait is in seconds, capped at 30.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = defaultEventsN
	}
	waitSeconds, _ := strconv.Atoi(query.Get("wait"))
	wait := time.Duration(waitSeconds) * time.Second
	if wait > maxEventWait {
		wait = maxEventWait
	}

	ctx := r.Context()
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}
	events, next, err := s.deps.Hub.Fetch(ctx, job.ID, since, limit, wait > 0)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		s.writeServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []progress.Event{}
	}
	writeJSON(w, http.StatusOK, EventsResponse{Events: events, Next: next})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	if s.deps.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "progress streaming unavailable")
		return
	}
	s.deps.Hub.ServeWebSocket(w, r, job.ID, s.logger)
}
