// Package api exposes the report engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	stderrors "carematch-engine/internal/common/errors"
	"carematch-engine/internal/common/logger"
	"carematch-engine/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// JobService is the job lifecycle surface the API fronts.
type JobService interface {
	Submit(ctx context.Context, poolRef string, rawProfile map[string]interface{}) (*models.ReportJob, error)
	Status(ctx context.Context, id string) (*models.ReportJob, error)
	Result(ctx context.Context, id string) (*models.ReportJob, error)
	Cancel(ctx context.Context, id string) (*models.ReportJob, error)
}

// Retrier triggers a synchronous retry pass for one job. The int is the
// number of (candidate, source) pairs actually re-fetched.
type Retrier interface {
	RetryNow(ctx context.Context, jobID string) (*models.ReportJob, int, error)
}

// FacilityFinder backs the facility search endpoint.
type FacilityFinder interface {
	Find(ctx context.Context, query string, careLevel models.CareLevel, size int) ([]models.Candidate, error)
}

// HealthCheck reports one dependency's liveness.
type HealthCheck func(ctx context.Context) error

type Server struct {
	jobs    JobService
	retrier Retrier
	finder  FacilityFinder
	health  map[string]HealthCheck
	log     logger.Logger
}

func NewServer(jobs JobService, retrier Retrier, finder FacilityFinder, health map[string]HealthCheck, log logger.Logger) *Server {
	return &Server{jobs: jobs, retrier: retrier, finder: finder, health: health, log: log}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/reports", s.handleSubmit)
	mux.HandleFunc("GET /api/v1/reports/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/reports/{id}", s.handleResult)
	mux.HandleFunc("POST /api/v1/reports/{id}/retry", s.handleRetry)
	mux.HandleFunc("DELETE /api/v1/reports/{id}", s.handleCancel)
	mux.HandleFunc("GET /api/v1/facilities/search", s.handleSearch)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

type submitRequest struct {
	PoolRef string                 `json:"poolRef"`
	Profile map[string]interface{} `json:"profile"`
}

type submitResponse struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	DeadlineAt time.Time `json:"deadlineAt"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, stderrors.NewValidationFailedError("request body is not valid JSON"))
		return
	}
	if req.PoolRef == "" {
		s.writeError(w, stderrors.NewValidationFailedError("poolRef is required"))
		return
	}

	job, err := s.jobs.Submit(r.Context(), req.PoolRef, req.Profile)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, submitResponse{
		ID:         job.ID,
		Status:     string(job.Status),
		DeadlineAt: job.DeadlineAt,
	})
}

type statusResponse struct {
	ID                  string    `json:"id"`
	Status              string    `json:"status"`
	CompletenessPercent float64   `json:"completenessPercent"`
	MissingCount        int       `json:"missingCount"`
	CreatedAt           time.Time `json:"createdAt"`
	DeadlineAt          time.Time `json:"deadlineAt"`
	FailureReason       string    `json:"failureReason,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		ID:                  job.ID,
		Status:              string(job.Status),
		CompletenessPercent: job.CompletenessPercent,
		MissingCount:        len(job.MissingSources),
		CreatedAt:           job.CreatedAt,
		DeadlineAt:          job.DeadlineAt,
		FailureReason:       job.FailureReason,
	})
}

type reportResponse struct {
	ID                  string                      `json:"id"`
	Status              string                      `json:"status"`
	IsPartial           bool                        `json:"isPartial"`
	CompletenessPercent float64                     `json:"completenessPercent"`
	AppliedWeights      map[models.Category]float64 `json:"appliedWeights,omitempty"`
	AppliedRules        []string                    `json:"appliedRules,omitempty"`
	Results             []models.MatchResult        `json:"results"`
	MissingSources      []models.SourceOutcome      `json:"missingSources,omitempty"`
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Result(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reportResponse{
		ID:                  job.ID,
		Status:              string(job.Status),
		IsPartial:           job.IsPartial(),
		CompletenessPercent: job.CompletenessPercent,
		AppliedWeights:      job.Weights.Weights,
		AppliedRules:        job.Weights.AppliedRules,
		Results:             job.Results,
		MissingSources:      job.MissingSources,
	})
}

type retryResponse struct {
	ID                  string  `json:"id"`
	Status              string  `json:"status"`
	RetriedCount        int     `json:"retriedCount"`
	StillMissingCount   int     `json:"stillMissingCount"`
	CompletenessPercent float64 `json:"completenessPercent"`
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	job, retried, err := s.retrier.RetryNow(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, retryResponse{
		ID:                  job.ID,
		Status:              string(job.Status),
		RetriedCount:        retried,
		StillMissingCount:   len(job.MissingSources),
		CompletenessPercent: job.CompletenessPercent,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		ID:                  job.ID,
		Status:              string(job.Status),
		CompletenessPercent: job.CompletenessPercent,
		MissingCount:        len(job.MissingSources),
		CreatedAt:           job.CreatedAt,
		DeadlineAt:          job.DeadlineAt,
		FailureReason:       job.FailureReason,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.finder == nil {
		s.writeError(w, stderrors.NewSearchQueryFailedError(errors.New("facility search is not configured")))
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, stderrors.NewValidationFailedError("q is required"))
		return
	}
	careLevel := models.CareLevel(r.URL.Query().Get("careLevel"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	results, err := s.finder.Find(r.Context(), query, careLevel, size)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"facilities": results})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.health))
	healthy := true
	for name, check := range s.health {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, map[string]interface{}{
		"healthy": healthy,
		"checks":  checks,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Error("response encoding failed", nil)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := stderrors.AsStandardError(err, stderrors.ErrCodeJobStoreFailed)
	s.writeJSON(w, httpStatusFor(stdErr.Code), map[string]interface{}{"error": stdErr})
}

func httpStatusFor(code stderrors.ErrorCode) int {
	switch code {
	case stderrors.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case stderrors.ErrCodeJobNotFound:
		return http.StatusNotFound
	case stderrors.ErrCodeJobNotReady:
		return http.StatusConflict
	case stderrors.ErrCodeEmptyCandidatePool:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
