package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	stderrors "carematch-engine/internal/common/errors"
	"carematch-engine/internal/common/logger"
	"carematch-engine/internal/common/metrics"
	"carematch-engine/internal/common/observability"
	"carematch-engine/internal/common/validation"
	"carematch-engine/internal/engine/scoring"
	"carematch-engine/internal/engine/weights"
	"carematch-engine/internal/enrichment"
	"carematch-engine/internal/models"

	"github.com/google/uuid"
)

// CandidateLoader supplies the candidate pool for a job. The loader
// applies hard pre-score filters (distance, budget ceiling, care level)
// so the scorer only ranks viable facilities.
type CandidateLoader interface {
	LoadPool(ctx context.Context, poolRef string, profile models.ApplicantProfile) ([]models.Candidate, error)
}

// Notifier is told when a job reaches a terminal or partial state with
// results. Implementations must not block job processing on delivery.
type Notifier interface {
	ReportReady(ctx context.Context, job *models.ReportJob)
}

// Manager drives report jobs through their lifecycle:
// pending -> processing -> partial | completed | failed.
type Manager struct {
	store    Store
	resolver *weights.Resolver
	scorer   *scoring.Scorer
	orch     *enrichment.Orchestrator
	loader   CandidateLoader
	notifier Notifier
	obs      *observability.Observability
	log      logger.Logger

	deadline time.Duration
	topK     int
}

type ManagerOptions struct {
	Store    Store
	Resolver *weights.Resolver
	Scorer   *scoring.Scorer
	Orch     *enrichment.Orchestrator
	Loader   CandidateLoader
	Notifier Notifier
	Obs      *observability.Observability
	Logger   logger.Logger
	Deadline time.Duration
	TopK     int
}

func NewManager(opts ManagerOptions) *Manager {
	if opts.Deadline <= 0 {
		opts.Deadline = 4 * time.Hour
	}
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	return &Manager{
		store:    opts.Store,
		resolver: opts.Resolver,
		scorer:   opts.Scorer,
		orch:     opts.Orch,
		loader:   opts.Loader,
		notifier: opts.Notifier,
		obs:      opts.Obs,
		log:      opts.Logger,
		deadline: opts.Deadline,
		topK:     opts.TopK,
	}
}

// Submit validates the raw profile, resolves the weight vector, and
// persists a pending job before kicking off asynchronous processing.
// The returned job carries the id the caller polls with.
func (m *Manager) Submit(ctx context.Context, poolRef string, rawProfile map[string]interface{}) (*models.ReportJob, error) {
	result, err := validation.ValidateInput(rawProfile, models.ProfileSchema())
	if err != nil {
		return nil, stderrors.NewValidationFailedError(err.Error())
	}
	if !result.Valid {
		return nil, stderrors.NewValidationFailedError(strings.Join(result.GetErrorMessages(), "; "))
	}

	profile, err := decodeProfile(rawProfile)
	if err != nil {
		return nil, stderrors.NewValidationFailedError(err.Error())
	}

	wv, err := m.resolver.Resolve(profile)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &models.ReportJob{
		ID:         uuid.New().String(),
		Status:     models.JobPending,
		CreatedAt:  now,
		DeadlineAt: now.Add(m.deadline),
		PoolRef:    poolRef,
		Profile:    profile,
		Weights:    wv,
	}
	if err := m.store.Save(ctx, job); err != nil {
		return nil, err
	}

	m.log.Info("report job submitted", map[string]interface{}{
		"jobId":   job.ID,
		"poolRef": poolRef,
		"rules":   wv.AppliedRules,
	})

	go m.process(context.Background(), job.ID)
	return job, nil
}

// Status returns the persisted job state.
func (m *Manager) Status(ctx context.Context, id string) (*models.ReportJob, error) {
	return m.store.Get(ctx, id)
}

// Result returns the job once it has produced results. Jobs still
// pending or processing yield a JOB_NOT_READY error.
func (m *Manager) Result(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status == models.JobPending || job.Status == models.JobProcessing {
		return nil, stderrors.NewJobNotReadyError(id)
	}
	return job, nil
}

// Cancel stops further work on a job. A job with no results yet fails
// outright; a partial job keeps its last snapshot and is excluded from
// future retry passes.
func (m *Manager) Cancel(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case models.JobCompleted, models.JobFailed:
		return job, nil
	case models.JobPending:
		job.Status = models.JobFailed
		job.FailureReason = string(stderrors.ErrCodeJobCancelled)
		metrics.ReportJobsTotal.WithLabelValues(string(models.JobFailed)).Inc()
	case models.JobPartial:
		job.CancelRequested = true
	case models.JobProcessing:
		job.CancelRequested = true
	}

	if err := m.store.Save(ctx, job); err != nil {
		return nil, err
	}
	m.log.Info("report job cancelled", map[string]interface{}{
		"jobId":  job.ID,
		"status": string(job.Status),
	})
	return job, nil
}

// process runs the initial enrichment and scoring pass for one job.
func (m *Manager) process(ctx context.Context, jobID string) {
	metrics.ReportJobsActive.Inc()
	defer metrics.ReportJobsActive.Dec()
	start := time.Now()

	job, err := m.store.Get(ctx, jobID)
	if err != nil {
		m.log.Error("job vanished before processing", map[string]interface{}{"jobId": jobID})
		return
	}

	if err := m.transition(ctx, job, models.JobProcessing); err != nil {
		m.log.WithError(err).Error("failed to start job", map[string]interface{}{"jobId": jobID})
		return
	}

	candidates, err := m.loader.LoadPool(ctx, job.PoolRef, job.Profile)
	if err != nil {
		m.fail(ctx, job, err)
		return
	}
	if len(candidates) == 0 {
		m.fail(ctx, job, stderrors.NewEmptyCandidatePoolError(job.PoolRef))
		return
	}
	for i := range candidates {
		if candidates[i].Enrichment == nil {
			candidates[i].Enrichment = models.NewEnrichmentBundle(m.orch.Sources())
		}
	}

	tracker := enrichment.NewTracker()
	m.orch.EnrichAll(ctx, candidates, tracker)

	job.Candidates = candidates
	job.Results = m.scorer.SelectTopK(candidates, job.Profile, job.Weights, m.topK)
	job.MissingSources = tracker.Missing()
	job.CompletenessPercent = tracker.Completeness()

	next := models.JobCompleted
	if len(job.MissingSources) > 0 {
		next = models.JobPartial
	}

	// Re-read at the last moment so a cancel persisted while enrichment
	// or scoring ran is not overwritten by the final save. In-flight
	// results are discarded: the caller cancelled before any existed.
	if latest, err := m.store.Get(ctx, jobID); err == nil && latest.CancelRequested {
		job.CancelRequested = true
		job.Candidates = nil
		job.Results = nil
		job.MissingSources = nil
		job.CompletenessPercent = 0
		m.fail(ctx, job, stderrors.NewJobCancelledError(job.ID))
		return
	}

	if err := m.transition(ctx, job, next); err != nil {
		m.log.WithError(err).Error("failed to finalize job", map[string]interface{}{"jobId": jobID})
		return
	}

	elapsed := time.Since(start)
	metrics.ReportJobDuration.Observe(elapsed.Seconds())
	metrics.ReportJobsTotal.WithLabelValues(string(next)).Inc()
	if m.obs != nil {
		m.obs.RecordJobProcessed(ctx, string(next))
		m.obs.RecordJobDuration(ctx, elapsed, string(next))
	}
	m.log.Info("report job processed", map[string]interface{}{
		"jobId":        job.ID,
		"status":       string(next),
		"candidates":   len(candidates),
		"completeness": job.CompletenessPercent,
		"elapsedMs":    elapsed.Milliseconds(),
	})

	if m.notifier != nil {
		m.notifier.ReportReady(ctx, job)
	}
}

// transition moves a job along a legal state machine edge and persists
// it. Illegal edges are programming errors surfaced as store failures.
func (m *Manager) transition(ctx context.Context, job *models.ReportJob, to models.JobStatus) error {
	if !models.CanTransition(job.Status, to) {
		return stderrors.NewJobStoreFailedError("transition",
			fmt.Errorf("illegal transition %s -> %s for job %s", job.Status, to, job.ID))
	}
	job.Status = to
	return m.store.Save(ctx, job)
}

func (m *Manager) fail(ctx context.Context, job *models.ReportJob, cause error) {
	stdErr := stderrors.AsStandardError(cause, stderrors.ErrCodeJobStoreFailed)
	job.FailureReason = string(stdErr.Code)
	if err := m.transition(ctx, job, models.JobFailed); err != nil {
		m.log.WithError(err).Error("failed to record job failure", map[string]interface{}{"jobId": job.ID})
		return
	}
	metrics.ReportJobsTotal.WithLabelValues(string(models.JobFailed)).Inc()
	if m.obs != nil {
		m.obs.RecordJobProcessed(ctx, string(models.JobFailed))
	}
	m.log.WithError(cause).Warn("report job failed", map[string]interface{}{
		"jobId":  job.ID,
		"reason": job.FailureReason,
	})
}

func decodeProfile(raw map[string]interface{}) (models.ApplicantProfile, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return models.ApplicantProfile{}, err
	}
	var profile models.ApplicantProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return models.ApplicantProfile{}, err
	}
	return profile, nil
}
