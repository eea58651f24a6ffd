package retry

import (
	"context"
	"fmt"
	"time"

	stderrors "carematch-engine/internal/common/errors"
	"carematch-engine/internal/common/logger"
	"carematch-engine/internal/common/metrics"
	"carematch-engine/internal/engine/scoring"
	"carematch-engine/internal/enrichment"
	"carematch-engine/internal/jobs"
	"carematch-engine/internal/models"
)

// Scheduler periodically sweeps partial jobs and re-fetches their
// missing (candidate, source) pairs. Data that already succeeded is
// never fetched again; a sweep only ever narrows the missing set.
type Scheduler struct {
	store  jobs.Store
	orch   *enrichment.Orchestrator
	scorer *scoring.Scorer
	policy Policy
	sweep  time.Duration
	topK   int
	log    logger.Logger
}

type SchedulerOptions struct {
	Store         jobs.Store
	Orch          *enrichment.Orchestrator
	Scorer        *scoring.Scorer
	Policy        Policy
	SweepInterval time.Duration
	TopK          int
	Logger        logger.Logger
}

func NewScheduler(opts SchedulerOptions) *Scheduler {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 2 * time.Minute
	}
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	return &Scheduler{
		store:  opts.Store,
		orch:   opts.Orch,
		scorer: opts.Scorer,
		policy: opts.Policy,
		sweep:  opts.SweepInterval,
		topK:   opts.TopK,
		log:    opts.Logger,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	s.log.Info("retry scheduler started", map[string]interface{}{
		"sweepInterval": s.sweep.String(),
		"maxAttempts":   s.policy.MaxAttempts,
	})

	for {
		select {
		case <-ctx.Done():
			s.log.Info("retry scheduler stopped", nil)
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep retries every partial job with eligible missing pairs.
func (s *Scheduler) Sweep(ctx context.Context) {
	metrics.RetrySweepsTotal.Inc()

	partials, err := s.store.ListByStatus(ctx, models.JobPartial)
	if err != nil {
		s.log.WithError(err).Error("retry sweep could not list partial jobs", nil)
		return
	}

	now := time.Now().UTC()
	for _, job := range partials {
		if job.CancelRequested {
			continue
		}
		if job.PastDeadline(now) {
			// Budget exhausted: the job stays partial with whatever it
			// has; nothing further will be attempted.
			continue
		}
		if _, err := s.retryJob(ctx, job, now); err != nil {
			s.log.WithError(err).Error("retry pass failed", map[string]interface{}{"jobId": job.ID})
		}
	}
}

// RetryNow runs a synchronous retry pass for one job, regardless of the
// sweep ticker. Backoff eligibility still applies. Only partial jobs
// can be retried. The int is the number of (candidate, source) pairs
// actually re-fetched.
func (s *Scheduler) RetryNow(ctx context.Context, jobID string) (*models.ReportJob, int, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, 0, err
	}
	if job.Status != models.JobPartial {
		return nil, 0, stderrors.NewJobNotReadyError(jobID)
	}
	if job.CancelRequested {
		return job, 0, nil
	}
	now := time.Now().UTC()
	if job.PastDeadline(now) {
		return job, 0, nil
	}
	retried, err := s.retryJob(ctx, job, now)
	if err != nil {
		return nil, 0, err
	}
	refreshed, err := s.store.Get(ctx, jobID)
	return refreshed, retried, err
}

func (s *Scheduler) retryJob(ctx context.Context, job *models.ReportJob, now time.Time) (int, error) {
	tracker := s.rebuildTracker(job)

	var pairs []enrichment.Pair
	for _, o := range job.MissingSources {
		if s.policy.Eligible(o, now) {
			pairs = append(pairs, enrichment.Pair{CandidateID: o.CandidateID, Source: o.Source})
		}
	}
	if len(pairs) == 0 {
		return 0, nil
	}

	before := len(job.MissingSources)
	s.orch.EnrichPairs(ctx, job.Candidates, pairs, tracker)

	job.MissingSources = tracker.Missing()
	job.CompletenessPercent = tracker.Completeness()
	job.Results = s.scorer.SelectTopK(job.Candidates, job.Profile, job.Weights, s.topK)

	recovered := before - len(job.MissingSources)
	if recovered > 0 {
		metrics.RetriedSourcesTotal.WithLabelValues("success").Add(float64(recovered))
	}
	metrics.RetriedSourcesTotal.WithLabelValues("failure").Add(float64(len(pairs) - recovered))

	next := models.JobPartial
	if len(job.MissingSources) == 0 {
		next = models.JobCompleted
	}
	if !models.CanTransition(job.Status, next) {
		return 0, stderrors.NewJobStoreFailedError("transition",
			fmt.Errorf("illegal transition %s -> %s for job %s", job.Status, next, job.ID))
	}
	job.Status = next

	s.log.Info("retry pass finished", map[string]interface{}{
		"jobId":        job.ID,
		"attempted":    len(pairs),
		"recovered":    recovered,
		"status":       string(next),
		"completeness": job.CompletenessPercent,
	})
	return len(pairs), s.store.Save(ctx, job)
}

// rebuildTracker reconstructs the job's fetch ledger: successes are
// inferred from the enrichment bundles, failures replayed from the
// persisted missing set so attempt counts survive restarts.
func (s *Scheduler) rebuildTracker(job *models.ReportJob) *enrichment.Tracker {
	tracker := enrichment.NewTracker()
	sources := s.orch.Sources()

	var succeeded []models.SourceOutcome
	for _, c := range job.Candidates {
		for _, src := range sources {
			if !c.Enrichment.Get(src).Missing {
				succeeded = append(succeeded, models.SourceOutcome{
					CandidateID: c.ID,
					Source:      src,
					Status:      models.OutcomeSuccess,
					Attempts:    1,
				})
			}
		}
	}
	tracker.Import(succeeded)
	tracker.Import(job.MissingSources)
	return tracker
}
