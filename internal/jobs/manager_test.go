package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	stderrors "carematch-engine/internal/common/errors"
	"carematch-engine/internal/common/logger"
	"carematch-engine/internal/engine/scoring"
	"carematch-engine/internal/engine/weights"
	"carematch-engine/internal/enrichment"
	"carematch-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLoader returns a fixed pool, or an error.
type stubLoader struct {
	candidates []models.Candidate
	err        error
}

func (l *stubLoader) LoadPool(ctx context.Context, poolRef string, profile models.ApplicantProfile) ([]models.Candidate, error) {
	if l.err != nil {
		return nil, l.err
	}
	out := make([]models.Candidate, len(l.candidates))
	copy(out, l.candidates)
	return out, nil
}

// stubSource answers every fetch with fixed data, or fails.
type stubSource struct {
	name string
	data map[string]interface{}
	err  error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context, candidate models.Candidate) (models.SourcePayload, error) {
	if s.err != nil {
		return models.SourcePayload{}, s.err
	}
	return models.SourcePayload{Source: s.name, Data: s.data}, nil
}

// gateSource blocks each fetch until released, so tests can interleave
// cancellation with enrichment.
type gateSource struct {
	name    string
	started chan struct{}
	release chan struct{}
}

func (s *gateSource) Name() string { return s.name }

func (s *gateSource) Fetch(ctx context.Context, candidate models.Candidate) (models.SourcePayload, error) {
	s.started <- struct{}{}
	<-s.release
	return models.SourcePayload{Source: s.name, Data: map[string]interface{}{"overallRating": "Good"}}, nil
}

type countingNotifier struct {
	calls int64
}

func (n *countingNotifier) ReportReady(ctx context.Context, job *models.ReportJob) {
	atomic.AddInt64(&n.calls, 1)
}

func validProfile() map[string]interface{} {
	return map[string]interface{}{
		"requiredCareLevel": "residential",
		"budgetWeekly":      float64(1100),
		"location": map[string]interface{}{
			"postcode": "BS1 4DJ",
			"lat":      51.4497,
			"lon":      -2.5823,
		},
	}
}

func poolCandidates() []models.Candidate {
	return []models.Candidate{
		{ID: "home-a", Name: "Avon House", WeeklyPrice: 900, CareLevels: []string{"residential"}},
		{ID: "home-b", Name: "Brunel Lodge", WeeklyPrice: 1000, CareLevels: []string{"residential", "dementia"}},
	}
}

func newTestManager(t *testing.T, loader CandidateLoader, clients []enrichment.SourceClient, notifier Notifier) (*Manager, Store) {
	t.Helper()
	store := NewMemoryStore()
	orch := enrichment.NewOrchestrator(clients, 8, time.Second, logger.NewTestLogger(t))
	mgr := NewManager(ManagerOptions{
		Store:    store,
		Resolver: weights.NewDefaultResolver(),
		Scorer:   scoring.NewScorer(100),
		Orch:     orch,
		Loader:   loader,
		Notifier: notifier,
		Logger:   logger.NewTestLogger(t),
		Deadline: time.Hour,
		TopK:     10,
	})
	return mgr, store
}

func waitForStatus(t *testing.T, store Store, id string, want ...models.JobStatus) *models.ReportJob {
	t.Helper()
	var job *models.ReportJob
	require.Eventually(t, func() bool {
		j, err := store.Get(context.Background(), id)
		if err != nil {
			return false
		}
		for _, s := range want {
			if j.Status == s {
				job = j
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestSubmit_RejectsInvalidProfile(t *testing.T) {
	mgr, _ := newTestManager(t, &stubLoader{}, nil, nil)

	_, err := mgr.Submit(context.Background(), "pool-1", map[string]interface{}{
		"budgetWeekly": float64(1000),
	})
	require.Error(t, err)

	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeValidationFailed, stdErr.Code)
}

func TestSubmit_AllSourcesSucceedCompletesJob(t *testing.T) {
	clients := []enrichment.SourceClient{
		&stubSource{name: models.SourceCareRegistry, data: map[string]interface{}{"overallRating": "Good"}},
		&stubSource{name: models.SourcePlaces, data: map[string]interface{}{"rating": 4.0}},
	}
	notifier := &countingNotifier{}
	mgr, store := newTestManager(t, &stubLoader{candidates: poolCandidates()}, clients, notifier)

	job, err := mgr.Submit(context.Background(), "pool-1", validProfile())
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, job.Status)
	assert.NotEmpty(t, job.ID)
	assert.False(t, job.DeadlineAt.IsZero())

	final := waitForStatus(t, store, job.ID, models.JobCompleted)
	assert.Equal(t, 100.0, final.CompletenessPercent)
	assert.Empty(t, final.MissingSources)
	assert.Len(t, final.Results, 2)
	assert.EqualValues(t, 1, atomic.LoadInt64(&notifier.calls))
}

func TestSubmit_FailingSourceYieldsPartial(t *testing.T) {
	clients := []enrichment.SourceClient{
		&stubSource{name: models.SourceCareRegistry, data: map[string]interface{}{"overallRating": "Good"}},
		&stubSource{name: models.SourceFoodHygiene, err: errors.New("down")},
	}
	mgr, store := newTestManager(t, &stubLoader{candidates: poolCandidates()}, clients, nil)

	job, err := mgr.Submit(context.Background(), "pool-1", validProfile())
	require.NoError(t, err)

	final := waitForStatus(t, store, job.ID, models.JobPartial)
	assert.Equal(t, 50.0, final.CompletenessPercent)
	assert.Len(t, final.MissingSources, 2)
	assert.NotEmpty(t, final.Results, "partial jobs still carry scored results")
	for _, o := range final.MissingSources {
		assert.Equal(t, models.SourceFoodHygiene, o.Source)
	}
}

func TestSubmit_EmptyPoolFailsJob(t *testing.T) {
	mgr, store := newTestManager(t, &stubLoader{}, []enrichment.SourceClient{
		&stubSource{name: models.SourceCareRegistry, data: map[string]interface{}{}},
	}, nil)

	job, err := mgr.Submit(context.Background(), "pool-empty", validProfile())
	require.NoError(t, err)

	final := waitForStatus(t, store, job.ID, models.JobFailed)
	assert.Equal(t, string(stderrors.ErrCodeEmptyCandidatePool), final.FailureReason)
	assert.Empty(t, final.Results)
}

func TestResult_PendingJobIsNotReady(t *testing.T) {
	mgr, store := newTestManager(t, &stubLoader{candidates: poolCandidates()}, nil, nil)

	job := &models.ReportJob{ID: "job-1", Status: models.JobPending}
	require.NoError(t, store.Save(context.Background(), job))

	_, err := mgr.Result(context.Background(), "job-1")
	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeJobNotReady, stdErr.Code)
}

func TestResult_UnknownJob(t *testing.T) {
	mgr, _ := newTestManager(t, &stubLoader{}, nil, nil)

	_, err := mgr.Result(context.Background(), "no-such-job")
	require.Error(t, err)
	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeJobNotFound, stdErr.Code)
}

func TestCancel_PendingJobFails(t *testing.T) {
	mgr, store := newTestManager(t, &stubLoader{}, nil, nil)

	job := &models.ReportJob{ID: "job-2", Status: models.JobPending}
	require.NoError(t, store.Save(context.Background(), job))

	cancelled, err := mgr.Cancel(context.Background(), "job-2")
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, cancelled.Status)
	assert.Equal(t, string(stderrors.ErrCodeJobCancelled), cancelled.FailureReason)
}

func TestCancel_PartialJobKeepsSnapshotAndStopsRetries(t *testing.T) {
	mgr, store := newTestManager(t, &stubLoader{}, nil, nil)

	job := &models.ReportJob{
		ID:      "job-3",
		Status:  models.JobPartial,
		Results: []models.MatchResult{{CandidateID: "home-a", TotalScore: 61.5}},
	}
	require.NoError(t, store.Save(context.Background(), job))

	cancelled, err := mgr.Cancel(context.Background(), "job-3")
	require.NoError(t, err)
	assert.Equal(t, models.JobPartial, cancelled.Status)
	assert.True(t, cancelled.CancelRequested)
	assert.Len(t, cancelled.Results, 1)
}

func TestCancel_DuringProcessingDiscardsInFlightResults(t *testing.T) {
	src := &gateSource{
		name:    models.SourceCareRegistry,
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	loader := &stubLoader{candidates: poolCandidates()[:1]}
	mgr, store := newTestManager(t, loader, []enrichment.SourceClient{src}, nil)

	job, err := mgr.Submit(context.Background(), "pool-1", validProfile())
	require.NoError(t, err)

	// Wait for enrichment to be in flight, cancel, then let it finish.
	<-src.started
	_, err = mgr.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	close(src.release)

	final := waitForStatus(t, store, job.ID, models.JobFailed)
	assert.Equal(t, string(stderrors.ErrCodeJobCancelled), final.FailureReason)
	assert.Empty(t, final.Results)
	assert.True(t, final.CancelRequested)
}

func TestCancel_TerminalJobIsNoOp(t *testing.T) {
	mgr, store := newTestManager(t, &stubLoader{}, nil, nil)

	job := &models.ReportJob{ID: "job-4", Status: models.JobCompleted}
	require.NoError(t, store.Save(context.Background(), job))

	cancelled, err := mgr.Cancel(context.Background(), "job-4")
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, cancelled.Status)
}
