package enrichment

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"carematch-engine/internal/common/logger"
	"carematch-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient is a scriptable source client for orchestration tests.
type stubClient struct {
	name    string
	data    map[string]interface{}
	err     error
	block   bool // block until the fetch context is cancelled
	panics  bool
	fetches int64
}

func (s *stubClient) Name() string { return s.name }

func (s *stubClient) Fetch(ctx context.Context, candidate models.Candidate) (models.SourcePayload, error) {
	atomic.AddInt64(&s.fetches, 1)
	if s.panics {
		panic("stub client exploded")
	}
	if s.block {
		<-ctx.Done()
		return models.SourcePayload{}, ctx.Err()
	}
	if s.err != nil {
		return models.SourcePayload{}, s.err
	}
	return models.SourcePayload{Source: s.name, Data: s.data}, nil
}

func testCandidates(ids ...string) []models.Candidate {
	out := make([]models.Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Candidate{
			ID:         id,
			Name:       "Home " + id,
			Enrichment: models.NewEnrichmentBundle(models.KnownSources()),
		})
	}
	return out
}

func TestEnrichAll_MergesPayloadsAndTracksSuccess(t *testing.T) {
	registry := &stubClient{name: models.SourceCareRegistry, data: map[string]interface{}{"overallRating": "Good"}}
	places := &stubClient{name: models.SourcePlaces, data: map[string]interface{}{"rating": 4.2}}

	orch := NewOrchestrator([]SourceClient{registry, places}, 8, time.Second, logger.NewTestLogger(t))
	candidates := testCandidates("c1", "c2")
	tracker := NewTracker()

	orch.EnrichAll(context.Background(), candidates, tracker)

	assert.Equal(t, 100.0, tracker.Completeness())
	for i := range candidates {
		p := candidates[i].Enrichment.Get(models.SourceCareRegistry)
		assert.False(t, p.Missing)
		assert.Equal(t, "Good", p.Data["overallRating"])
		assert.False(t, p.FetchedAt.IsZero())
	}
}

func TestEnrichAll_FailingSourceDoesNotBlockOthers(t *testing.T) {
	good := &stubClient{name: models.SourceCareRegistry, data: map[string]interface{}{"overallRating": "Good"}}
	bad := &stubClient{name: models.SourceFoodHygiene, err: errors.New("connection refused")}

	orch := NewOrchestrator([]SourceClient{good, bad}, 8, time.Second, logger.NewTestLogger(t))
	candidates := testCandidates("c1")
	tracker := NewTracker()

	orch.EnrichAll(context.Background(), candidates, tracker)

	assert.Equal(t, 50.0, tracker.Completeness())
	assert.False(t, candidates[0].Enrichment.Get(models.SourceCareRegistry).Missing)
	assert.True(t, candidates[0].Enrichment.Get(models.SourceFoodHygiene).Missing)

	missing := tracker.Missing()
	require.Len(t, missing, 1)
	assert.Equal(t, models.SourceFoodHygiene, missing[0].Source)
	assert.Contains(t, missing[0].LastError, "connection refused")
}

func TestEnrichAll_TimeoutsRunInParallel(t *testing.T) {
	// Four sources, one of them dead: with bounded fan-out the whole pass
	// for 5 candidates should finish in roughly one timeout, not 5x.
	clients := []SourceClient{
		&stubClient{name: models.SourceCareRegistry, block: true},
		&stubClient{name: models.SourceFoodHygiene, data: map[string]interface{}{"hygieneScore": float64(5)}},
		&stubClient{name: models.SourcePlaces, data: map[string]interface{}{"rating": 4.0}},
		&stubClient{name: models.SourceCompanyFinance, data: map[string]interface{}{"solvencyScore": 0.8}},
	}

	orch := NewOrchestrator(clients, 32, 200*time.Millisecond, logger.NewTestLogger(t))
	candidates := testCandidates("c1", "c2", "c3", "c4", "c5")
	tracker := NewTracker()

	start := time.Now()
	orch.EnrichAll(context.Background(), candidates, tracker)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second, "dead source must time out concurrently, not serially")
	assert.Equal(t, 75.0, tracker.Completeness())

	for _, o := range tracker.Missing() {
		assert.Equal(t, models.SourceCareRegistry, o.Source)
		assert.Contains(t, o.LastError, "SOURCE_TIMEOUT")
	}
}

func TestEnrichAll_PanickingClientIsIsolated(t *testing.T) {
	boom := &stubClient{name: models.SourcePlaces, panics: true}
	good := &stubClient{name: models.SourceCareRegistry, data: map[string]interface{}{"overallRating": "Good"}}

	orch := NewOrchestrator([]SourceClient{boom, good}, 4, time.Second, logger.NewTestLogger(t))
	candidates := testCandidates("c1")
	tracker := NewTracker()

	require.NotPanics(t, func() {
		orch.EnrichAll(context.Background(), candidates, tracker)
	})

	missing := tracker.Missing()
	require.Len(t, missing, 1)
	assert.Equal(t, models.SourcePlaces, missing[0].Source)
	assert.Contains(t, missing[0].LastError, "panic")
}

func TestEnrichPairs_FetchesOnlyRequestedPairs(t *testing.T) {
	registry := &stubClient{name: models.SourceCareRegistry, data: map[string]interface{}{"overallRating": "Good"}}
	places := &stubClient{name: models.SourcePlaces, data: map[string]interface{}{"rating": 4.0}}

	orch := NewOrchestrator([]SourceClient{registry, places}, 4, time.Second, logger.NewTestLogger(t))
	candidates := testCandidates("c1", "c2")
	tracker := NewTracker()

	orch.EnrichPairs(context.Background(), candidates, []Pair{
		{CandidateID: "c1", Source: models.SourcePlaces},
	}, tracker)

	assert.EqualValues(t, 0, atomic.LoadInt64(&registry.fetches))
	assert.EqualValues(t, 1, atomic.LoadInt64(&places.fetches))
	assert.False(t, candidates[0].Enrichment.Get(models.SourcePlaces).Missing)
	assert.True(t, candidates[1].Enrichment.Get(models.SourcePlaces).Missing)
}

func TestEnrichPairs_UnknownSourceRecordedAsFailure(t *testing.T) {
	orch := NewOrchestrator(nil, 4, time.Second, logger.NewTestLogger(t))
	candidates := testCandidates("c1")
	tracker := NewTracker()

	orch.EnrichPairs(context.Background(), candidates, []Pair{
		{CandidateID: "c1", Source: "no-such-source"},
	}, tracker)

	missing := tracker.Missing()
	require.Len(t, missing, 1)
	assert.Equal(t, "no-such-source", missing[0].Source)
	assert.Equal(t, "source not registered", missing[0].LastError)
}

func TestEnrichAll_CancelledContextStopsWork(t *testing.T) {
	slow := &stubClient{name: models.SourceCareRegistry, block: true}
	orch := NewOrchestrator([]SourceClient{slow}, 1, 5*time.Second, logger.NewTestLogger(t))
	candidates := testCandidates("c1", "c2", "c3")
	tracker := NewTracker()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	orch.EnrichAll(ctx, candidates, tracker)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 0.0, tracker.Completeness())
}
