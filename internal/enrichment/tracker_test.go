package enrichment

import (
	"testing"
	"time"

	"carematch-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_SeedStartsAllPending(t *testing.T) {
	tracker := NewTracker()
	tracker.Seed([]string{"c1", "c2"}, []string{"care-registry", "places"})

	outcomes := tracker.Outcomes()
	require.Len(t, outcomes, 4)
	for _, o := range outcomes {
		assert.Equal(t, models.OutcomePending, o.Status)
		assert.Zero(t, o.Attempts)
	}
	assert.Equal(t, 0.0, tracker.Completeness())
}

func TestTracker_RecordSuccessAndFailure(t *testing.T) {
	tracker := NewTracker()
	tracker.Seed([]string{"c1"}, []string{"care-registry", "places"})

	tracker.RecordSuccess("c1", "care-registry", 120*time.Millisecond)
	tracker.RecordFailure("c1", "places", "connection refused", 40*time.Millisecond)

	assert.Equal(t, 50.0, tracker.Completeness())

	missing := tracker.Missing()
	require.Len(t, missing, 1)
	assert.Equal(t, "places", missing[0].Source)
	assert.Equal(t, models.OutcomeFailure, missing[0].Status)
	assert.Equal(t, 1, missing[0].Attempts)
	assert.Equal(t, "connection refused", missing[0].LastError)
}

func TestTracker_AttemptsAccumulateAcrossRetries(t *testing.T) {
	tracker := NewTracker()
	tracker.Seed([]string{"c1"}, []string{"places"})

	tracker.RecordFailure("c1", "places", "timeout", 0)
	tracker.RecordFailure("c1", "places", "timeout", 0)
	tracker.RecordSuccess("c1", "places", 90*time.Millisecond)

	outcomes := tracker.Outcomes()
	require.Len(t, outcomes, 1)
	assert.Equal(t, 3, outcomes[0].Attempts)
	assert.Equal(t, models.OutcomeSuccess, outcomes[0].Status)
	assert.Equal(t, 100.0, tracker.Completeness())
}

func TestTracker_ImportPreservesAttemptCounts(t *testing.T) {
	tracker := NewTracker()
	tracker.Import([]models.SourceOutcome{
		{CandidateID: "c1", Source: "places", Status: models.OutcomeFailure, Attempts: 2, LastError: "timeout"},
	})

	tracker.RecordFailure("c1", "places", "timeout again", 0)

	outcomes := tracker.Outcomes()
	require.Len(t, outcomes, 1)
	assert.Equal(t, 3, outcomes[0].Attempts)
}

func TestTracker_MissingSortedDeterministically(t *testing.T) {
	tracker := NewTracker()
	tracker.Seed([]string{"c2", "c1"}, []string{"places", "care-registry"})

	missing := tracker.Missing()
	require.Len(t, missing, 4)
	assert.Equal(t, "c1", missing[0].CandidateID)
	assert.Equal(t, "care-registry", missing[0].Source)
	assert.Equal(t, "c2", missing[3].CandidateID)
	assert.Equal(t, "places", missing[3].Source)
}

func TestTracker_EmptyReadsAsComplete(t *testing.T) {
	assert.Equal(t, 100.0, NewTracker().Completeness())
}
