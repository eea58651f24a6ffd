package models

import "time"

// JobStatus is the report job lifecycle state.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobPartial    JobStatus = "partial"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions can occur from the
// status. Partial is non-terminal: it stays open for retry sweeps until
// the deadline passes.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition enumerates the legal state machine edges. Partial is the
// only re-enterable state.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobPending:
		return to == JobProcessing || to == JobFailed
	case JobProcessing:
		return to == JobPartial || to == JobCompleted || to == JobFailed
	case JobPartial:
		return to == JobPartial || to == JobCompleted
	default:
		return false
	}
}

// OutcomeStatus is the recorded result of one (candidate, source) fetch.
type OutcomeStatus string

const (
	OutcomePending OutcomeStatus = "pending"
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
)

// SourceOutcome is a plain record of one (candidate, source) fetch
// history. The retry scheduler reads it to decide eligibility; it has no
// behavior of its own.
type SourceOutcome struct {
	CandidateID   string        `json:"candidateId"`
	Source        string        `json:"source"`
	Status        OutcomeStatus `json:"status"`
	Attempts      int           `json:"attempts"`
	LastError     string        `json:"lastError,omitempty"`
	LastAttemptAt time.Time     `json:"lastAttemptAt"`
	LatencyMS     int64         `json:"latencyMs,omitempty"`
}

// CategoryScore is one category's contribution to a match result.
type CategoryScore struct {
	Category  Category `json:"category"`
	Points    float64  `json:"points"`
	MaxPoints float64  `json:"maxPoints"`
	FromData  bool     `json:"fromData"`
}

// MatchResult is the scored outcome for one candidate. It is recomputed,
// never mutated, when enrichment changes materially.
type MatchResult struct {
	CandidateID    string          `json:"candidateId"`
	CandidateName  string          `json:"candidateName,omitempty"`
	TotalScore     float64         `json:"totalScore"`
	CategoryScores []CategoryScore `json:"categoryScores"`
	MissingSources int             `json:"missingSources"`
	LowConfidence  bool            `json:"lowConfidence"`
}

// ReportJob is the persisted state of one matching request.
type ReportJob struct {
	ID                  string           `json:"id"`
	Status              JobStatus        `json:"status"`
	CreatedAt           time.Time        `json:"createdAt"`
	DeadlineAt          time.Time        `json:"deadlineAt"`
	PoolRef             string           `json:"poolRef"`
	Profile             ApplicantProfile `json:"profile"`
	Weights             WeightVector     `json:"weights"`
	Candidates          []Candidate      `json:"candidates,omitempty"`
	Results             []MatchResult    `json:"results,omitempty"`
	MissingSources      []SourceOutcome  `json:"missingSources,omitempty"`
	CompletenessPercent float64          `json:"completenessPercent"`
	CancelRequested     bool             `json:"cancelRequested,omitempty"`
	FailureReason       string           `json:"failureReason,omitempty"`
}

// IsPartial reports whether results were produced with missing data.
func (j *ReportJob) IsPartial() bool {
	return j.Status == JobPartial
}

// PastDeadline reports whether the retry budget has been exhausted.
func (j *ReportJob) PastDeadline(now time.Time) bool {
	return now.After(j.DeadlineAt)
}

// FindCandidate returns the stored candidate with the given id.
func (j *ReportJob) FindCandidate(id string) *Candidate {
	for i := range j.Candidates {
		if j.Candidates[i].ID == id {
			return &j.Candidates[i]
		}
	}
	return nil
}
