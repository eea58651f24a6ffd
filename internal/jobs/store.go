// Package jobs owns the report job lifecycle: submission, asynchronous
// processing, status and result queries, and persistence.
package jobs

import (
	"context"

	"carematch-engine/internal/models"
)

// Store persists report jobs. Implementations must return a
// JOB_NOT_FOUND standard error from Get for unknown ids.
type Store interface {
	Save(ctx context.Context, job *models.ReportJob) error
	Get(ctx context.Context, id string) (*models.ReportJob, error)
	ListByStatus(ctx context.Context, status models.JobStatus) ([]*models.ReportJob, error)
	Delete(ctx context.Context, id string) error
}
