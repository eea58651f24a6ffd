package jobs

import (
	"context"
	"encoding/json"
	"time"

	stderrors "carematch-engine/internal/common/errors"
	"carematch-engine/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix    = "report:job:"
	statusKeyPrefix = "report:jobs:"
)

// RedisStore keeps jobs as JSON values with a retention TTL, plus one
// set per status for sweep queries.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

func jobKey(id string) string                  { return jobKeyPrefix + id }
func statusKey(status models.JobStatus) string { return statusKeyPrefix + string(status) }
func allStatusKeys() []string {
	statuses := []models.JobStatus{
		models.JobPending, models.JobProcessing, models.JobPartial,
		models.JobCompleted, models.JobFailed,
	}
	keys := make([]string, len(statuses))
	for i, s := range statuses {
		keys[i] = statusKey(s)
	}
	return keys
}

func (s *RedisStore) Save(ctx context.Context, job *models.ReportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return stderrors.NewJobStoreFailedError("marshal", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), data, s.retention)
	for _, key := range allStatusKeys() {
		if key == statusKey(job.Status) {
			pipe.SAdd(ctx, key, job.ID)
		} else {
			pipe.SRem(ctx, key, job.ID)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return stderrors.NewJobStoreFailedError("save", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.ReportJob, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Result()
	if err == redis.Nil {
		return nil, stderrors.NewJobNotFoundError(id)
	}
	if err != nil {
		return nil, stderrors.NewJobStoreFailedError("get", err)
	}

	var job models.ReportJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, stderrors.NewJobStoreFailedError("unmarshal", err)
	}
	return &job, nil
}

// ListByStatus resolves the status index set. Ids whose job key has
// already expired under the retention TTL are dropped from the set on
// the way through.
func (s *RedisStore) ListByStatus(ctx context.Context, status models.JobStatus) ([]*models.ReportJob, error) {
	ids, err := s.client.SMembers(ctx, statusKey(status)).Result()
	if err != nil {
		return nil, stderrors.NewJobStoreFailedError("list", err)
	}

	jobs := make([]*models.ReportJob, 0, len(ids))
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if err != nil {
			if stdErr, ok := err.(*stderrors.StandardError); ok && stdErr.Code == stderrors.ErrCodeJobNotFound {
				s.client.SRem(ctx, statusKey(status), id)
				continue
			}
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, jobKey(id))
	for _, key := range allStatusKeys() {
		pipe.SRem(ctx, key, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return stderrors.NewJobStoreFailedError("delete", err)
	}
	return nil
}
