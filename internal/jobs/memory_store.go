package jobs

import (
	"context"
	"encoding/json"
	"sync"

	stderrors "carematch-engine/internal/common/errors"
	"carematch-engine/internal/models"
)

// MemoryStore is an in-process store for tests and single-node
// development runs. Jobs are deep-copied through JSON on the way in and
// out so callers never share mutable state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string][]byte)}
}

func (s *MemoryStore) Save(ctx context.Context, job *models.ReportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return stderrors.NewJobStoreFailedError("marshal", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = data
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.ReportJob, error) {
	s.mu.RLock()
	data, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, stderrors.NewJobNotFoundError(id)
	}
	var job models.ReportJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, stderrors.NewJobStoreFailedError("unmarshal", err)
	}
	return &job, nil
}

func (s *MemoryStore) ListByStatus(ctx context.Context, status models.JobStatus) ([]*models.ReportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ReportJob
	for _, data := range s.jobs {
		var job models.ReportJob
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, stderrors.NewJobStoreFailedError("unmarshal", err)
		}
		if job.Status == status {
			out = append(out, &job)
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}
