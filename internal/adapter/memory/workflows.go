// Package memory provides in-process implementations of the repository
// interfaces for tests and local runs without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"aisocial/internal/domain"
)

// WorkflowStore implements domain.WorkflowRepository.
type WorkflowStore struct {
	mu    sync.Mutex
	items map[string]domain.Workflow
	now   func() time.Time
}

func NewWorkflowStore() *WorkflowStore {
	return &WorkflowStore{items: map[string]domain.Workflow{}, now: time.Now}
}

func (s *WorkflowStore) Create(_ context.Context, wf *domain.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}
	now := s.now()
	wf.CreatedAt, wf.UpdatedAt = now, now
	s.items[wf.ID] = cloneWorkflow(*wf)
	return nil
}

func (s *WorkflowStore) GetByID(_ context.Context, id string) (*domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneWorkflow(wf)
	return &out, nil
}

func (s *WorkflowStore) ListByOwner(_ context.Context, ownerID string, limit int) ([]domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Workflow
	for _, wf := range s.items {
		if wf.OwnerID == ownerID {
			out = append(out, cloneWorkflow(wf))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *WorkflowStore) ListActive(_ context.Context, afterID string, limit int) ([]domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Workflow
	for id, wf := range s.items {
		if wf.Active && id > afterID {
			out = append(out, cloneWorkflow(wf))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *WorkflowStore) UpdateRecurrence(_ context.Context, id string, cfg domain.ScheduleConfig, timezone string) error {
	return s.update(id, func(wf *domain.Workflow) {
		wf.Recurrence = cfg
		wf.Timezone = timezone
	})
}

func (s *WorkflowStore) SetActive(_ context.Context, id string, active bool) error {
	return s.update(id, func(wf *domain.Workflow) {
		wf.Active = active
		if !active {
			wf.NextRunAt = nil
		}
	})
}

func (s *WorkflowStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *WorkflowStore) MarkRun(_ context.Context, id string, at time.Time) error {
	return s.update(id, func(wf *domain.Workflow) { wf.LastRunAt = &at })
}

func (s *WorkflowStore) SetNextRun(_ context.Context, id string, at *time.Time) error {
	return s.update(id, func(wf *domain.Workflow) {
		if at == nil {
			wf.NextRunAt = nil
			return
		}
		t := *at
		wf.NextRunAt = &t
	})
}

func (s *WorkflowStore) update(id string, fn func(wf *domain.Workflow)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&wf)
	wf.UpdatedAt = s.now()
	s.items[id] = wf
	return nil
}

func cloneWorkflow(wf domain.Workflow) domain.Workflow {
	wf.Platforms = append([]string(nil), wf.Platforms...)
	wf.Recurrence.Times = append([]string(nil), wf.Recurrence.Times...)
	wf.Recurrence.Days = append([]string(nil), wf.Recurrence.Days...)
	return wf
}

var _ domain.WorkflowRepository = (*WorkflowStore)(nil)
