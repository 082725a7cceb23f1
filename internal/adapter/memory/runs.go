package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"aisocial/internal/domain"
)

// RunStore implements domain.RunRepository. Sharing one store between
// executors stands in for the workflow_runs table shared by processes.
type RunStore struct {
	mu       sync.Mutex
	running  map[string]domain.ActiveRun // by workflow id
	finished map[string]domain.ActiveRun // by run id
}

func NewRunStore() *RunStore {
	return &RunStore{
		running:  map[string]domain.ActiveRun{},
		finished: map[string]domain.ActiveRun{},
	}
}

func (s *RunStore) Begin(_ context.Context, run domain.ActiveRun, staleBefore time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, busy := s.running[run.WorkflowID]; busy {
		if !cur.StartedAt.Before(staleBefore) {
			return domain.ErrRunInProgress
		}
		cur.Stage, cur.Message = domain.StageFailed, "abandoned"
		s.finished[cur.RunID] = cur
	}
	if run.Stage == "" {
		run.Stage = domain.StageIdle
	}
	s.running[run.WorkflowID] = run
	return nil
}

func (s *RunStore) UpdateStage(_ context.Context, runID string, stage domain.RunStage, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for wfID, run := range s.running {
		if run.RunID == runID {
			run.Stage, run.Message = stage, message
			s.running[wfID] = run
		}
	}
	return nil
}

func (s *RunStore) Finish(_ context.Context, runID string, stage domain.RunStage, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for wfID, run := range s.running {
		if run.RunID == runID {
			run.Stage, run.Message = stage, message
			s.finished[runID] = run
			delete(s.running, wfID)
		}
	}
	return nil
}

func (s *RunStore) Active(_ context.Context, workflowID string) (*domain.ActiveRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.running[workflowID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

func (s *RunStore) ListActiveByOwner(_ context.Context, ownerID string) ([]domain.ActiveRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ActiveRun
	for _, run := range s.running {
		if run.OwnerID == ownerID {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// Finished returns the closed run, for assertions.
func (s *RunStore) Finished(runID string) (domain.ActiveRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.finished[runID]
	return run, ok
}

var _ domain.RunRepository = (*RunStore)(nil)
