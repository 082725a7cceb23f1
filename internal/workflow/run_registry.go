package workflow

import (
	"sort"
	"sync"

	"aisocial/internal/domain"
)

// ActiveRun is the live state of one in-flight execution.
type ActiveRun = domain.ActiveRun

// RunRegistry tracks at most one active run per workflow id inside this
// process. A domain.RunRepository extends the claim across processes.
type RunRegistry struct {
	mu   sync.Mutex
	runs map[string]*ActiveRun
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{runs: map[string]*ActiveRun{}}
}

// Acquire claims the workflow for run. It fails with domain.ErrRunInProgress
// while another run holds the claim. The returned func releases it.
func (r *RunRegistry) Acquire(run ActiveRun) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.runs[run.WorkflowID]; busy {
		return nil, domain.ErrRunInProgress
	}
	if run.Stage == "" {
		run.Stage = domain.StageIdle
	}
	r.runs[run.WorkflowID] = &run

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if cur, ok := r.runs[run.WorkflowID]; ok && cur.RunID == run.RunID {
				delete(r.runs, run.WorkflowID)
			}
			r.mu.Unlock()
		})
	}, nil
}

// Update records the stage of runID if it still owns its workflow.
func (r *RunRegistry) Update(workflowID, runID string, stage domain.RunStage, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.runs[workflowID]; ok && cur.RunID == runID {
		cur.Stage = stage
		cur.Message = message
	}
}

// Get returns the active run of workflowID.
func (r *RunRegistry) Get(workflowID string) (ActiveRun, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.runs[workflowID]
	if !ok {
		return ActiveRun{}, false
	}
	return *cur, true
}

// ListByOwner returns the owner's active runs, oldest first.
func (r *RunRegistry) ListByOwner(ownerID string) []ActiveRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ActiveRun
	for _, run := range r.runs {
		if run.OwnerID == ownerID {
			out = append(out, *run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}
