package domain

import "time"

// RunStage is a state of the workflow executor.
type RunStage string

const (
	StageIdle           RunStage = "idle"
	StageAdmissionCheck RunStage = "admission_check"
	StagePreparing      RunStage = "preparing"
	StageGenerating     RunStage = "generating"
	StagePublishing     RunStage = "publishing"
	StageCompleted      RunStage = "completed"
	StageFailed         RunStage = "failed"
)

// Terminal reports whether the stage ends a run.
func (s RunStage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// RunTrigger records what started a run.
type RunTrigger string

const (
	TriggerManual    RunTrigger = "manual"
	TriggerScheduled RunTrigger = "scheduled"
)

// RunOutcome classifies a terminal run for the caller.
type RunOutcome string

const (
	OutcomeSuccess RunOutcome = "success"
	OutcomePartial RunOutcome = "partial"
	OutcomeFailed  RunOutcome = "failed"
)

// NotifyLevel mirrors the info/success/error toast levels of a UI.
type NotifyLevel string

const (
	LevelInfo    NotifyLevel = "info"
	LevelSuccess NotifyLevel = "success"
	LevelError   NotifyLevel = "error"
)

// ProgressEvent is emitted on every stage transition and periodically while
// generating.
type ProgressEvent struct {
	RunID      string        `json:"run_id"`
	WorkflowID string        `json:"workflow_id"`
	OwnerID    string        `json:"owner_id"`
	Stage      RunStage      `json:"stage"`
	Level      NotifyLevel   `json:"level"`
	Message    string        `json:"message"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	At         time.Time     `json:"at"`
}

// ActiveRun is the live state of one in-flight execution.
type ActiveRun struct {
	RunID      string     `json:"run_id"`
	WorkflowID string     `json:"workflow_id"`
	OwnerID    string     `json:"owner_id"`
	Trigger    RunTrigger `json:"trigger"`
	Stage      RunStage   `json:"stage"`
	Message    string     `json:"message"`
	StartedAt  time.Time  `json:"started_at"`
}

// PublishOutcome is the per-platform publish result of the remote job.
type PublishOutcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// JobResult is what the remote generation/publish invocation resolves with.
type JobResult struct {
	Publish map[string]PublishOutcome
	Error   string
}

// RunResult is the terminal report of one workflow execution.
type RunResult struct {
	RunID      string
	WorkflowID string
	Trigger    RunTrigger
	Stage      RunStage
	Outcome    RunOutcome
	Message    string
	Reason     string
	ContentID  string
	MediaURL   string
	Publish    map[string]PublishOutcome
	StartedAt  time.Time
	Elapsed    time.Duration
}

// Failed reports whether the run ended in the failed state.
func (r RunResult) Failed() bool {
	return r.Stage == StageFailed
}
