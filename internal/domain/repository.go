package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// WorkflowRepository persists workflow definitions.
type WorkflowRepository interface {
	Create(ctx context.Context, wf *Workflow) error
	GetByID(ctx context.Context, id string) (*Workflow, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]Workflow, error)
	// ListActive returns active workflows ordered by id, starting after afterID.
	ListActive(ctx context.Context, afterID string, limit int) ([]Workflow, error)
	UpdateRecurrence(ctx context.Context, id string, cfg ScheduleConfig, timezone string) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	MarkRun(ctx context.Context, id string, at time.Time) error
	SetNextRun(ctx context.Context, id string, at *time.Time) error
}

// ScheduledPostRepository stores materialized run instants.
type ScheduledPostRepository interface {
	// Materialize inserts one scheduled row per instant as a single atomic batch.
	Materialize(ctx context.Context, workflowID, ownerID string, instants []time.Time, platforms []string, snapshot ScheduleSnapshot) ([]ScheduledPost, error)
	// ClearPending deletes the workflow's rows still in the scheduled state.
	ClearPending(ctx context.Context, workflowID string) (int64, error)
	ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]ScheduledPost, error)
	// ClaimDue moves due scheduled rows to processing and returns them ordered by scheduled_at.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]ScheduledPost, error)
	MarkResult(ctx context.Context, id string, status ScheduledPostStatus, errMsg string) error
}

// CreditLedger is the append-only credit log with a derived balance per account.
type CreditLedger interface {
	Account(ctx context.Context, ownerID string) (*CreditAccount, error)
	// Apply records a purchase, refund or adjustment and moves the balance by tx.Amount.
	Apply(ctx context.Context, tx CreditTransaction) (*CreditTransaction, error)
	// Reserve places a hold of amount for reservationID, failing with
	// ErrInsufficientCredits when the available balance is too low.
	Reserve(ctx context.Context, ownerID string, amount decimal.Decimal, reservationID string) (*CreditReservation, error)
	// Capture turns a hold into a generation debit linked to contentID. It is
	// idempotent per reservation. A content id already billed by another
	// reservation fails with ErrDuplicateOperation and leaves the hold open.
	Capture(ctx context.Context, reservationID, contentID, description string) (*CreditTransaction, error)
	// Release drops a hold without touching the balance.
	Release(ctx context.Context, reservationID string) error
	Transactions(ctx context.Context, ownerID string, limit int) ([]CreditTransaction, error)
}

// ContentRepository reads generated content records.
type ContentRepository interface {
	// LatestSince returns the newest record owned by ownerID created at or
	// after since. Records tagged with another workflow are skipped; untagged
	// records match any workflow of the owner.
	LatestSince(ctx context.Context, ownerID, workflowID string, since time.Time) (*GeneratedContent, error)
}

// RunRepository records in-flight runs where every process can see them, so
// a workflow has at most one active run across the API and the worker.
type RunRepository interface {
	// Begin records run as the workflow's active run. It fails with
	// ErrRunInProgress while another run started at or after staleBefore holds
	// the workflow; older holders are closed as abandoned.
	Begin(ctx context.Context, run ActiveRun, staleBefore time.Time) error
	UpdateStage(ctx context.Context, runID string, stage RunStage, message string) error
	// Finish closes the run with its terminal stage and frees the workflow.
	Finish(ctx context.Context, runID string, stage RunStage, message string) error
	// Active returns the workflow's active run or ErrNotFound.
	Active(ctx context.Context, workflowID string) (*ActiveRun, error)
	ListActiveByOwner(ctx context.Context, ownerID string) ([]ActiveRun, error)
}
