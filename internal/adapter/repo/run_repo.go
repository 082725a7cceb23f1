package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"aisocial/internal/domain"
	"aisocial/internal/infra"
	"aisocial/internal/sqlinline"
)

// RunRepositoryPG keeps one workflow_runs row per execution. The partial
// unique index on running rows is the cross-process run lock.
type RunRepositoryPG struct {
	sql infra.TxRunner
}

func NewRunRepository(sql infra.TxRunner) *RunRepositoryPG {
	return &RunRepositoryPG{sql: sql}
}

// Begin closes abandoned holders and inserts run as the running row.
func (r *RunRepositoryPG) Begin(ctx context.Context, run domain.ActiveRun, staleBefore time.Time) error {
	return r.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		if _, err := tx.Exec(ctx, sqlinline.QAbandonStaleWorkflowRun, run.WorkflowID, staleBefore); err != nil {
			return err
		}
		stage := run.Stage
		if stage == "" {
			stage = domain.StageIdle
		}
		_, err := tx.Exec(ctx, sqlinline.QInsertWorkflowRun,
			run.RunID, run.WorkflowID, run.OwnerID, string(run.Trigger), string(stage), run.StartedAt)
		if infra.IsUniqueViolation(err) {
			return domain.ErrRunInProgress
		}
		return err
	})
}

func (r *RunRepositoryPG) UpdateStage(ctx context.Context, runID string, stage domain.RunStage, message string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateWorkflowRunStage, runID, string(stage), message)
	return err
}

func (r *RunRepositoryPG) Finish(ctx context.Context, runID string, stage domain.RunStage, message string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QFinishWorkflowRun, runID, string(stage), message)
	return err
}

func (r *RunRepositoryPG) Active(ctx context.Context, workflowID string) (*domain.ActiveRun, error) {
	run, err := scanActiveRun(r.sql.QueryRow(ctx, sqlinline.QSelectRunningWorkflowRun, workflowID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

func (r *RunRepositoryPG) ListActiveByOwner(ctx context.Context, ownerID string) ([]domain.ActiveRun, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListRunningWorkflowRunsByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ActiveRun
	for rows.Next() {
		run, err := scanActiveRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func scanActiveRun(row pgx.Row) (*domain.ActiveRun, error) {
	var (
		run     domain.ActiveRun
		trigger string
		stage   string
	)
	if err := row.Scan(&run.RunID, &run.WorkflowID, &run.OwnerID, &trigger, &stage, &run.Message, &run.StartedAt); err != nil {
		return nil, err
	}
	run.Trigger = domain.RunTrigger(trigger)
	run.Stage = domain.RunStage(stage)
	return &run, nil
}
