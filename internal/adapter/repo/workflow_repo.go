package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"aisocial/internal/domain"
	"aisocial/internal/infra"
	"aisocial/internal/sqlinline"
)

const defaultListLimit = 50

// WorkflowRepositoryPG implements domain.WorkflowRepository backed by PostgreSQL.
type WorkflowRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewWorkflowRepository creates a new WorkflowRepositoryPG.
func NewWorkflowRepository(sql infra.SQLExecutor) *WorkflowRepositoryPG {
	return &WorkflowRepositoryPG{sql: sql}
}

// Create inserts wf and fills its generated id and timestamps.
func (r *WorkflowRepositoryPG) Create(ctx context.Context, wf *domain.Workflow) error {
	params, err := json.Marshal(wf.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	recurrence, err := json.Marshal(wf.Recurrence)
	if err != nil {
		return fmt.Errorf("encode recurrence: %w", err)
	}
	platforms := wf.Platforms
	if platforms == nil {
		platforms = []string{}
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertWorkflow,
		wf.OwnerID,
		wf.Name,
		string(wf.ContentType),
		wf.PromptTemplate,
		platforms,
		params,
		recurrence,
		wf.Timezone,
		wf.Active,
	)
	return row.Scan(&wf.ID, &wf.CreatedAt, &wf.UpdatedAt)
}

// GetByID fetches a workflow by UUID.
func (r *WorkflowRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Workflow, error) {
	wf, err := scanWorkflow(r.sql.QueryRow(ctx, sqlinline.QSelectWorkflowByID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return wf, nil
}

// ListByOwner returns the owner's workflows, newest first.
func (r *WorkflowRepositoryPG) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Workflow, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListWorkflowsByOwner, ownerID, limit)
	if err != nil {
		return nil, err
	}
	return collectWorkflows(rows)
}

// ListActive pages through active workflows by id.
func (r *WorkflowRepositoryPG) ListActive(ctx context.Context, afterID string, limit int) ([]domain.Workflow, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListActiveWorkflows, afterID, limit)
	if err != nil {
		return nil, err
	}
	return collectWorkflows(rows)
}

// UpdateRecurrence replaces the recurrence and timezone of a workflow.
func (r *WorkflowRepositoryPG) UpdateRecurrence(ctx context.Context, id string, cfg domain.ScheduleConfig, timezone string) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode recurrence: %w", err)
	}
	return r.execOne(ctx, sqlinline.QUpdateWorkflowRecurrence, id, raw, timezone)
}

// SetActive toggles the workflow. Deactivation also clears next_run_at.
func (r *WorkflowRepositoryPG) SetActive(ctx context.Context, id string, active bool) error {
	return r.execOne(ctx, sqlinline.QSetWorkflowActive, id, active)
}

// Delete removes the workflow; its scheduled posts cascade.
func (r *WorkflowRepositoryPG) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, sqlinline.QDeleteWorkflow, id)
}

// MarkRun records the finish time of the latest successful run.
func (r *WorkflowRepositoryPG) MarkRun(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, sqlinline.QMarkWorkflowRun, id, at)
}

// SetNextRun stores the next materialized instant, or null.
func (r *WorkflowRepositoryPG) SetNextRun(ctx context.Context, id string, at *time.Time) error {
	return r.execOne(ctx, sqlinline.QSetWorkflowNextRun, id, at)
}

func (r *WorkflowRepositoryPG) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.sql.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectWorkflows(rows pgx.Rows) ([]domain.Workflow, error) {
	defer rows.Close()
	var out []domain.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *wf)
	}
	return out, rows.Err()
}

func scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var (
		wf          domain.Workflow
		contentType string
		params      []byte
		recurrence  []byte
	)
	if err := row.Scan(
		&wf.ID,
		&wf.OwnerID,
		&wf.Name,
		&contentType,
		&wf.PromptTemplate,
		&wf.Platforms,
		&params,
		&recurrence,
		&wf.Timezone,
		&wf.Active,
		&wf.LastRunAt,
		&wf.NextRunAt,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	); err != nil {
		return nil, err
	}
	wf.ContentType = domain.ContentType(contentType)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &wf.Params); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
	}
	if len(recurrence) > 0 {
		if err := json.Unmarshal(recurrence, &wf.Recurrence); err != nil {
			return nil, fmt.Errorf("decode recurrence: %w", err)
		}
	}
	return &wf, nil
}
