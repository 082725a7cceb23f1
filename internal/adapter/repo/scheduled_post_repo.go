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

// ScheduledPostRepositoryPG implements domain.ScheduledPostRepository.
type ScheduledPostRepositoryPG struct {
	sql infra.TxRunner
}

// NewScheduledPostRepository creates a repository that materializes batches in a transaction.
func NewScheduledPostRepository(sql infra.TxRunner) *ScheduledPostRepositoryPG {
	return &ScheduledPostRepositoryPG{sql: sql}
}

// Materialize inserts one scheduled row per instant. Either every row is
// written or none is.
func (r *ScheduledPostRepositoryPG) Materialize(ctx context.Context, workflowID, ownerID string, instants []time.Time, platforms []string, snapshot domain.ScheduleSnapshot) ([]domain.ScheduledPost, error) {
	if len(instants) == 0 {
		return nil, nil
	}
	meta, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if platforms == nil {
		platforms = []string{}
	}

	posts := make([]domain.ScheduledPost, 0, len(instants))
	err = r.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		for _, at := range instants {
			post := domain.ScheduledPost{
				WorkflowID:  workflowID,
				OwnerID:     ownerID,
				ScheduledAt: at,
				Status:      domain.ScheduledPostStatusScheduled,
				Platforms:   platforms,
				Metadata:    snapshot,
			}
			row := tx.QueryRow(ctx, sqlinline.QInsertScheduledPost, workflowID, ownerID, at, platforms, meta)
			if err := row.Scan(&post.ID, &post.CreatedAt); err != nil {
				return fmt.Errorf("insert scheduled post at %s: %w", at.Format(time.RFC3339), err)
			}
			posts = append(posts, post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// ClearPending deletes rows still waiting to run. Processed rows are history
// and stay untouched.
func (r *ScheduledPostRepositoryPG) ClearPending(ctx context.Context, workflowID string) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeletePendingScheduledPosts, workflowID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByWorkflow returns the workflow's posts ordered by scheduled time.
func (r *ScheduledPostRepositoryPG) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]domain.ScheduledPost, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListScheduledPostsByWorkflow, workflowID, limit)
	if err != nil {
		return nil, err
	}
	return collectScheduledPosts(rows)
}

// ClaimDue moves up to limit due posts to processing. Concurrent workers skip
// rows another worker has locked.
func (r *ScheduledPostRepositoryPG) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledPost, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.sql.Query(ctx, sqlinline.QClaimDueScheduledPosts, now, limit)
	if err != nil {
		return nil, err
	}
	return collectScheduledPosts(rows)
}

// MarkResult stores the terminal status of a processed post.
func (r *ScheduledPostRepositoryPG) MarkResult(ctx context.Context, id string, status domain.ScheduledPostStatus, errMsg string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkScheduledPostResult, id, string(status), errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectScheduledPosts(rows pgx.Rows) ([]domain.ScheduledPost, error) {
	defer rows.Close()
	var out []domain.ScheduledPost
	for rows.Next() {
		var (
			post   domain.ScheduledPost
			status string
			meta   []byte
		)
		if err := rows.Scan(
			&post.ID,
			&post.WorkflowID,
			&post.OwnerID,
			&post.ScheduledAt,
			&status,
			&post.Platforms,
			&meta,
			&post.ErrorMessage,
			&post.CreatedAt,
		); err != nil {
			return nil, err
		}
		post.Status = domain.ScheduledPostStatus(status)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &post.Metadata); err != nil {
				return nil, fmt.Errorf("decode scheduled post metadata: %w", err)
			}
		}
		out = append(out, post)
	}
	return out, rows.Err()
}
