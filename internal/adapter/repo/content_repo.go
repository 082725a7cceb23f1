package repo

import (
	"context"
	"time"

	"aisocial/internal/domain"
	"aisocial/internal/infra"
	"aisocial/internal/sqlinline"
)

// ContentRepositoryPG reads generated_content rows written by the remote job.
type ContentRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewContentRepository(sql infra.SQLExecutor) *ContentRepositoryPG {
	return &ContentRepositoryPG{sql: sql}
}

// LatestSince returns the newest unbilled content of the owner for
// workflowID created at or after since.
func (r *ContentRepositoryPG) LatestSince(ctx context.Context, ownerID, workflowID string, since time.Time) (*domain.GeneratedContent, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectLatestContentSince, ownerID, workflowID, since)
	var (
		c           domain.GeneratedContent
		contentType string
		status      string
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.WorkflowID, &contentType, &status, &c.MediaURL, &c.ErrorMessage, &c.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c.Type = domain.ContentType(contentType)
	c.Status = domain.ContentStatus(status)
	return &c, nil
}
