package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"aisocial/internal/domain"
)

// ContentStore implements domain.ContentRepository and lets tests play the
// part of the remote job that writes generated_content rows.
type ContentStore struct {
	mu    sync.Mutex
	items []domain.GeneratedContent
}

func NewContentStore() *ContentStore {
	return &ContentStore{}
}

// Put inserts or replaces c by id and returns the stored record.
func (s *ContentStore) Put(c domain.GeneratedContent) domain.GeneratedContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	for i := range s.items {
		if s.items[i].ID == c.ID {
			s.items[i] = c
			return c
		}
	}
	s.items = append(s.items, c)
	return c
}

func (s *ContentStore) LatestSince(_ context.Context, ownerID, workflowID string, since time.Time) (*domain.GeneratedContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.GeneratedContent
	for i := range s.items {
		c := s.items[i]
		if c.OwnerID != ownerID || c.CreatedAt.Before(since) {
			continue
		}
		if c.WorkflowID != "" && c.WorkflowID != workflowID {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			cp := c
			latest = &cp
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

var _ domain.ContentRepository = (*ContentStore)(nil)
