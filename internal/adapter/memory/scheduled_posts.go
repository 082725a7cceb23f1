package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"aisocial/internal/domain"
)

// ErrInjected is returned by ScheduledPostStore when a failure is injected.
var ErrInjected = errors.New("memory: injected failure")

// ScheduledPostStore implements domain.ScheduledPostRepository.
//
// FailMaterializeAfter simulates a store without transactions: when set to
// n > 0, Materialize writes n rows and then fails, leaving them behind.
type ScheduledPostStore struct {
	mu    sync.Mutex
	items map[string]domain.ScheduledPost

	FailMaterializeAfter int
}

func NewScheduledPostStore() *ScheduledPostStore {
	return &ScheduledPostStore{items: map[string]domain.ScheduledPost{}}
}

func (s *ScheduledPostStore) Materialize(_ context.Context, workflowID, ownerID string, instants []time.Time, platforms []string, snapshot domain.ScheduleSnapshot) ([]domain.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ScheduledPost, 0, len(instants))
	for i, at := range instants {
		if s.FailMaterializeAfter > 0 && i == s.FailMaterializeAfter {
			return nil, ErrInjected
		}
		post := domain.ScheduledPost{
			ID:          uuid.NewString(),
			WorkflowID:  workflowID,
			OwnerID:     ownerID,
			ScheduledAt: at,
			Status:      domain.ScheduledPostStatusScheduled,
			Platforms:   append([]string(nil), platforms...),
			Metadata:    snapshot,
			CreatedAt:   time.Now(),
		}
		s.items[post.ID] = post
		out = append(out, post)
	}
	return out, nil
}

func (s *ScheduledPostStore) ClearPending(_ context.Context, workflowID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.items {
		if p.WorkflowID == workflowID && p.Status == domain.ScheduledPostStatusScheduled {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

func (s *ScheduledPostStore) ListByWorkflow(_ context.Context, workflowID string, limit int) ([]domain.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ScheduledPost
	for _, p := range s.items {
		if p.WorkflowID == workflowID {
			out = append(out, p)
		}
	}
	sortPosts(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ScheduledPostStore) ClaimDue(_ context.Context, now time.Time, limit int) ([]domain.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []domain.ScheduledPost
	for _, p := range s.items {
		if p.Status == domain.ScheduledPostStatusScheduled && !p.ScheduledAt.After(now) {
			due = append(due, p)
		}
	}
	sortPosts(due)
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	for i := range due {
		due[i].Status = domain.ScheduledPostStatusProcessing
		s.items[due[i].ID] = due[i]
	}
	return due, nil
}

func (s *ScheduledPostStore) MarkResult(_ context.Context, id string, status domain.ScheduledPostStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	p.ErrorMessage = errMsg
	s.items[id] = p
	return nil
}

// Put stores p as is; tests use it to seed due posts.
func (s *ScheduledPostStore) Put(p domain.ScheduledPost) domain.ScheduledPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.ScheduledPostStatusScheduled
	}
	s.items[p.ID] = p
	return p
}

func sortPosts(posts []domain.ScheduledPost) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].ScheduledAt.Equal(posts[j].ScheduledAt) {
			return posts[i].ID < posts[j].ID
		}
		return posts[i].ScheduledAt.Before(posts[j].ScheduledAt)
	})
}

var _ domain.ScheduledPostRepository = (*ScheduledPostStore)(nil)
