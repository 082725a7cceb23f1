package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aisocial/internal/domain"
)

func TestScheduledPostStoreClearPendingKeepsHistory(t *testing.T) {
	ctx := context.Background()
	s := NewScheduledPostStore()
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	_, err := s.Materialize(ctx, "wf", "owner", []time.Time{base, base.Add(24 * time.Hour)}, []string{"instagram"}, domain.ScheduleSnapshot{})
	require.NoError(t, err)
	done := s.Put(domain.ScheduledPost{WorkflowID: "wf", ScheduledAt: base.Add(-time.Hour), Status: domain.ScheduledPostStatusPublished})

	n, err := s.ClearPending(ctx, "wf")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	left, err := s.ListByWorkflow(ctx, "wf", 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, done.ID, left[0].ID)
}

func TestScheduledPostStoreClaimDue(t *testing.T) {
	ctx := context.Background()
	s := NewScheduledPostStore()
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	late := s.Put(domain.ScheduledPost{WorkflowID: "wf", ScheduledAt: now.Add(-time.Minute)})
	early := s.Put(domain.ScheduledPost{WorkflowID: "wf", ScheduledAt: now.Add(-time.Hour)})
	s.Put(domain.ScheduledPost{WorkflowID: "wf", ScheduledAt: now.Add(time.Hour)})

	claimed, err := s.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, early.ID, claimed[0].ID)
	assert.Equal(t, late.ID, claimed[1].ID)
	assert.Equal(t, domain.ScheduledPostStatusProcessing, claimed[0].Status)

	again, err := s.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestScheduledPostStoreInjectedFailureLeavesPartialRows(t *testing.T) {
	ctx := context.Background()
	s := NewScheduledPostStore()
	s.FailMaterializeAfter = 1
	base := time.Now().Add(time.Hour)

	_, err := s.Materialize(ctx, "wf", "owner", []time.Time{base, base.Add(time.Hour)}, nil, domain.ScheduleSnapshot{})
	require.ErrorIs(t, err, ErrInjected)

	rows, err := s.ListByWorkflow(ctx, "wf", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
