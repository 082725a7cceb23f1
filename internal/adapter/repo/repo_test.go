package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"aisocial/internal/domain"
	"aisocial/internal/sqlinline"
)

func TestWorkflowGetByIDMapsNoRows(t *testing.T) {
	sql := newStubSQL()
	r := NewWorkflowRepository(sql)

	_, err := r.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWorkflowSetActiveMissingRow(t *testing.T) {
	sql := newStubSQL()
	sql.tags[sqlinline.QSetWorkflowActive] = pgconn.NewCommandTag("UPDATE 0")
	r := NewWorkflowRepository(sql)

	if err := r.SetActive(context.Background(), "wf-1", false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScheduledPostMaterializeRunsInOneTransaction(t *testing.T) {
	sql := newStubSQL()
	created := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	for _, id := range []string{"p1", "p2"} {
		id := id
		sql.push(sqlinline.QInsertScheduledPost, stubRow{scan: func(dest ...any) error {
			*dest[0].(*string) = id
			*dest[1].(*time.Time) = created
			return nil
		}})
	}
	r := NewScheduledPostRepository(sql)

	instants := []time.Time{created.Add(time.Hour), created.Add(25 * time.Hour)}
	posts, err := r.Materialize(context.Background(), "wf-1", "owner-1", instants, []string{"instagram"}, domain.ScheduleSnapshot{Frequency: domain.FrequencyDaily})
	if err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}
	if sql.txBegun != 1 {
		t.Fatalf("expected one transaction, got %d", sql.txBegun)
	}
	if len(posts) != 2 || posts[0].ID != "p1" || posts[1].ID != "p2" {
		t.Fatalf("unexpected posts: %+v", posts)
	}
	if posts[1].Status != domain.ScheduledPostStatusScheduled || !posts[1].ScheduledAt.Equal(instants[1]) {
		t.Fatalf("unexpected post state: %+v", posts[1])
	}
}

func TestScheduledPostMaterializeAbortsOnInsertError(t *testing.T) {
	sql := newStubSQL()
	sql.push(sqlinline.QInsertScheduledPost,
		stubRow{scan: func(dest ...any) error { *dest[0].(*string) = "p1"; return nil }},
		stubRow{err: errStub},
	)
	r := NewScheduledPostRepository(sql)

	now := time.Now()
	_, err := r.Materialize(context.Background(), "wf-1", "owner-1", []time.Time{now.Add(time.Hour), now.Add(2 * time.Hour)}, nil, domain.ScheduleSnapshot{})
	if !errors.Is(err, errStub) {
		t.Fatalf("expected insert error to propagate, got %v", err)
	}
	if sql.txAborted != 1 {
		t.Fatalf("expected transaction rollback, got %d", sql.txAborted)
	}
}

func TestScheduledPostMaterializeEmpty(t *testing.T) {
	sql := newStubSQL()
	posts, err := NewScheduledPostRepository(sql).Materialize(context.Background(), "wf", "o", nil, nil, domain.ScheduleSnapshot{})
	if err != nil || posts != nil {
		t.Fatalf("expected no-op, got %v %v", posts, err)
	}
	if sql.txBegun != 0 {
		t.Fatal("empty batch must not open a transaction")
	}
}

func TestScheduledPostClearPendingReportsCount(t *testing.T) {
	sql := newStubSQL()
	sql.tags[sqlinline.QDeletePendingScheduledPosts] = pgconn.NewCommandTag("DELETE 3")

	n, err := NewScheduledPostRepository(sql).ClearPending(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("ClearPending returned error: %v", err)
	}
	if n != 3 {
		t.Fatalf("ClearPending = %d, want 3", n)
	}
}

func TestCreditReserveInsufficient(t *testing.T) {
	sql := newStubSQL()
	ledger := NewCreditLedger(sql)

	_, err := ledger.Reserve(context.Background(), "owner-1", decimal.NewFromInt(10), "run-1")
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if sql.called(sqlinline.QInsertCreditReservation) != 0 {
		t.Fatal("reservation must not be written when the hold fails")
	}
}

func TestCreditReserveDuplicate(t *testing.T) {
	sql := newStubSQL()
	sql.push(sqlinline.QHoldCredits, stubRow{scan: func(dest ...any) error { *dest[0].(*string) = "owner-1"; return nil }})
	sql.push(sqlinline.QInsertCreditReservation, stubRow{err: &pgconn.PgError{Code: "23505"}})

	_, err := NewCreditLedger(sql).Reserve(context.Background(), "owner-1", decimal.NewFromInt(2), "run-1")
	if !errors.Is(err, domain.ErrDuplicateOperation) {
		t.Fatalf("expected ErrDuplicateOperation, got %v", err)
	}
}

func TestCreditCaptureReturnsExistingDebit(t *testing.T) {
	sql := newStubSQL()
	sql.push(sqlinline.QSelectCreditReservationForUpdate, stubRow{scan: func(dest ...any) error {
		*dest[0].(*string) = "run-1"
		*dest[1].(*string) = "owner-1"
		*dest[2].(*decimal.Decimal) = decimal.NewFromInt(2)
		*dest[3].(*string) = string(domain.ReservationCaptured)
		return nil
	}})
	sql.push(sqlinline.QSelectCreditTransactionByKey, stubRow{scan: func(dest ...any) error {
		*dest[0].(*string) = "tx-1"
		*dest[1].(*string) = "owner-1"
		*dest[2].(*decimal.Decimal) = decimal.NewFromInt(-2)
		*dest[3].(*string) = string(domain.TransactionGeneration)
		*dest[6].(*string) = CaptureKey("run-1")
		return nil
	}})

	tx, err := NewCreditLedger(sql).Capture(context.Background(), "run-1", "content-1", "image generation")
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if tx.ID != "tx-1" {
		t.Fatalf("expected existing transaction, got %+v", tx)
	}
	if sql.called(sqlinline.QCaptureCreditHold) != 0 || sql.called(sqlinline.QInsertCreditTransaction) != 0 {
		t.Fatal("second capture must not debit again")
	}
}

func TestCreditApplyRejectsGenerationType(t *testing.T) {
	_, err := NewCreditLedger(newStubSQL()).Apply(context.Background(), domain.CreditTransaction{
		OwnerID: "owner-1",
		Amount:  decimal.NewFromInt(-2),
		Type:    domain.TransactionGeneration,
	})
	if err == nil {
		t.Fatal("expected generation debits to be rejected by Apply")
	}
}

func TestContentLatestSinceNotFound(t *testing.T) {
	_, err := NewContentRepository(newStubSQL()).LatestSince(context.Background(), "owner-1", "wf-1", time.Now())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreditCaptureContentAlreadyBilled(t *testing.T) {
	sql := newStubSQL()
	sql.push(sqlinline.QSelectCreditReservationForUpdate, stubRow{scan: func(dest ...any) error {
		*dest[0].(*string) = "run-2"
		*dest[1].(*string) = "owner-1"
		*dest[2].(*decimal.Decimal) = decimal.NewFromInt(2)
		*dest[3].(*string) = string(domain.ReservationHeld)
		return nil
	}})
	sql.push(sqlinline.QCaptureCreditHold, stubRow{scan: func(dest ...any) error {
		*dest[0].(*decimal.Decimal) = decimal.NewFromInt(6)
		return nil
	}})
	sql.push(sqlinline.QInsertCreditTransaction, stubRow{err: &pgconn.PgError{Code: "23505"}})

	_, err := NewCreditLedger(sql).Capture(context.Background(), "run-2", "content-1", "image generation")
	if !errors.Is(err, domain.ErrDuplicateOperation) {
		t.Fatalf("expected ErrDuplicateOperation, got %v", err)
	}
	if sql.txAborted != 1 {
		t.Fatalf("expected the capture transaction to roll back, aborted=%d", sql.txAborted)
	}
	if sql.called(sqlinline.QSetCreditReservationStatus) != 0 {
		t.Fatal("reservation must stay held when the content is already billed")
	}
}

func TestRunBeginWhileAnotherRunHoldsWorkflow(t *testing.T) {
	sql := newStubSQL()
	sql.execErr[sqlinline.QInsertWorkflowRun] = &pgconn.PgError{Code: "23505"}

	err := NewRunRepository(sql).Begin(context.Background(), domain.ActiveRun{
		RunID:      "run-2",
		WorkflowID: "wf-1",
		OwnerID:    "owner-1",
		Trigger:    domain.TriggerScheduled,
		StartedAt:  time.Now(),
	}, time.Now().Add(-time.Hour))
	if !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if sql.called(sqlinline.QAbandonStaleWorkflowRun) != 1 {
		t.Fatal("stale holders must be closed before claiming")
	}
	if sql.txAborted != 1 {
		t.Fatalf("expected the claim transaction to roll back, aborted=%d", sql.txAborted)
	}
}

func TestRunActiveMapsNoRows(t *testing.T) {
	_, err := NewRunRepository(newStubSQL()).Active(context.Background(), "wf-1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
