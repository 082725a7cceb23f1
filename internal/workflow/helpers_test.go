package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"aisocial/internal/adapter/memory"
	"aisocial/internal/domain"
)

type invokerFunc func(ctx context.Context, workflowID string) (*domain.JobResult, error)

func (f invokerFunc) Invoke(ctx context.Context, workflowID string) (*domain.JobResult, error) {
	return f(ctx, workflowID)
}

type recorder struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (r *recorder) Notify(ev domain.ProgressEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) stages() []domain.RunStage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.RunStage, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Stage)
	}
	return out
}

func (r *recorder) count(stage domain.RunStage) int {
	n := 0
	for _, s := range r.stages() {
		if s == stage {
			n++
		}
	}
	return n
}

type harness struct {
	workflows *memory.WorkflowStore
	contents  *memory.ContentStore
	ledger    *memory.CreditLedger
	runs      *memory.RunStore
	events    *recorder
	invoker   invokerFunc
	executor  *Executor
	calls     int
	mu        sync.Mutex
}

func testConfig() ExecutorConfig {
	return ExecutorConfig{
		Costs:         domain.CostTable{Image: decimal.NewFromInt(2), Video: decimal.NewFromInt(10)},
		PrepareDwell:  time.Millisecond,
		PollInterval:  2 * time.Millisecond,
		PublishDwell:  time.Millisecond,
		RunTimeout:    2 * time.Second,
		CreatedSkew:   5 * time.Second,
		ProgressEvery: 3,
	}
}

func newHarness(t *testing.T, cfg ExecutorConfig, invoke invokerFunc) *harness {
	t.Helper()
	h := &harness{
		workflows: memory.NewWorkflowStore(),
		contents:  memory.NewContentStore(),
		ledger:    memory.NewCreditLedger(),
		runs:      memory.NewRunStore(),
		events:    &recorder{},
	}
	counted := invokerFunc(func(ctx context.Context, id string) (*domain.JobResult, error) {
		h.mu.Lock()
		h.calls++
		h.mu.Unlock()
		return invoke(ctx, id)
	})
	h.invoker = counted
	h.executor = h.peer(cfg)
	return h
}

// peer builds another executor over the same stores with its own in-process
// registry, the way the api and worker processes share one database.
func (h *harness) peer(cfg ExecutorConfig) *Executor {
	return NewExecutor(ExecutorDeps{
		Workflows: h.workflows,
		Contents:  h.contents,
		Ledger:    h.ledger,
		Invoker:   h.invoker,
		Notifier:  h.events,
		RunStore:  h.runs,
		Logger:    zerolog.Nop(),
	}, cfg)
}

func (h *harness) invocations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func (h *harness) fund(t *testing.T, owner string, amount int64) {
	t.Helper()
	if _, err := h.ledger.Apply(context.Background(), domain.CreditTransaction{
		OwnerID: owner,
		Amount:  decimal.NewFromInt(amount),
		Type:    domain.TransactionPurchase,
	}); err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func (h *harness) workflow(t *testing.T, ct domain.ContentType, platforms ...string) *domain.Workflow {
	t.Helper()
	wf := &domain.Workflow{
		OwnerID:     "owner-1",
		Name:        "weekly promo",
		ContentType: ct,
		Platforms:   platforms,
		Recurrence:  domain.ScheduleConfig{Frequency: domain.FrequencyDaily, Times: []string{"09:00"}},
		Timezone:    "UTC",
		Active:      true,
	}
	if err := h.workflows.Create(context.Background(), wf); err != nil {
		t.Fatalf("create workflow: %v", err)
	}
	return wf
}

func (h *harness) balance(t *testing.T, owner string) decimal.Decimal {
	t.Helper()
	acc, err := h.ledger.Account(context.Background(), owner)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	return acc.Balance
}

// completeContent returns an invoker that writes a completed content record
// and resolves with res.
func completeContent(h **harness, res *domain.JobResult) invokerFunc {
	return func(ctx context.Context, workflowID string) (*domain.JobResult, error) {
		(*h).contents.Put(domain.GeneratedContent{
			OwnerID:    "owner-1",
			WorkflowID: workflowID,
			Type:       domain.ContentTypeImage,
			Status:     domain.ContentStatusCompleted,
			MediaURL:   "https://cdn.example.com/out.png",
		})
		return res, nil
	}
}
