package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	token string
	err   error
	exec  struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestGenerationAPIKey(t *testing.T) {
	store := NewStore(&stubExecutor{token: " abc123 "})
	key, err := store.GenerationAPIKey(context.Background())
	if err != nil {
		t.Fatalf("GenerationAPIKey error: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("expected abc123, got %q", key)
	}
}

func TestGenerationAPIKey_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	key, err := store.GenerationAPIKey(context.Background())
	if err != nil {
		t.Fatalf("GenerationAPIKey error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestGenerationAPIKey_QueryError(t *testing.T) {
	store := NewStore(&stubExecutor{err: errors.New("connection reset")})
	if _, err := store.GenerationAPIKey(context.Background()); err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestSetGenerationAPIKey(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	props := map[string]any{"rotated_by": "ops"}
	if err := store.SetGenerationAPIKey(context.Background(), " secret ", props); err != nil {
		t.Fatalf("SetGenerationAPIKey error: %v", err)
	}
	if len(exec.exec.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[0].(string); !ok || v != ProviderGeneration {
		t.Fatalf("expected provider %q, got %v", ProviderGeneration, exec.exec.args[0])
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
	raw, ok := exec.exec.args[2].([]byte)
	if !ok || string(raw) != `{"rotated_by":"ops"}` {
		t.Fatalf("unexpected properties %T %v", exec.exec.args[2], exec.exec.args[2])
	}
}

func TestSetGenerationAPIKeyEmpty(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetGenerationAPIKey(context.Background(), " ", nil); err == nil {
		t.Fatal("expected error for empty key")
	}
}
