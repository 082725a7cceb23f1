package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"aisocial/internal/infra"
)

type scanFunc func(dest ...any) error

type stubRow struct {
	scan scanFunc
	err  error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// stubSQL scripts QueryRow results per query and records every statement.
type stubSQL struct {
	rows      map[string][]stubRow
	tags      map[string]pgconn.CommandTag
	execErr   map[string]error
	calls     []string
	txBegun   int
	txAborted int
}

func newStubSQL() *stubSQL {
	return &stubSQL{
		rows:    map[string][]stubRow{},
		tags:    map[string]pgconn.CommandTag{},
		execErr: map[string]error{},
	}
}

func (s *stubSQL) push(query string, rows ...stubRow) {
	s.rows[query] = append(s.rows[query], rows...)
}

func (s *stubSQL) Exec(_ context.Context, query string, _ ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, query)
	if err := s.execErr[query]; err != nil {
		return pgconn.CommandTag{}, err
	}
	if tag, ok := s.tags[query]; ok {
		return tag, nil
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (s *stubSQL) QueryRow(_ context.Context, query string, _ ...any) pgx.Row {
	s.calls = append(s.calls, query)
	queue := s.rows[query]
	if len(queue) == 0 {
		return stubRow{err: pgx.ErrNoRows}
	}
	s.rows[query] = queue[1:]
	return queue[0]
}

func (s *stubSQL) Query(_ context.Context, query string, _ ...any) (pgx.Rows, error) {
	s.calls = append(s.calls, query)
	return nil, fmt.Errorf("unexpected query: %s", query)
}

func (s *stubSQL) InTx(_ context.Context, fn func(tx infra.SQLExecutor) error) error {
	s.txBegun++
	if err := fn(s); err != nil {
		s.txAborted++
		return err
	}
	return nil
}

func (s *stubSQL) called(query string) int {
	n := 0
	for _, c := range s.calls {
		if c == query {
			n++
		}
	}
	return n
}

var errStub = errors.New("stub failure")
