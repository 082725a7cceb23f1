package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"aisocial/internal/workflow"
)

type fakeDispatcher struct {
	ticks     int
	refreshes int
	err       error
}

func (f *fakeDispatcher) Tick(context.Context) (workflow.DispatchStats, error) {
	f.ticks++
	return workflow.DispatchStats{Claimed: 2, Published: 1, Failed: 1}, f.err
}

func (f *fakeDispatcher) Refresh(context.Context) (int, error) {
	f.refreshes++
	return 3, f.err
}

func TestTickJobLogsStats(t *testing.T) {
	var buf bytes.Buffer
	d := &fakeDispatcher{}
	tickJob(context.Background(), d, zerolog.New(&buf)).Run()
	if d.ticks != 1 {
		t.Fatalf("ticks = %d", d.ticks)
	}
	if !strings.Contains(buf.String(), `"claimed":2`) {
		t.Fatalf("log missing stats: %s", buf.String())
	}
}

func TestJobsSkipAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := &fakeDispatcher{}
	tickJob(ctx, d, zerolog.Nop()).Run()
	refreshJob(ctx, d, zerolog.Nop()).Run()
	if d.ticks != 0 || d.refreshes != 0 {
		t.Fatalf("jobs ran after shutdown: ticks=%d refreshes=%d", d.ticks, d.refreshes)
	}
}

func TestRefreshJobLogsError(t *testing.T) {
	var buf bytes.Buffer
	d := &fakeDispatcher{err: errors.New("db down")}
	refreshJob(context.Background(), d, zerolog.New(&buf)).Run()
	if !strings.Contains(buf.String(), "schedule refresh failed") {
		t.Fatalf("missing error log: %s", buf.String())
	}
}

func TestCronLoggerPairs(t *testing.T) {
	var buf bytes.Buffer
	cronLogger{zerolog.New(&buf)}.Error(errors.New("boom"), "panic", "job", "tick", "dangling")
	out := buf.String()
	if !strings.Contains(out, `"job":"tick"`) || !strings.Contains(out, `"error":"boom"`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}
