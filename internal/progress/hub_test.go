package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"aisocial/internal/domain"
)

func TestHubDeliversToOwnerOnly(t *testing.T) {
	h := NewHub()
	mine, cancelMine := h.Subscribe("owner-a", 4)
	defer cancelMine()
	other, cancelOther := h.Subscribe("owner-b", 4)
	defer cancelOther()

	h.Notify(domain.ProgressEvent{OwnerID: "owner-a", Stage: domain.StagePreparing})

	select {
	case ev := <-mine:
		if ev.Stage != domain.StagePreparing {
			t.Fatalf("unexpected stage %q", ev.Stage)
		}
	default:
		t.Fatal("subscriber did not receive event")
	}
	select {
	case ev := <-other:
		t.Fatalf("other owner received %+v", ev)
	default:
	}
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe("owner", 1)
	defer cancel()

	for i := 0; i < 5; i++ {
		h.Notify(domain.ProgressEvent{OwnerID: "owner"})
	}
	if got := h.Dropped(); got != 4 {
		t.Fatalf("Dropped = %d, want 4", got)
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("owner", 1)
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	if h.Subscribers("owner") != 0 {
		t.Fatal("subscriber not removed")
	}
	h.Notify(domain.ProgressEvent{OwnerID: "owner"})
}

func TestLogNotifierWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	n := Multi{LogNotifier{Logger: zerolog.New(&buf)}, Discard{}, nil}
	n.Notify(domain.ProgressEvent{RunID: "run-1", WorkflowID: "wf-1", Stage: domain.StageFailed, Level: domain.LevelError, Message: "insufficient credits"})

	out := buf.String()
	for _, want := range []string{`"run_id":"run-1"`, `"stage":"failed"`, `"message":"insufficient credits"`, `"level":"warn"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %s missing %s", out, want)
		}
	}
}
