package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aisocial/internal/domain"
	"aisocial/internal/middleware"
)

func TestEventsStreamsOwnerProgress(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithCancel(middleware.ContextWithUserID(context.Background(), "user-1"))
	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil).WithContext(ctx)
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		env.app.Events(rr, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for env.app.Hub.Subscribers("user-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(time.Millisecond)
	}
	env.app.Hub.Notify(domain.ProgressEvent{OwnerID: "user-2", Stage: domain.StageFailed, Message: "not yours"})
	env.app.Hub.Notify(domain.ProgressEvent{OwnerID: "user-1", Stage: domain.StageGenerating, Message: "Generating image"})

	// give the stream a moment to write before hanging up
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after client disconnect")
	}

	body := rr.Body.String()
	if rr.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("content type = %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(body, "event: generating") || !strings.Contains(body, "Generating image") {
		t.Fatalf("stream body missing event: %q", body)
	}
	if strings.Contains(body, "not yours") {
		t.Fatal("stream leaked another owner's event")
	}
	if env.app.Hub.Subscribers("user-1") != 0 {
		t.Fatal("subscription not released")
	}
}
