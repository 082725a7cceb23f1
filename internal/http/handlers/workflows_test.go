package handlers

import (
	"context"
	"net/http"
	"testing"

	"aisocial/internal/domain"
)

func dailyWorkflowBody() map[string]any {
	return map[string]any{
		"name":            "morning tips",
		"content_type":    "image",
		"prompt_template": "A flat-lay of coffee beans",
		"platforms":       []string{"instagram", "library"},
		"params":          map[string]any{"aspect_ratio": "4:5"},
		"recurrence":      map[string]any{"frequency": "daily", "times": []string{"09:00"}},
		"timezone":        "UTC",
	}
}

func createWorkflow(t *testing.T, env *testEnv, user string) workflowDTO {
	t.Helper()
	rr := env.do(t, http.MethodPost, "/v1/workflows", user, dailyWorkflowBody())
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rr.Code, rr.Body.String())
	}
	var dto workflowDTO
	decodeBody(t, rr, &dto)
	return dto
}

func TestWorkflowsCreateMaterializesSchedule(t *testing.T) {
	env := newTestEnv(t, nil)
	dto := createWorkflow(t, env, "user-1")

	if dto.ID == "" || !dto.Active {
		t.Fatalf("unexpected workflow: %+v", dto)
	}
	if dto.Params.AspectRatio != "4:5" || dto.Params.OutputFormat != "png" {
		t.Fatalf("params were not normalized: %+v", dto.Params)
	}
	if dto.NextRunAt == nil || dto.NextRunAt.Hour() != 9 || dto.NextRunAt.Day() != 3 {
		t.Fatalf("NextRunAt = %v, want 2024-06-03 09:00", dto.NextRunAt)
	}
	posts, _ := env.posts.ListByWorkflow(context.Background(), dto.ID, 0)
	if len(posts) != 7 {
		t.Fatalf("materialized %d posts, want 7", len(posts))
	}

	rr := env.do(t, http.MethodGet, "/v1/workflows/"+dto.ID+"/scheduled-posts", "user-1", nil)
	var list struct {
		Items []scheduledPostDTO `json:"items"`
	}
	decodeBody(t, rr, &list)
	if len(list.Items) != 7 || list.Items[0].Status != domain.ScheduledPostStatusScheduled {
		t.Fatalf("listed %d posts: %+v", len(list.Items), list.Items)
	}
}

func TestWorkflowsCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(body map[string]any)
		code   string
	}{
		{name: "missing name", mutate: func(b map[string]any) { delete(b, "name") }, code: "bad_request"},
		{name: "bad content type", mutate: func(b map[string]any) { b["content_type"] = "audio" }, code: "bad_request"},
		{name: "weekly without days", mutate: func(b map[string]any) {
			b["recurrence"] = map[string]any{"frequency": "weekly", "times": []string{"09:00"}}
		}, code: "invalid_schedule"},
		{name: "bad clock", mutate: func(b map[string]any) {
			b["recurrence"] = map[string]any{"frequency": "daily", "times": []string{"24:30"}}
		}, code: "invalid_schedule"},
		{name: "bad aspect ratio", mutate: func(b map[string]any) {
			b["params"] = map[string]any{"aspect_ratio": "2:1"}
		}, code: "bad_request"},
		{name: "unknown timezone", mutate: func(b map[string]any) { b["timezone"] = "Mars/Olympus" }, code: "bad_request"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			body := dailyWorkflowBody()
			tc.mutate(body)
			rr := env.do(t, http.MethodPost, "/v1/workflows", "user-1", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rr.Code, rr.Body.String())
			}
			if got := errorCode(t, rr); got != tc.code {
				t.Fatalf("error code = %q, want %q", got, tc.code)
			}
		})
	}
}

func TestWorkflowsAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	dto := createWorkflow(t, env, "user-1")

	if rr := env.do(t, http.MethodGet, "/v1/workflows/"+dto.ID, "user-2", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("foreign get status = %d, want 404", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, "/v1/workflows/"+dto.ID, "user-2", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d, want 404", rr.Code)
	}

	rr := env.do(t, http.MethodGet, "/v1/workflows", "user-2", nil)
	var list struct {
		Items []workflowDTO `json:"items"`
	}
	decodeBody(t, rr, &list)
	if len(list.Items) != 0 {
		t.Fatalf("user-2 sees %d workflows", len(list.Items))
	}
}

func TestWorkflowsDeactivateClearsPendingPosts(t *testing.T) {
	env := newTestEnv(t, nil)
	dto := createWorkflow(t, env, "user-1")

	rr := env.do(t, http.MethodPost, "/v1/workflows/"+dto.ID+"/deactivate", "user-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d", rr.Code)
	}
	posts, _ := env.posts.ListByWorkflow(context.Background(), dto.ID, 0)
	if len(posts) != 0 {
		t.Fatalf("%d posts remain after deactivate", len(posts))
	}

	rr = env.do(t, http.MethodPost, "/v1/workflows/"+dto.ID+"/activate", "user-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("activate status = %d", rr.Code)
	}
	posts, _ = env.posts.ListByWorkflow(context.Background(), dto.ID, 0)
	if len(posts) != 7 {
		t.Fatalf("activate materialized %d posts, want 7", len(posts))
	}
}

func TestWorkflowsUpdateRecurrence(t *testing.T) {
	env := newTestEnv(t, nil)
	dto := createWorkflow(t, env, "user-1")

	rr := env.do(t, http.MethodPut, "/v1/workflows/"+dto.ID+"/recurrence", "user-1", map[string]any{
		"recurrence": map[string]any{"frequency": "weekly", "times": []string{"10:00"}, "days": []string{"Wednesday"}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var updated workflowDTO
	decodeBody(t, rr, &updated)
	if updated.Recurrence.Frequency != domain.FrequencyWeekly || updated.Recurrence.Days[0] != "wednesday" {
		t.Fatalf("recurrence = %+v", updated.Recurrence)
	}
	posts, _ := env.posts.ListByWorkflow(context.Background(), dto.ID, 0)
	if len(posts) != 1 || posts[0].ScheduledAt.Weekday().String() != "Wednesday" {
		t.Fatalf("posts after update = %+v", posts)
	}
}

func TestWorkflowsDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	dto := createWorkflow(t, env, "user-1")

	if rr := env.do(t, http.MethodDelete, "/v1/workflows/"+dto.ID, "user-1", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/v1/workflows/"+dto.ID, "user-1", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rr.Code)
	}
	posts, _ := env.posts.ListByWorkflow(context.Background(), dto.ID, 0)
	if len(posts) != 0 {
		t.Fatalf("%d posts survived delete", len(posts))
	}
}

func TestSchedulePreview(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodPost, "/v1/schedule/preview", "user-1", map[string]any{
		"recurrence":   map[string]any{"frequency": "custom", "times": []string{"07:00", "19:00"}, "days": []string{"monday", "tuesday"}},
		"timezone":     "UTC",
		"horizon_days": 3,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var payload struct {
		Timezone string   `json:"timezone"`
		Instants []string `json:"instants"`
	}
	decodeBody(t, rr, &payload)
	// Monday 07:00 has passed at 08:00; Monday 19:00, Tuesday 07:00 and 19:00 remain.
	if len(payload.Instants) != 3 {
		t.Fatalf("instants = %v", payload.Instants)
	}
	if payload.Instants[0] != "2024-06-03T19:00:00Z" {
		t.Fatalf("first instant = %s", payload.Instants[0])
	}
}
