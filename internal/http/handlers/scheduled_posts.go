package handlers

import (
	"net/http"
	"time"

	"aisocial/internal/domain"
)

type scheduledPostDTO struct {
	ID           string                     `json:"id"`
	WorkflowID   string                     `json:"workflow_id"`
	ScheduledAt  time.Time                  `json:"scheduled_at"`
	Status       domain.ScheduledPostStatus `json:"status"`
	Platforms    []string                   `json:"platforms"`
	Metadata     domain.ScheduleSnapshot    `json:"metadata"`
	ErrorMessage string                     `json:"error_message,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
}

type previewRequest struct {
	Recurrence  scheduleRequest `json:"recurrence" validate:"required"`
	Timezone    string          `json:"timezone"`
	HorizonDays int             `json:"horizon_days" validate:"gte=0,lte=31"`
}

func (a *App) ScheduledPostsList(w http.ResponseWriter, r *http.Request) {
	wf, ok := a.ownedWorkflow(w, r)
	if !ok {
		return
	}
	posts, err := a.Posts.ListByWorkflow(r.Context(), wf.ID, queryLimit(r, 100, 500))
	if err != nil {
		a.fail(w, r, err, "scheduled_posts.list")
		return
	}
	items := make([]scheduledPostDTO, 0, len(posts))
	for _, p := range posts {
		items = append(items, scheduledPostDTO{
			ID:           p.ID,
			WorkflowID:   p.WorkflowID,
			ScheduledAt:  p.ScheduledAt,
			Status:       p.Status,
			Platforms:    p.Platforms,
			Metadata:     p.Metadata,
			ErrorMessage: p.ErrorMessage,
			CreatedAt:    p.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// SchedulePreview returns the instants a recurrence would materialize now,
// without touching storage.
func (a *App) SchedulePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !a.decode(w, r, &req) {
		return
	}
	tz, ok := a.resolveTimezone(r, req.Timezone)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown timezone")
		return
	}
	horizon := req.HorizonDays
	if horizon == 0 {
		horizon = a.HorizonDays
	}
	instants, err := a.Scheduler.Preview(req.Recurrence.config().Normalized(), tz, horizon)
	if err != nil {
		a.fail(w, r, err, "schedule.preview")
		return
	}
	if instants == nil {
		instants = []time.Time{}
	}
	a.json(w, http.StatusOK, map[string]any{"timezone": tz, "instants": instants})
}
