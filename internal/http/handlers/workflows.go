package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"aisocial/internal/domain"
	"aisocial/internal/domain/jsoncfg"
	"aisocial/internal/middleware"
)

type scheduleRequest struct {
	Frequency string   `json:"frequency" validate:"required"`
	Times     []string `json:"times" validate:"required,min=1"`
	Days      []string `json:"days"`
}

func (s scheduleRequest) config() domain.ScheduleConfig {
	return domain.ScheduleConfig{Frequency: domain.Frequency(s.Frequency), Times: s.Times, Days: s.Days}
}

type workflowCreateRequest struct {
	Name           string                   `json:"name" validate:"required,min=1,max=120"`
	ContentType    string                   `json:"content_type" validate:"required,oneof=image video"`
	PromptTemplate string                   `json:"prompt_template" validate:"required,max=4000"`
	Platforms      []string                 `json:"platforms" validate:"required,min=1,dive,required"`
	Params         jsoncfg.GenerationParams `json:"params"`
	Recurrence     scheduleRequest          `json:"recurrence" validate:"required"`
	Timezone       string                   `json:"timezone"`
	Active         *bool                    `json:"active"`
}

type recurrenceUpdateRequest struct {
	Recurrence scheduleRequest `json:"recurrence" validate:"required"`
	Timezone   string          `json:"timezone"`
}

type workflowDTO struct {
	ID             string                   `json:"id"`
	Name           string                   `json:"name"`
	ContentType    domain.ContentType       `json:"content_type"`
	PromptTemplate string                   `json:"prompt_template"`
	Platforms      []string                 `json:"platforms"`
	Params         jsoncfg.GenerationParams `json:"params"`
	Recurrence     domain.ScheduleConfig    `json:"recurrence"`
	Timezone       string                   `json:"timezone"`
	Active         bool                     `json:"active"`
	LastRunAt      *time.Time               `json:"last_run_at"`
	NextRunAt      *time.Time               `json:"next_run_at"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

func toWorkflowDTO(wf *domain.Workflow) workflowDTO {
	platforms := wf.Platforms
	if platforms == nil {
		platforms = []string{}
	}
	return workflowDTO{
		ID:             wf.ID,
		Name:           wf.Name,
		ContentType:    wf.ContentType,
		PromptTemplate: wf.PromptTemplate,
		Platforms:      platforms,
		Params:         wf.Params,
		Recurrence:     wf.Recurrence,
		Timezone:       wf.Timezone,
		Active:         wf.Active,
		LastRunAt:      wf.LastRunAt,
		NextRunAt:      wf.NextRunAt,
		CreatedAt:      wf.CreatedAt,
		UpdatedAt:      wf.UpdatedAt,
	}
}

// resolveTimezone prefers the explicit value, then the timezone the request
// middleware derived, then the server default.
func (a *App) resolveTimezone(r *http.Request, explicit string) (string, bool) {
	tz := strings.TrimSpace(explicit)
	if tz == "" {
		tz = middleware.TimezoneFromContext(r.Context())
	}
	if tz == "" {
		tz = a.DefaultTimezone
	}
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "", false
	}
	return tz, true
}

func (a *App) WorkflowsCreate(w http.ResponseWriter, r *http.Request) {
	var req workflowCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	cfg := req.Recurrence.config().Normalized()
	if err := domain.ValidateScheduleConfig(cfg); err != nil {
		a.fail(w, r, err, "workflows.create")
		return
	}
	ct := domain.ContentType(req.ContentType)
	params := req.Params
	params.Normalize(ct == domain.ContentTypeVideo)
	if err := params.Validate(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	tz, ok := a.resolveTimezone(r, req.Timezone)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown timezone")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	wf := &domain.Workflow{
		OwnerID:        a.currentUserID(r),
		Name:           strings.TrimSpace(req.Name),
		ContentType:    ct,
		PromptTemplate: req.PromptTemplate,
		Platforms:      req.Platforms,
		Params:         params,
		Recurrence:     cfg,
		Timezone:       tz,
		Active:         active,
	}
	if err := a.Workflows.Create(r.Context(), wf); err != nil {
		a.fail(w, r, err, "workflows.create")
		return
	}
	if wf.Active {
		if _, err := a.Scheduler.Reschedule(r.Context(), wf); err != nil {
			a.fail(w, r, err, "workflows.schedule")
			return
		}
	}
	a.json(w, http.StatusCreated, toWorkflowDTO(wf))
}

func (a *App) WorkflowsList(w http.ResponseWriter, r *http.Request) {
	items, err := a.Workflows.ListByOwner(r.Context(), a.currentUserID(r), queryLimit(r, 50, 200))
	if err != nil {
		a.fail(w, r, err, "workflows.list")
		return
	}
	out := make([]workflowDTO, 0, len(items))
	for i := range items {
		out = append(out, toWorkflowDTO(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

func (a *App) WorkflowsGet(w http.ResponseWriter, r *http.Request) {
	wf, ok := a.ownedWorkflow(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, toWorkflowDTO(wf))
}

func (a *App) WorkflowsUpdateRecurrence(w http.ResponseWriter, r *http.Request) {
	wf, ok := a.ownedWorkflow(w, r)
	if !ok {
		return
	}
	var req recurrenceUpdateRequest
	if !a.decode(w, r, &req) {
		return
	}
	cfg := req.Recurrence.config().Normalized()
	if err := domain.ValidateScheduleConfig(cfg); err != nil {
		a.fail(w, r, err, "workflows.recurrence")
		return
	}
	tz := wf.Timezone
	if strings.TrimSpace(req.Timezone) != "" {
		if tz, ok = a.resolveTimezone(r, req.Timezone); !ok {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown timezone")
			return
		}
	}
	if err := a.Workflows.UpdateRecurrence(r.Context(), wf.ID, cfg, tz); err != nil {
		a.fail(w, r, err, "workflows.recurrence")
		return
	}
	wf.Recurrence = cfg
	wf.Timezone = tz
	if _, err := a.Scheduler.Reschedule(r.Context(), wf); err != nil {
		a.fail(w, r, err, "workflows.schedule")
		return
	}
	a.json(w, http.StatusOK, toWorkflowDTO(wf))
}

func (a *App) WorkflowsActivate(w http.ResponseWriter, r *http.Request) {
	a.setActive(w, r, true)
}

func (a *App) WorkflowsDeactivate(w http.ResponseWriter, r *http.Request) {
	a.setActive(w, r, false)
}

func (a *App) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	wf, ok := a.ownedWorkflow(w, r)
	if !ok {
		return
	}
	if err := a.Workflows.SetActive(r.Context(), wf.ID, active); err != nil {
		a.fail(w, r, err, "workflows.active")
		return
	}
	wf.Active = active
	if !active {
		wf.NextRunAt = nil
	}
	// Reschedule cancels pending posts for an inactive workflow.
	if _, err := a.Scheduler.Reschedule(r.Context(), wf); err != nil {
		a.fail(w, r, err, "workflows.schedule")
		return
	}
	a.json(w, http.StatusOK, toWorkflowDTO(wf))
}

func (a *App) WorkflowsDelete(w http.ResponseWriter, r *http.Request) {
	wf, ok := a.ownedWorkflow(w, r)
	if !ok {
		return
	}
	if err := a.Scheduler.Cancel(r.Context(), wf.ID); err != nil {
		a.fail(w, r, err, "workflows.cancel")
		return
	}
	if err := a.Workflows.Delete(r.Context(), wf.ID); err != nil {
		a.fail(w, r, err, "workflows.delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedWorkflow loads the {id} workflow and hides workflows of other owners
// behind a 404.
func (a *App) ownedWorkflow(w http.ResponseWriter, r *http.Request) (*domain.Workflow, bool) {
	wf, err := a.loadOwned(r.Context(), chi.URLParam(r, "id"), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err, "workflows.get")
		return nil, false
	}
	return wf, true
}

func (a *App) loadOwned(ctx context.Context, id, ownerID string) (*domain.Workflow, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrNotFound
	}
	wf, err := a.Workflows.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wf.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return wf, nil
}
