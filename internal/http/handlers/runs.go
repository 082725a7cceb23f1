package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"aisocial/internal/domain"
	"aisocial/internal/progress"
	"aisocial/internal/workflow"
)

const sseKeepAlive = 20 * time.Second

// WorkflowsRun starts a manual run in the background and answers 202 with
// the run id. Progress is delivered through the event stream.
func (a *App) WorkflowsRun(w http.ResponseWriter, r *http.Request) {
	wf, ok := a.ownedWorkflow(w, r)
	if !ok {
		return
	}
	runID, err := a.Executor.Start(r.Context(), wf, domain.TriggerManual)
	if err != nil {
		a.fail(w, r, err, "workflows.run")
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"run_id":      runID,
		"workflow_id": wf.ID,
		"stage":       domain.StageAdmissionCheck,
	})
}

func (a *App) WorkflowsActiveRun(w http.ResponseWriter, r *http.Request) {
	wf, ok := a.ownedWorkflow(w, r)
	if !ok {
		return
	}
	run, found, err := a.Executor.Active(r.Context(), wf.ID)
	if err != nil {
		a.fail(w, r, err, "workflows.active_run")
		return
	}
	if !found {
		a.error(w, http.StatusNotFound, "not_found", "no active run")
		return
	}
	a.json(w, http.StatusOK, run)
}

// RunsList returns the caller's in-flight runs from every process.
func (a *App) RunsList(w http.ResponseWriter, r *http.Request) {
	runs, err := a.Executor.ActiveByOwner(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err, "runs.list")
		return
	}
	if runs == nil {
		runs = []workflow.ActiveRun{}
	}
	a.json(w, http.StatusOK, map[string]any{"items": runs})
}

// Events streams the caller's progress events as server-sent events until
// the client disconnects.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}
	// streams outlive the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	events, cancel := a.Hub.Subscribe(a.currentUserID(r), progress.DefaultBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Stage, payload)
			flusher.Flush()
		}
	}
}
