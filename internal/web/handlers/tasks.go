package handlers

import (
	"net/http"
	"strings"

	"github.com/bellaciao/heistops/internal/database"
)

// TasksData contains data for the task assignment page
type TasksData struct {
	Tasks        []*database.TaskAssignment
	Requirements []*database.PhaseRequirement
	Phases       []*database.Phase
	Crew         []string
	Resources    []*database.Resource
	Blueprints   []*database.Blueprint
}

// TaskList renders task assignments and phase resource requirements
func (h *Handlers) TaskList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		data TasksData
		err  error
	)

	if data.Tasks, err = h.db.ListTaskAssignments(ctx); err != nil {
		h.loadError(w, "tasks", err)
		return
	}
	if data.Requirements, err = h.db.ListPhaseRequirements(ctx); err != nil {
		h.loadError(w, "tasks", err)
		return
	}
	if data.Phases, err = h.db.ListPhases(ctx); err != nil {
		h.loadError(w, "tasks", err)
		return
	}
	if data.Crew, err = h.db.ListCrewCodenames(ctx); err != nil {
		h.loadError(w, "tasks", err)
		return
	}
	if data.Resources, err = h.db.ListResources(ctx); err != nil {
		h.loadError(w, "tasks", err)
		return
	}
	if data.Blueprints, err = h.db.ListBlueprints(ctx); err != nil {
		h.loadError(w, "tasks", err)
		return
	}

	h.render(w, r, "tasks.html", "tasks", data)
}

// taskFromForm reads the four key fields of a task assignment
func taskFromForm(r *http.Request) (database.TaskAssignment, error) {
	var (
		t   database.TaskAssignment
		err error
	)
	if t.PhaseID, err = formInt64(r, "phase_id"); err != nil {
		return t, err
	}
	if t.ResourceID, err = formInt64(r, "resource_id"); err != nil {
		return t, err
	}
	if t.BlueprintID, err = formInt64(r, "blueprint_id"); err != nil {
		return t, err
	}
	t.CodeName = strings.TrimSpace(r.FormValue("codename"))
	return t, nil
}

// TaskAdd records a task assignment
func (h *Handlers) TaskAdd(w http.ResponseWriter, r *http.Request) {
	t, err := taskFromForm(r)
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/tasks")
		return
	}

	outcome, err := h.db.AssignTask(r.Context(), t)
	subject := "Phase, crew member, resource or location"
	if outcome == database.OutcomeExists {
		subject = "Task assignment"
	}
	h.report(w, subject, outcome, err, "Task assigned to "+t.CodeName)
	h.redirect(w, r, "/tasks")
}

// TaskRemove deletes a task assignment
func (h *Handlers) TaskRemove(w http.ResponseWriter, r *http.Request) {
	t, err := taskFromForm(r)
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/tasks")
		return
	}

	outcome, err := h.db.RemoveTask(r.Context(), t)
	h.report(w, "Task assignment", outcome, err, "Task assignment removed")
	h.redirect(w, r, "/tasks")
}
