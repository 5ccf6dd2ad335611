package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bellaciao/heistops/internal/database"
	"github.com/bellaciao/heistops/internal/web/sse"
)

// PhasesData contains data for the phases page
type PhasesData struct {
	Phases []*database.Phase
}

// PhaseAssignData contains data for the crew and resource assignment pages
type PhaseAssignData struct {
	Phase     *database.Phase
	Mode      string
	Crew      []string
	Resources []*database.Resource
}

// PhaseList renders every phase with its requirements and assigned crew
func (h *Handlers) PhaseList(w http.ResponseWriter, r *http.Request) {
	phases, err := h.db.ListPhases(r.Context())
	if err != nil {
		h.loadError(w, "phases", err)
		return
	}
	h.render(w, r, "phases.html", "phases", PhasesData{Phases: phases})
}

// PhaseAdd creates a phase with a client supplied id
func (h *Handlers) PhaseAdd(w http.ResponseWriter, r *http.Request) {
	id, err := formInt64(r, "phase_id")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/phases")
		return
	}
	duration, err := formInt(r, "planned_duration")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/phases")
		return
	}
	dissonance := 0
	if strings.TrimSpace(r.FormValue("current_dissonance")) != "" {
		if dissonance, err = formInt(r, "current_dissonance"); err != nil {
			h.invalidInput(w, err)
			h.redirect(w, r, "/phases")
			return
		}
	}

	phase := &database.Phase{
		PhaseID:           id,
		Codename:          strings.TrimSpace(r.FormValue("phase_codename")),
		PlannedDuration:   duration,
		CurrentDissonance: dissonance,
	}
	err = h.db.CreatePhase(r.Context(), phase)
	subject := fmt.Sprintf("Phase #%d", id)
	if h.report(w, subject, database.OutcomeApplied, err, fmt.Sprintf("Phase %s added successfully!", phase.Codename)) {
		h.publish(sse.EventPhaseChanged, map[string]any{"phase_id": id, "action": "created"})
	}
	h.redirect(w, r, "/phases")
}

// PhaseDelete removes a phase and its dependents
func (h *Handlers) PhaseDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	outcome, err := h.db.DeletePhase(r.Context(), id)
	subject := fmt.Sprintf("Phase #%d", id)
	if h.report(w, subject, outcome, err, "Phase deleted successfully!") {
		h.publish(sse.EventPhaseChanged, map[string]any{"phase_id": id, "action": "deleted"})
	}
	h.redirect(w, r, "/phases")
}

// loadPhase fetches the phase named in the URL or redirects to the phase list
func (h *Handlers) loadPhase(w http.ResponseWriter, r *http.Request) (*database.Phase, bool) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	phase, err := h.db.GetPhase(r.Context(), id)
	if err != nil {
		h.loadError(w, "phase", err)
		return nil, false
	}
	if phase == nil {
		h.flashErr(w, fmt.Sprintf("Phase #%d not found", id))
		h.redirect(w, r, "/phases")
		return nil, false
	}
	return phase, true
}

// PhaseAssignCrewPage lists crew members not yet assigned to the phase
func (h *Handlers) PhaseAssignCrewPage(w http.ResponseWriter, r *http.Request) {
	phase, ok := h.loadPhase(w, r)
	if !ok {
		return
	}
	crew, err := h.db.ListAssignableCrew(r.Context(), phase.PhaseID)
	if err != nil {
		h.loadError(w, "assignable crew", err)
		return
	}
	h.render(w, r, "phase_assign.html", "phases", PhaseAssignData{Phase: phase, Mode: "crew", Crew: crew})
}

// PhaseAssignResourcePage lists resources the phase does not yet require
func (h *Handlers) PhaseAssignResourcePage(w http.ResponseWriter, r *http.Request) {
	phase, ok := h.loadPhase(w, r)
	if !ok {
		return
	}
	resources, err := h.db.ListAssignableResources(r.Context(), phase.PhaseID)
	if err != nil {
		h.loadError(w, "assignable resources", err)
		return
	}
	h.render(w, r, "phase_assign.html", "phases", PhaseAssignData{Phase: phase, Mode: "resource", Resources: resources})
}

// PhaseAssignCrew assigns a crew member to a phase
func (h *Handlers) PhaseAssignCrew(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	codename := strings.TrimSpace(r.FormValue("codename"))

	outcome, err := h.db.AssignCrew(r.Context(), id, codename)
	subject := fmt.Sprintf("Phase #%d or crew member %s", id, codename)
	if outcome == database.OutcomeExists {
		subject = "Assignment of " + codename
	}
	if h.report(w, subject, outcome, err, fmt.Sprintf("Crew member %s assigned successfully!", codename)) {
		h.publish(sse.EventPhaseChanged, map[string]any{"phase_id": id, "codename": codename, "action": "crew_assigned"})
	}
	h.redirect(w, r, "/phases")
}

// PhaseAssignResource adds a resource requirement to a phase
func (h *Handlers) PhaseAssignResource(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	resourceID, err := formInt64(r, "resource_id")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, fmt.Sprintf("/phases/%d/assign-resource", id))
		return
	}

	outcome, err := h.db.RequireResource(r.Context(), id, resourceID)
	subject := fmt.Sprintf("Phase #%d or resource #%d", id, resourceID)
	if outcome == database.OutcomeExists {
		subject = fmt.Sprintf("Requirement for resource #%d", resourceID)
	}
	if h.report(w, subject, outcome, err, "Resource assigned successfully!") {
		h.publish(sse.EventPhaseChanged, map[string]any{"phase_id": id, "resource_id": resourceID, "action": "resource_assigned"})
	}
	h.redirect(w, r, "/phases")
}

// PhaseRemoveCrew unassigns a crew member from a phase
func (h *Handlers) PhaseRemoveCrew(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	codename := codenameParam(r)

	outcome, err := h.db.UnassignCrew(r.Context(), id, codename)
	if h.report(w, "Assignment of "+codename, outcome, err, fmt.Sprintf("Crew member %s removed from phase!", codename)) {
		h.publish(sse.EventPhaseChanged, map[string]any{"phase_id": id, "codename": codename, "action": "crew_removed"})
	}
	h.redirect(w, r, "/phases")
}

// PhaseRemoveResource drops a resource requirement from a phase
func (h *Handlers) PhaseRemoveResource(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	resourceID, err := idParam(r, "resourceID")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	outcome, err := h.db.UnrequireResource(r.Context(), id, resourceID)
	subject := fmt.Sprintf("Requirement for resource #%d", resourceID)
	if h.report(w, subject, outcome, err, "Resource removed from phase!") {
		h.publish(sse.EventPhaseChanged, map[string]any{"phase_id": id, "resource_id": resourceID, "action": "resource_removed"})
	}
	h.redirect(w, r, "/phases")
}
