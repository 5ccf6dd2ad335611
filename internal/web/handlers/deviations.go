package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bellaciao/heistops/internal/database"
)

// DeviationsData contains data for the deviations page
type DeviationsData struct {
	Deviations []*database.Deviation
	Phases     []*database.Phase
	Crew       []string
}

// DeviationList renders crew members who deviated from a phase
func (h *Handlers) DeviationList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviations, err := h.db.ListDeviations(ctx)
	if err != nil {
		h.loadError(w, "deviations", err)
		return
	}
	phases, err := h.db.ListPhases(ctx)
	if err != nil {
		h.loadError(w, "deviations", err)
		return
	}
	crew, err := h.db.ListCrewCodenames(ctx)
	if err != nil {
		h.loadError(w, "deviations", err)
		return
	}

	h.render(w, r, "deviations.html", "deviations", DeviationsData{Deviations: deviations, Phases: phases, Crew: crew})
}

// DeviationAdd records a deviation
func (h *Handlers) DeviationAdd(w http.ResponseWriter, r *http.Request) {
	phaseID, err := formInt64(r, "phase_id")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/deviations")
		return
	}
	codename := strings.TrimSpace(r.FormValue("codename"))

	outcome, err := h.db.RecordDeviation(r.Context(), codename, phaseID)
	subject := fmt.Sprintf("Crew member %s or phase #%d", codename, phaseID)
	if outcome == database.OutcomeExists {
		subject = "Deviation"
	}
	h.report(w, subject, outcome, err, fmt.Sprintf("Deviation recorded for %s", codename))
	h.redirect(w, r, "/deviations")
}

// DeviationRemove deletes a deviation record
func (h *Handlers) DeviationRemove(w http.ResponseWriter, r *http.Request) {
	phaseID, err := formInt64(r, "phase_id")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/deviations")
		return
	}
	codename := strings.TrimSpace(r.FormValue("codename"))

	outcome, err := h.db.RemoveDeviation(r.Context(), codename, phaseID)
	h.report(w, "Deviation", outcome, err, "Deviation removed")
	h.redirect(w, r, "/deviations")
}
