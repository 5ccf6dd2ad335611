package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bellaciao/heistops/internal/database"
)

// PoliceData contains data for the police page
type PoliceData struct {
	Units        []*database.PoliceUnit
	Negotiations []*database.Negotiation
	Crew         []string
	Blueprints   []*database.Blueprint
}

// PoliceList renders police units and the negotiation log
func (h *Handlers) PoliceList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		data PoliceData
		err  error
	)

	if data.Units, err = h.db.ListPoliceUnits(ctx); err != nil {
		h.loadError(w, "police units", err)
		return
	}
	if data.Negotiations, err = h.db.ListNegotiations(ctx); err != nil {
		h.loadError(w, "police units", err)
		return
	}
	if data.Crew, err = h.db.ListCrewCodenames(ctx); err != nil {
		h.loadError(w, "police units", err)
		return
	}
	if data.Blueprints, err = h.db.ListBlueprints(ctx); err != nil {
		h.loadError(w, "police units", err)
		return
	}

	h.render(w, r, "police.html", "police", data)
}

// PoliceAdd creates a police unit
func (h *Handlers) PoliceAdd(w http.ResponseWriter, r *http.Request) {
	id, err := formInt64(r, "unit_id")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/police")
		return
	}

	unit := &database.PoliceUnit{
		UnitID:            id,
		UnitName:          strings.TrimSpace(r.FormValue("unit_name")),
		CommandingOfficer: strings.TrimSpace(r.FormValue("commanding_officer")),
	}
	err = h.db.CreatePoliceUnit(r.Context(), unit)
	h.report(w, fmt.Sprintf("Police unit #%d", id), database.OutcomeApplied, err, fmt.Sprintf("Police unit %s added", unit.UnitName))
	h.redirect(w, r, "/police")
}

// PoliceDelete removes a police unit. Its negotiations are kept.
func (h *Handlers) PoliceDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	outcome, err := h.db.DeletePoliceUnit(r.Context(), id)
	subject := fmt.Sprintf("Police unit #%d", id)
	if h.report(w, subject, outcome, err, subject+" deleted") {
		log.Info().Int64("unit_id", id).Msg("Police unit deleted")
	}
	h.redirect(w, r, "/police")
}

// PoliceContact links a unit to a crew member over a channel
func (h *Handlers) PoliceContact(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	codename := strings.TrimSpace(r.FormValue("codename"))

	outcome, err := h.db.LinkCommunication(r.Context(), id, codename, strings.TrimSpace(r.FormValue("channel")))
	subject := fmt.Sprintf("Police unit #%d or crew member %s", id, codename)
	if outcome == database.OutcomeExists {
		subject = "Communication link"
	}
	h.report(w, subject, outcome, err, fmt.Sprintf("Unit #%d now in contact with %s", id, codename))
	h.redirect(w, r, "/police")
}

// PoliceMonitor records that a unit watches a location
func (h *Handlers) PoliceMonitor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	blueprintID, err := formInt64(r, "blueprint_id")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/police")
		return
	}

	outcome, err := h.db.MonitorBlueprint(r.Context(), id, blueprintID)
	subject := fmt.Sprintf("Police unit #%d or location #%d", id, blueprintID)
	if outcome == database.OutcomeExists {
		subject = "Monitoring"
	}
	h.report(w, subject, outcome, err, fmt.Sprintf("Unit #%d now monitoring location #%d", id, blueprintID))
	h.redirect(w, r, "/police")
}

// NegotiationAdd records a negotiation attempt
func (h *Handlers) NegotiationAdd(w http.ResponseWriter, r *http.Request) {
	unitID, err := formOptionalInt64(r, "unit_id")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/police")
		return
	}

	n := &database.Negotiation{
		UnitID:   unitID,
		CodeName: formOptionalString(r, "codename"),
		Outcome:  strings.TrimSpace(r.FormValue("outcome")),
	}
	_, err = h.db.RecordNegotiation(r.Context(), n)
	h.report(w, "Negotiation", database.OutcomeApplied, err, "Negotiation recorded")
	h.redirect(w, r, "/police")
}
