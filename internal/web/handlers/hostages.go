package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bellaciao/heistops/internal/database"
	"github.com/bellaciao/heistops/internal/web/sse"
)

// HostagesData contains data for the hostage roster page
type HostagesData struct {
	Hostages   []*database.Hostage
	Statuses   []string
	Filter     string
	Blueprints []*database.Blueprint
	Crew       []string
}

// HostageDetailData contains data for a single hostage page
type HostageDetailData struct {
	Detail     *database.HostageDetail
	Statuses   []string
	Blueprints []*database.Blueprint
	Crew       []string
}

func hostagePath(id int64) string {
	return fmt.Sprintf("/hostages/%d", id)
}

// HostageList renders the hostage roster
func (h *Handlers) HostageList(w http.ResponseWriter, r *http.Request) {
	hostages, err := h.db.ListHostages(r.Context())
	if err != nil {
		h.loadError(w, "hostages", err)
		return
	}
	h.renderHostages(w, r, hostages, "")
}

// HostageFilter renders hostages with an exact status. An empty status goes
// back to the unfiltered roster.
func (h *Handlers) HostageFilter(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	hostages, err := h.db.FilterHostagesByStatus(r.Context(), status)
	if errors.Is(err, database.ErrFilterRequired) {
		h.redirect(w, r, "/hostages")
		return
	}
	if err != nil {
		h.loadError(w, "hostages", err)
		return
	}
	h.renderHostages(w, r, hostages, status)
}

func (h *Handlers) renderHostages(w http.ResponseWriter, r *http.Request, hostages []*database.Hostage, filter string) {
	blueprints, err := h.db.ListBlueprints(r.Context())
	if err != nil {
		h.loadError(w, "hostages", err)
		return
	}
	crew, err := h.db.ListCrewCodenames(r.Context())
	if err != nil {
		h.loadError(w, "hostages", err)
		return
	}

	h.render(w, r, "hostages.html", "hostages", HostagesData{
		Hostages:   hostages,
		Statuses:   database.HostageStatuses,
		Filter:     filter,
		Blueprints: blueprints,
		Crew:       crew,
	})
}

// HostageDetail renders one hostage with its interaction log
func (h *Handlers) HostageDetail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	detail, err := h.db.GetHostageDetail(r.Context(), id)
	if err != nil {
		h.loadError(w, "hostage", err)
		return
	}
	if detail == nil {
		h.flashErr(w, fmt.Sprintf("Hostage #%d not found", id))
		h.redirect(w, r, "/hostages")
		return
	}

	blueprints, err := h.db.ListBlueprints(r.Context())
	if err != nil {
		h.loadError(w, "hostage", err)
		return
	}
	crew, err := h.db.ListCrewCodenames(r.Context())
	if err != nil {
		h.loadError(w, "hostage", err)
		return
	}

	h.render(w, r, "hostage_detail.html", "hostages", HostageDetailData{
		Detail:     detail,
		Statuses:   database.HostageStatuses,
		Blueprints: blueprints,
		Crew:       crew,
	})
}

// HostageAdd creates a hostage. Manager and location are optional.
func (h *Handlers) HostageAdd(w http.ResponseWriter, r *http.Request) {
	id, err := formInt64(r, "hostage_id")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/hostages")
		return
	}
	usefulness, err := formInt(r, "usefulness")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/hostages")
		return
	}
	blueprintID, err := formOptionalInt64(r, "blueprint_id")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/hostages")
		return
	}

	hostage := &database.Hostage{
		HostageID:       id,
		FirstName:       strings.TrimSpace(r.FormValue("first_name")),
		LastName:        strings.TrimSpace(r.FormValue("last_name")),
		Status:          strings.TrimSpace(r.FormValue("status")),
		Usefulness:      usefulness,
		Instigator:      formBool(r, "instigator"),
		ManagerCodename: formOptionalString(r, "manager_codename"),
		BlueprintID:     blueprintID,
	}

	err = h.db.CreateHostage(r.Context(), hostage)
	subject := fmt.Sprintf("Hostage #%d", id)
	if h.report(w, subject, database.OutcomeApplied, err,
		fmt.Sprintf("Hostage %s %s added successfully!", hostage.FirstName, hostage.LastName)) {
		h.publish(sse.EventHostageChanged, map[string]any{"hostage_id": id, "action": "created"})
	}
	h.redirect(w, r, "/hostages")
}

// HostageEdit replaces status, usefulness and the instigator flag
func (h *Handlers) HostageEdit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	usefulness, err := formInt(r, "usefulness")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, hostagePath(id))
		return
	}

	outcome, err := h.db.UpdateHostage(r.Context(), id, database.HostageUpdate{
		Status:     strings.TrimSpace(r.FormValue("status")),
		Usefulness: usefulness,
		Instigator: formBool(r, "instigator"),
	})
	subject := fmt.Sprintf("Hostage #%d", id)
	if h.report(w, subject, outcome, err, subject+" updated successfully!") {
		h.publish(sse.EventHostageChanged, map[string]any{"hostage_id": id, "action": "updated"})
	}
	h.redirect(w, r, "/hostages")
}

// HostageDelete removes a hostage with its location and logs
func (h *Handlers) HostageDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	outcome, err := h.db.DeleteHostage(r.Context(), id)
	subject := fmt.Sprintf("Hostage #%d", id)
	if h.report(w, subject, outcome, err, subject+" deleted successfully!") {
		h.publish(sse.EventHostageChanged, map[string]any{"hostage_id": id, "action": "deleted"})
	}
	h.redirect(w, r, "/hostages")
}

// HostageLog appends an interaction to a hostage's log
func (h *Handlers) HostageLog(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	entry := &database.HostageLog{
		HostageID:       id,
		InteractingCrew: formOptionalString(r, "interacting_crew"),
		InteractionType: strings.TrimSpace(r.FormValue("interaction_type")),
		Summary:         strings.TrimSpace(r.FormValue("summary")),
	}
	err = h.db.AddHostageLog(r.Context(), entry)
	h.report(w, "Interaction log", database.OutcomeApplied, err, "Interaction logged")
	h.redirect(w, r, hostagePath(id))
}

// HostageLocate moves a hostage to a blueprint location
func (h *Handlers) HostageLocate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	blueprintID, err := formInt64(r, "blueprint_id")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, hostagePath(id))
		return
	}

	outcome, err := h.db.LocateHostage(r.Context(), id, blueprintID)
	subject := fmt.Sprintf("Hostage #%d", id)
	if h.report(w, subject, outcome, err, subject+" moved") {
		h.publish(sse.EventHostageChanged, map[string]any{"hostage_id": id, "action": "moved"})
	}
	h.redirect(w, r, hostagePath(id))
}
