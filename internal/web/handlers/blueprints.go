package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bellaciao/heistops/internal/database"
)

// BlueprintsData contains data for the locations page
type BlueprintsData struct {
	Blueprints []*database.Blueprint
	Heists     []*database.Heist
}

// BlueprintList renders heists and blueprint locations
func (h *Handlers) BlueprintList(w http.ResponseWriter, r *http.Request) {
	blueprints, err := h.db.ListBlueprints(r.Context())
	if err != nil {
		h.loadError(w, "locations", err)
		return
	}
	heists, err := h.db.ListHeists(r.Context())
	if err != nil {
		h.loadError(w, "locations", err)
		return
	}
	h.render(w, r, "blueprints.html", "blueprints", BlueprintsData{Blueprints: blueprints, Heists: heists})
}

// BlueprintAdd creates a blueprint location
func (h *Handlers) BlueprintAdd(w http.ResponseWriter, r *http.Request) {
	id, err := formInt64(r, "blueprint_id")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/blueprints")
		return
	}

	b := &database.Blueprint{BlueprintID: id, LocationName: strings.TrimSpace(r.FormValue("location_name"))}
	err = h.db.CreateBlueprint(r.Context(), b)
	h.report(w, fmt.Sprintf("Location #%d", id), database.OutcomeApplied, err, fmt.Sprintf("Location %s added", b.LocationName))
	h.redirect(w, r, "/blueprints")
}

// BlueprintDelete removes a location; hostages held there become unplaced
func (h *Handlers) BlueprintDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	outcome, err := h.db.DeleteBlueprint(r.Context(), id)
	subject := fmt.Sprintf("Location #%d", id)
	h.report(w, subject, outcome, err, subject+" deleted")
	h.redirect(w, r, "/blueprints")
}

// HeistAdd creates a heist
func (h *Handlers) HeistAdd(w http.ResponseWriter, r *http.Request) {
	id, err := formInt64(r, "heist_id")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/blueprints")
		return
	}

	heist := &database.Heist{
		HeistID: id,
		Name:    strings.TrimSpace(r.FormValue("name")),
		Target:  strings.TrimSpace(r.FormValue("target")),
	}
	err = h.db.CreateHeist(r.Context(), heist)
	h.report(w, fmt.Sprintf("Heist #%d", id), database.OutcomeApplied, err, fmt.Sprintf("Heist %s added", heist.Name))
	h.redirect(w, r, "/blueprints")
}
