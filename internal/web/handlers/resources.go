package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bellaciao/heistops/internal/database"
	"github.com/bellaciao/heistops/internal/web/sse"
)

// ResourcesData contains data for the resources page
type ResourcesData struct {
	Resources []*database.Resource
}

// ResourceList renders every resource with its stock tier
func (h *Handlers) ResourceList(w http.ResponseWriter, r *http.Request) {
	resources, err := h.db.ListResources(r.Context())
	if err != nil {
		h.loadError(w, "resources", err)
		return
	}
	h.render(w, r, "resources.html", "resources", ResourcesData{Resources: resources})
}

// ResourceAdd creates a resource; the store assigns its id
func (h *Handlers) ResourceAdd(w http.ResponseWriter, r *http.Request) {
	quantity, err := formInt(r, "current_quantity")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/resources")
		return
	}
	threshold, err := formInt(r, "critical_threshold")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/resources")
		return
	}

	resourceType := strings.TrimSpace(r.FormValue("type"))
	id, err := h.db.CreateResource(r.Context(), resourceType, quantity, threshold)
	if h.report(w, "Resource "+resourceType, database.OutcomeApplied, err, fmt.Sprintf("Resource %s added", resourceType)) {
		h.publish(sse.EventResourceChanged, map[string]any{
			"resource_id": id,
			"type":        resourceType,
			"tier":        database.ResourceTier(quantity, threshold),
		})
	}
	h.redirect(w, r, "/resources")
}

// ResourceUpdate sets the current quantity of a resource
func (h *Handlers) ResourceUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	quantity, err := formInt(r, "quantity")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/resources")
		return
	}

	outcome, err := h.db.UpdateResourceQuantity(r.Context(), id, quantity)
	subject := fmt.Sprintf("Resource #%d", id)
	if h.report(w, subject, outcome, err, "Resource quantity updated successfully!") {
		res, err := h.db.GetResource(r.Context(), id)
		if err != nil || res == nil {
			log.Warn().Err(err).Int64("resource_id", id).Msg("Failed to reload resource after update")
		} else {
			h.publish(sse.EventResourceChanged, map[string]any{
				"resource_id": id,
				"type":        res.Type,
				"quantity":    res.CurrentQuantity,
				"tier":        res.Tier(),
			})
		}
	}
	h.redirect(w, r, "/resources")
}

// ResourceDelete removes a resource with its requirements and task rows
func (h *Handlers) ResourceDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	outcome, err := h.db.DeleteResource(r.Context(), id)
	subject := fmt.Sprintf("Resource #%d", id)
	if h.report(w, subject, outcome, err, subject+" deleted") {
		h.publish(sse.EventResourceChanged, map[string]any{"resource_id": id, "action": "deleted"})
	}
	h.redirect(w, r, "/resources")
}
