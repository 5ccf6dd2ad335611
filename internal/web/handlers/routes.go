package handlers

import (
	"github.com/go-chi/chi/v5"
)

// Mount registers the page, export and chart routes on r
func (h *Handlers) Mount(r chi.Router) {
	r.Get("/", h.Dashboard)

	r.Route("/crew", func(r chi.Router) {
		r.Get("/", h.CrewList)
		r.Get("/search", h.CrewList)
		r.Post("/add", h.CrewAdd)
		r.Get("/{codename}", h.CrewDetail)
		r.Post("/{codename}/edit", h.CrewEdit)
		r.Post("/{codename}/delete", h.CrewDelete)
		r.Post("/{codename}/skill", h.CrewSkill)
		r.Post("/{codename}/traits", h.CrewTrait)
		r.Post("/{codename}/reports", h.CrewReport)
	})

	r.Route("/hostages", func(r chi.Router) {
		r.Get("/", h.HostageList)
		r.Get("/filter", h.HostageFilter)
		r.Post("/add", h.HostageAdd)
		r.Get("/{id}", h.HostageDetail)
		r.Post("/{id}/edit", h.HostageEdit)
		r.Post("/{id}/delete", h.HostageDelete)
		r.Post("/{id}/logs", h.HostageLog)
		r.Post("/{id}/locate", h.HostageLocate)
	})

	r.Route("/resources", func(r chi.Router) {
		r.Get("/", h.ResourceList)
		r.Post("/add", h.ResourceAdd)
		r.Post("/{id}/update", h.ResourceUpdate)
		r.Post("/{id}/delete", h.ResourceDelete)
	})

	r.Route("/phases", func(r chi.Router) {
		r.Get("/", h.PhaseList)
		r.Post("/add", h.PhaseAdd)
		r.Post("/{id}/delete", h.PhaseDelete)
		r.Get("/{id}/assign-crew", h.PhaseAssignCrewPage)
		r.Post("/{id}/assign-crew", h.PhaseAssignCrew)
		r.Get("/{id}/assign-resource", h.PhaseAssignResourcePage)
		r.Post("/{id}/assign-resource", h.PhaseAssignResource)
		r.Post("/{id}/remove-crew/{codename}", h.PhaseRemoveCrew)
		r.Post("/{id}/remove-resource/{resourceID}", h.PhaseRemoveResource)
	})

	r.Get("/tasks", h.TaskList)
	r.Post("/tasks/add", h.TaskAdd)
	r.Post("/tasks/remove", h.TaskRemove)

	r.Get("/deviations", h.DeviationList)
	r.Post("/deviations/add", h.DeviationAdd)
	r.Post("/deviations/remove", h.DeviationRemove)

	r.Route("/police", func(r chi.Router) {
		r.Get("/", h.PoliceList)
		r.Post("/add", h.PoliceAdd)
		r.Post("/negotiations", h.NegotiationAdd)
		r.Post("/{id}/delete", h.PoliceDelete)
		r.Post("/{id}/contacts", h.PoliceContact)
		r.Post("/{id}/monitors", h.PoliceMonitor)
	})

	r.Get("/blueprints", h.BlueprintList)
	r.Post("/blueprints/add", h.BlueprintAdd)
	r.Post("/blueprints/{id}/delete", h.BlueprintDelete)
	r.Post("/heists/add", h.HeistAdd)

	r.Get("/export/{kind}", h.Export)

	r.Get("/api/loyalty-chart", h.LoyaltyChart)
	r.Get("/api/resource-chart", h.ResourceChart)
}
