package handlers

import (
	"net/http"

	"github.com/bellaciao/heistops/internal/database"
)

// DashboardData contains data for the dashboard page
type DashboardData struct {
	Stats *database.DashboardStats
	// Resources at or below warning level, worst first
	Alerts []*database.Resource
}

// Dashboard renders the main dashboard
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetDashboardStats(r.Context())
	if err != nil {
		h.loadError(w, "dashboard", err)
		return
	}

	resources, err := h.db.ListResources(r.Context())
	if err != nil {
		h.loadError(w, "dashboard", err)
		return
	}

	data := DashboardData{Stats: stats}
	for _, tier := range []database.Tier{database.TierCritical, database.TierWarning} {
		for _, res := range resources {
			if res.Tier() == tier {
				data.Alerts = append(data.Alerts, res)
			}
		}
	}

	h.render(w, r, "dashboard.html", "dashboard", data)
}
