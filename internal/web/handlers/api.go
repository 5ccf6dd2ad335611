package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bellaciao/heistops/internal/database"
)

// LoyaltyChart returns every crew member's loyalty score, highest first
func (h *Handlers) LoyaltyChart(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.LoyaltyChartRows(r.Context())
	h.chartResponse(w, "loyalty chart", rows, err)
}

// ResourceChart returns quantity and threshold for every resource
func (h *Handlers) ResourceChart(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.ResourceChartRows(r.Context())
	h.chartResponse(w, "resource chart", rows, err)
}

func (h *Handlers) chartResponse(w http.ResponseWriter, name string, rows []database.Row, err error) {
	if err != nil {
		log.Error().Err(err).Str("chart", name).Msg("Failed to load chart data")
		h.jsonError(w, err.Error(), statusFor(err))
		return
	}
	if rows == nil {
		rows = []database.Row{}
	}
	h.jsonResponse(w, rows)
}
