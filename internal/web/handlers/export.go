package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/bellaciao/heistops/internal/export"
)

// Export downloads a CSV snapshot of crew, hostages or resources
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	kind, err := export.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// Buffer so a failed read never leaves a half-written download
	var buf bytes.Buffer
	if err := export.Write(r.Context(), h.db, kind, &buf); err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("Export failed")
		h.flashErr(w, fmt.Sprintf("Failed to export %s", kind))
		h.redirect(w, r, "/")
		return
	}

	name := export.FileName(kind, time.Now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	_, _ = w.Write(buf.Bytes())

	log.Info().Str("kind", string(kind)).Str("file", name).Msg("Exported CSV")
}
