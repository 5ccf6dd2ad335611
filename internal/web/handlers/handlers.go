package handlers

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/bellaciao/heistops/internal/database"
	"github.com/bellaciao/heistops/internal/web/sse"
)

// VersionInfo holds application version information
type VersionInfo struct {
	Version string
	Commit  string
	Date    string // Formatted date for display
	RawDate string // RFC3339 date
}

// Handlers contains all HTTP handlers
type Handlers struct {
	db          *database.DB
	templates   map[string]*template.Template
	broker      *sse.Broker
	versionInfo VersionInfo
	versionMu   sync.RWMutex
	isDev       bool
}

// New creates a new Handlers instance. broker may be nil, in which case no
// change events are published.
func New(db *database.DB, templates map[string]*template.Template, broker *sse.Broker, isDev bool) *Handlers {
	return &Handlers{
		db:        db,
		templates: templates,
		broker:    broker,
		isDev:     isDev,
	}
}

// SetVersionInfo sets the application version information
func (h *Handlers) SetVersionInfo(version, commit, date string) {
	formattedDate := date
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		formattedDate = t.Format("January 2, 2006 at 3:04 PM MST")
	}

	h.versionMu.Lock()
	h.versionInfo = VersionInfo{
		Version: version,
		Commit:  commit,
		Date:    formattedDate,
		RawDate: date,
	}
	h.versionMu.Unlock()
}

func (h *Handlers) getVersionInfo() VersionInfo {
	h.versionMu.RLock()
	defer h.versionMu.RUnlock()
	return h.versionInfo
}

// PageData contains common data for all pages
type PageData struct {
	Title    string
	Nav      string
	Flash    string
	FlashErr string
	Content  any
	Version  VersionInfo
}

// render renders a page template with common data
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name, nav string, data any) {
	pageData := PageData{
		Title:   "Heist Ops",
		Nav:     nav,
		Content: data,
		Version: h.getVersionInfo(),
	}

	// Check for flash messages in cookies
	if cookie, err := r.Cookie("flash"); err == nil {
		pageData.Flash = cookie.Value
		clear := &http.Cookie{Name: "flash", MaxAge: -1, Path: "/"}
		h.applyCookieSecurity(clear)
		http.SetCookie(w, clear)
	}
	if cookie, err := r.Cookie("flash_err"); err == nil {
		pageData.FlashErr = cookie.Value
		clear := &http.Cookie{Name: "flash_err", MaxAge: -1, Path: "/"}
		h.applyCookieSecurity(clear)
		http.SetCookie(w, clear)
	}

	tmpl, ok := h.templates[name]
	if !ok {
		log.Error().Str("template", name).Msg("Template not found")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", pageData); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// flash sets a flash message
func (h *Handlers) flash(w http.ResponseWriter, message string) {
	c := &http.Cookie{
		Name:     "flash",
		Value:    message,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
	}
	h.applyCookieSecurity(c)
	http.SetCookie(w, c)
}

// flashErr sets an error flash message
func (h *Handlers) flashErr(w http.ResponseWriter, message string) {
	c := &http.Cookie{
		Name:     "flash_err",
		Value:    message,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
	}
	h.applyCookieSecurity(c)
	http.SetCookie(w, c)
}

// redirect redirects to a URL
func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// applyCookieSecurity sets Secure/SameSite defaults based on environment.
func (h *Handlers) applyCookieSecurity(c *http.Cookie) {
	if h.isDev {
		if c.SameSite == 0 {
			c.SameSite = http.SameSiteLaxMode
		}
		return
	}
	c.Secure = true
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteStrictMode
	}
}

// jsonError sends a JSON error response
func (h *Handlers) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonResponse sends v as a JSON body
func (h *Handlers) jsonResponse(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// publish notifies dashboard clients of a change
func (h *Handlers) publish(eventType sse.EventType, data any) {
	if h.broker == nil {
		return
	}
	h.broker.Publish(eventType, data)
}

// statusFor maps a data-access failure to an HTTP status
func statusFor(err error) int {
	switch database.Kind(err) {
	case database.KindConnectivity:
		return http.StatusServiceUnavailable
	case database.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// loadError reports a failed page read
func (h *Handlers) loadError(w http.ResponseWriter, what string, err error) {
	log.Error().Err(err).Str("kind", database.Kind(err).String()).Msgf("Failed to load %s", what)
	http.Error(w, "Failed to load "+what, statusFor(err))
}

// errorMessage describes a failed mutation for the operator
func errorMessage(subject string, err error) string {
	var ve database.ValidationError
	switch database.Kind(err) {
	case database.KindInvalid:
		if errors.As(err, &ve) {
			return ve.Message
		}
		return "Invalid input for " + subject
	case database.KindDuplicate:
		return subject + " already exists"
	case database.KindConstraint:
		return subject + " violates a data constraint: check referenced records"
	case database.KindConnectivity:
		return "Database unavailable, try again shortly"
	default:
		return "Failed to save " + subject
	}
}

// report flashes the result of a mutation and returns true when it was applied
func (h *Handlers) report(w http.ResponseWriter, subject string, outcome database.Outcome, err error, success string) bool {
	if err != nil {
		level := log.Warn()
		if k := database.Kind(err); k == database.KindUnknown || k == database.KindConnectivity {
			level = log.Error()
		}
		level.Err(err).Str("subject", subject).Msg("Mutation failed")
		h.flashErr(w, errorMessage(subject, err))
		return false
	}

	switch outcome {
	case database.OutcomeNotFound:
		h.flashErr(w, subject+" not found")
		return false
	case database.OutcomeExists:
		h.flashErr(w, subject+" already exists")
		return false
	}

	h.flash(w, success)
	return true
}

// invalidInput flashes a form parsing error
func (h *Handlers) invalidInput(w http.ResponseWriter, err error) {
	h.flashErr(w, err.Error())
}

// formError is a form field that could not be parsed
type formError struct {
	Field string
}

func (e formError) Error() string {
	return strings.ReplaceAll(e.Field, "_", " ") + " must be a whole number"
}

func formInt(r *http.Request, field string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(r.FormValue(field)))
	if err != nil {
		return 0, formError{Field: field}
	}
	return v, nil
}

func formInt64(r *http.Request, field string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(r.FormValue(field)), 10, 64)
	if err != nil {
		return 0, formError{Field: field}
	}
	return v, nil
}

// formOptionalInt64 returns nil for an empty field
func formOptionalInt64(r *http.Request, field string) (*int64, error) {
	if strings.TrimSpace(r.FormValue(field)) == "" {
		return nil, nil
	}
	v, err := formInt64(r, field)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// formOptionalString returns nil for an empty field
func formOptionalString(r *http.Request, field string) *string {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return nil
	}
	return &v
}

func formBool(r *http.Request, field string) bool {
	switch strings.ToLower(r.FormValue(field)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func idParam(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, formError{Field: name}
	}
	return v, nil
}
