package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/bellaciao/heistops/internal/database"
	"github.com/bellaciao/heistops/internal/web/sse"
)

// SkillKinds lists the specialization subtypes offered by crew forms
var SkillKinds = []database.SkillKind{
	database.SkillNone,
	database.SkillTactical,
	database.SkillStrategic,
	database.SkillTechnical,
}

// CrewData contains data for the crew roster page
type CrewData struct {
	Crew       []*database.CrewMember
	Heists     []*database.Heist
	SkillKinds []database.SkillKind
	Query      string
	Spec       string
}

// CrewDetailData contains data for a single crew member page
type CrewDetailData struct {
	Detail     *database.CrewDetail
	SkillKinds []database.SkillKind
}

func crewPath(codename string) string {
	return "/crew/" + url.PathEscape(codename)
}

// codenameParam returns the decoded codename route parameter. chi matches on
// RawPath when it is set, leaving the parameter escaped only in that case.
func codenameParam(r *http.Request) string {
	raw := chi.URLParam(r, "codename")
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// CrewList renders the crew roster. Query parameters q and spec narrow it to a search.
func (h *Handlers) CrewList(w http.ResponseWriter, r *http.Request) {
	search := database.CrewSearch{
		Query:          strings.TrimSpace(r.URL.Query().Get("q")),
		Specialization: strings.TrimSpace(r.URL.Query().Get("spec")),
	}

	var (
		crew []*database.CrewMember
		err  error
	)
	if search.Query == "" && search.Specialization == "" {
		crew, err = h.db.ListCrew(r.Context())
	} else {
		crew, err = h.db.SearchCrew(r.Context(), search)
	}
	if err != nil {
		h.loadError(w, "crew", err)
		return
	}

	heists, err := h.db.ListHeists(r.Context())
	if err != nil {
		h.loadError(w, "crew", err)
		return
	}

	h.render(w, r, "crew.html", "crew", CrewData{
		Crew:       crew,
		Heists:     heists,
		SkillKinds: SkillKinds,
		Query:      search.Query,
		Spec:       search.Specialization,
	})
}

// CrewDetail renders one crew member with phases, reports and deviations
func (h *Handlers) CrewDetail(w http.ResponseWriter, r *http.Request) {
	codename := codenameParam(r)
	detail, err := h.db.GetCrewDetail(r.Context(), codename)
	if err != nil {
		h.loadError(w, "crew member", err)
		return
	}
	if detail == nil {
		h.flashErr(w, fmt.Sprintf("Crew member %s not found", codename))
		h.redirect(w, r, "/crew")
		return
	}

	h.render(w, r, "crew_detail.html", "crew", CrewDetailData{Detail: detail, SkillKinds: SkillKinds})
}

// CrewAdd creates a crew member, optionally with a specialization subtype
func (h *Handlers) CrewAdd(w http.ResponseWriter, r *http.Request) {
	heistID, err := formInt64(r, "heist_id")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/crew")
		return
	}
	loyalty, err := formInt(r, "loyalty_score")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, "/crew")
		return
	}
	kind, err := database.ParseSkillKind(r.FormValue("skill_kind"))
	if err != nil {
		h.flashErr(w, errorMessage("skill", err))
		h.redirect(w, r, "/crew")
		return
	}

	member := &database.CrewMember{
		CodeName:       strings.TrimSpace(r.FormValue("codename")),
		HeistID:        heistID,
		FirstName:      strings.TrimSpace(r.FormValue("first_name")),
		LastName:       strings.TrimSpace(r.FormValue("last_name")),
		Specialization: strings.TrimSpace(r.FormValue("specialization")),
		LoyaltyScore:   loyalty,
	}
	subject := "Crew member " + member.CodeName

	skill := database.Skill{Kind: kind, Value: strings.TrimSpace(r.FormValue("skill_value"))}
	err = h.db.CreateCrewWithSkill(r.Context(), member, skill)
	if h.report(w, subject, database.OutcomeApplied, err, subject+" added successfully!") {
		log.Info().Str("codename", member.CodeName).Msg("Crew member created")
		h.publish(sse.EventCrewChanged, map[string]any{"codename": member.CodeName, "action": "created"})
	}
	h.redirect(w, r, "/crew")
}

// CrewEdit replaces the editable fields of a crew member
func (h *Handlers) CrewEdit(w http.ResponseWriter, r *http.Request) {
	codename := codenameParam(r)
	loyalty, err := formInt(r, "loyalty_score")
	if err != nil {
		h.invalidInput(w, err)
		h.redirect(w, r, crewPath(codename))
		return
	}

	outcome, err := h.db.UpdateCrew(r.Context(), codename, database.CrewUpdate{
		FirstName:      strings.TrimSpace(r.FormValue("first_name")),
		LastName:       strings.TrimSpace(r.FormValue("last_name")),
		Specialization: strings.TrimSpace(r.FormValue("specialization")),
		LoyaltyScore:   loyalty,
	})
	subject := "Crew member " + codename
	if h.report(w, subject, outcome, err, subject+" updated successfully!") {
		h.publish(sse.EventCrewChanged, map[string]any{"codename": codename, "action": "updated"})
	}
	h.redirect(w, r, "/crew")
}

// CrewDelete removes a crew member and everything that references it
func (h *Handlers) CrewDelete(w http.ResponseWriter, r *http.Request) {
	codename := codenameParam(r)
	outcome, err := h.db.DeleteCrew(r.Context(), codename)
	subject := "Crew member " + codename
	if h.report(w, subject, outcome, err, subject+" deleted successfully!") {
		log.Info().Str("codename", codename).Msg("Crew member deleted")
		h.publish(sse.EventCrewChanged, map[string]any{"codename": codename, "action": "deleted"})
	}
	h.redirect(w, r, "/crew")
}

// CrewSkill replaces the specialization subtype of a crew member
func (h *Handlers) CrewSkill(w http.ResponseWriter, r *http.Request) {
	codename := codenameParam(r)
	kind, err := database.ParseSkillKind(r.FormValue("skill_kind"))
	if err != nil {
		h.flashErr(w, errorMessage("skill", err))
		h.redirect(w, r, crewPath(codename))
		return
	}

	skill := database.Skill{Kind: kind, Value: strings.TrimSpace(r.FormValue("skill_value"))}
	outcome, err := h.db.SetCrewSkill(r.Context(), codename, skill)
	subject := "Crew member " + codename
	if h.report(w, subject, outcome, err, fmt.Sprintf("%s set to %s", skill.Label(), orNone(skill.Value))) {
		h.publish(sse.EventCrewChanged, map[string]any{"codename": codename, "action": "skill"})
	}
	h.redirect(w, r, crewPath(codename))
}

// CrewTrait adds a volatile trait to a crew member
func (h *Handlers) CrewTrait(w http.ResponseWriter, r *http.Request) {
	codename := codenameParam(r)
	trait := strings.TrimSpace(r.FormValue("trait"))
	outcome, err := h.db.AddTrait(r.Context(), codename, trait)

	subject := "Crew member " + codename
	if outcome == database.OutcomeExists {
		subject = fmt.Sprintf("Trait %q", trait)
	}
	h.report(w, subject, outcome, err, fmt.Sprintf("Trait %q added", trait))
	h.redirect(w, r, crewPath(codename))
}

// CrewReport appends a psychological report to a crew member
func (h *Handlers) CrewReport(w http.ResponseWriter, r *http.Request) {
	codename := codenameParam(r)
	report := &database.PsychReport{
		CodeName:           codename,
		Frequency:          strings.TrimSpace(r.FormValue("frequency")),
		MoralCompromiseLog: strings.TrimSpace(r.FormValue("moral_compromise_log")),
	}

	err := h.db.AddPsychReport(r.Context(), report)
	h.report(w, "Psychological report", database.OutcomeApplied, err, "Psychological report filed")
	h.redirect(w, r, crewPath(codename))
}

func orNone(s string) string {
	if s == "" {
		return database.NoneLabel
	}
	return s
}
