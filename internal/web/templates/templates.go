// Package templates holds the embedded HTML pages of the web interface.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/bellaciao/heistops/internal/database"
)

//go:embed *.html
var templatesFS embed.FS

// Pages lists every page template; each is parsed together with base.html
var Pages = []string{
	"dashboard.html",
	"crew.html",
	"crew_detail.html",
	"hostages.html",
	"hostage_detail.html",
	"resources.html",
	"phases.html",
	"phase_assign.html",
	"tasks.html",
	"deviations.html",
	"police.html",
	"blueprints.html",
}

// FuncMap returns the helper functions available to every template
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Local().Format("2006-01-02 15:04:05")
		},
		"pathEscape": url.PathEscape,
		"join":       strings.Join,
		"optString": func(s *string) string {
			if s == nil {
				return database.NoneLabel
			}
			return *s
		},
		"optInt": func(v *int64) string {
			if v == nil {
				return database.NoneLabel
			}
			return fmt.Sprintf("%d", *v)
		},
		"skillLabel": func(k database.SkillKind) string {
			return database.Skill{Kind: k}.Label()
		},
		"tier": database.ResourceTier,
	}
}

// Load parses every page with the base layout, keyed by page file name
func Load() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(Pages))
	for _, page := range Pages {
		tmpl, err := template.New("").Funcs(FuncMap()).ParseFS(templatesFS, "base.html", page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		out[page] = tmpl
	}
	return out, nil
}
