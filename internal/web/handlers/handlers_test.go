package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bellaciao/heistops/internal/database"
	"github.com/bellaciao/heistops/internal/web/templates"
)

type testEnv struct {
	db     *database.DB
	router chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	tmpl, err := templates.Load()
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}

	r := chi.NewRouter()
	New(db, tmpl, nil, true).Mount(r)
	return &testEnv{db: db, router: r}
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if err := e.db.CreateHeist(ctx, &database.Heist{HeistID: 1, Name: "Royal Mint", Target: "Mint of Spain"}); err != nil {
		t.Fatalf("failed to seed heist: %v", err)
	}
	for _, m := range []*database.CrewMember{
		{CodeName: "Tokyo", HeistID: 1, FirstName: "Silene", LastName: "Oliveira", Specialization: "Assault", LoyaltyScore: 80},
		{CodeName: "Berlin", HeistID: 1, FirstName: "Andres", LastName: "de Fonollosa", Specialization: "Leadership", LoyaltyScore: 95},
	} {
		if err := e.db.CreateCrew(ctx, m); err != nil {
			t.Fatalf("failed to seed crew: %v", err)
		}
	}
	if err := e.db.CreateBlueprint(ctx, &database.Blueprint{BlueprintID: 1, LocationName: "Vault"}); err != nil {
		t.Fatalf("failed to seed blueprint: %v", err)
	}
	if err := e.db.CreateHostage(ctx, &database.Hostage{HostageID: 7, FirstName: "Arturo", LastName: "Roman", Status: "Resistant", Usefulness: 3}); err != nil {
		t.Fatalf("failed to seed hostage: %v", err)
	}
	if _, err := e.db.CreateResource(ctx, "Ammunition", 20, 50); err != nil {
		t.Fatalf("failed to seed resource: %v", err)
	}
	if err := e.db.CreatePhase(ctx, &database.Phase{PhaseID: 1, Codename: "Entry", PlannedDuration: 30}); err != nil {
		t.Fatalf("failed to seed phase: %v", err)
	}
	if err := e.db.CreatePoliceUnit(ctx, &database.PoliceUnit{UnitID: 1, UnitName: "GEO", CommandingOfficer: "Prieto"}); err != nil {
		t.Fatalf("failed to seed police unit: %v", err)
	}
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func cookieValue(rec *httptest.ResponseRecorder, name string) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name && c.MaxAge >= 0 {
			return c.Value
		}
	}
	return ""
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %s, got %s", location, got)
	}
}

func TestPages_Render(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	tests := []struct {
		path string
		want string
	}{
		{"/", "Operations dashboard"},
		{"/crew", "Tokyo"},
		{"/crew/Tokyo", "Silene"},
		{"/hostages", "Arturo"},
		{"/hostages/7", "Arturo"},
		{"/resources", "Ammunition"},
		{"/phases", "Entry"},
		{"/phases/1/assign-crew", "Berlin"},
		{"/phases/1/assign-resource", "Ammunition"},
		{"/tasks", "Assign task"},
		{"/deviations", "Record deviation"},
		{"/police", "GEO"},
		{"/blueprints", "Vault"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.get(t, tt.path)
			if rec.Code != http.StatusOK {
				t.Fatalf("GET %s = %d: %s", tt.path, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Fatalf("GET %s missing %q", tt.path, tt.want)
			}
		})
	}
}

func TestPages_RenderEmptyStore(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/", "/crew", "/hostages", "/resources", "/phases", "/tasks", "/deviations", "/police", "/blueprints"} {
		if rec := env.get(t, path); rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d: %s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestFlashIsShownOnce(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/crew", nil)
	req.AddCookie(&http.Cookie{Name: "flash", Value: "Crew member Rio added"})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "Crew member Rio added") {
		t.Fatal("expected flash message in page")
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "flash" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected flash cookie to be cleared")
	}
}

func TestCrewAdd(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	form := url.Values{
		"codename":       {"Rio"},
		"heist_id":       {"1"},
		"first_name":     {"Anibal"},
		"last_name":      {"Cortes"},
		"specialization": {"Hacker"},
		"loyalty_score":  {"70"},
		"skill_kind":     {"technical"},
		"skill_value":    {"CCNA"},
	}
	rec := env.post(t, "/crew/add", form)
	expectRedirect(t, rec, "/crew")
	if got := cookieValue(rec, "flash"); !strings.Contains(got, "Rio added") {
		t.Fatalf("expected success flash, got %q", got)
	}

	m, err := env.db.GetCrew(context.Background(), "Rio")
	if err != nil || m == nil {
		t.Fatalf("GetCrew = %v, %v", m, err)
	}
	if m.Skill.Kind != database.SkillTechnical || m.Skill.Value != "CCNA" {
		t.Fatalf("unexpected skill %+v", m.Skill)
	}

	rec = env.post(t, "/crew/add", form)
	expectRedirect(t, rec, "/crew")
	if got := cookieValue(rec, "flash_err"); !strings.Contains(got, "already exists") {
		t.Fatalf("expected duplicate flash, got %q", got)
	}
}

func TestCrewAdd_InvalidSkillWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.post(t, "/crew/add", url.Values{
		"codename":       {"Denver"},
		"heist_id":       {"1"},
		"first_name":     {"Daniel"},
		"last_name":      {"Ramos"},
		"specialization": {"Muscle"},
		"loyalty_score":  {"60"},
		"skill_kind":     {"tactical"},
		"skill_value":    {""},
	})
	expectRedirect(t, rec, "/crew")
	if got := cookieValue(rec, "flash_err"); !strings.Contains(got, "value is required") {
		t.Fatalf("expected skill error, got %q", got)
	}
	if m, err := env.db.GetCrew(context.Background(), "Denver"); err != nil || m != nil {
		t.Fatalf("expected no crew row, got %+v, %v", m, err)
	}
}

func TestCrewDelete_EscapedCodename(t *testing.T) {
	tests := []struct {
		name     string
		codename string
		path     string
	}{
		{"literal percent sequence", "A%41", "/crew/A%2541/delete"},
		{"encoded slash", "A/B", "/crew/A%2FB/delete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.seed(t)
			ctx := context.Background()

			member := &database.CrewMember{CodeName: tt.codename, HeistID: 1, FirstName: "a", LastName: "b", Specialization: "c"}
			if err := env.db.CreateCrew(ctx, member); err != nil {
				t.Fatalf("CreateCrew returned error: %v", err)
			}

			rec := env.post(t, tt.path, nil)
			expectRedirect(t, rec, "/crew")
			if m, _ := env.db.GetCrew(ctx, tt.codename); m != nil {
				t.Fatalf("expected %s to be deleted", tt.codename)
			}
		})
	}
}

func TestCrewAdd_InvalidNumber(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.post(t, "/crew/add", url.Values{"codename": {"Rio"}, "heist_id": {"1"}, "loyalty_score": {"lots"}})
	expectRedirect(t, rec, "/crew")
	if got := cookieValue(rec, "flash_err"); !strings.Contains(got, "loyalty score") {
		t.Fatalf("expected loyalty error, got %q", got)
	}
}

func TestCrewSearch(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.get(t, "/crew/search?q=tok")
	if rec.Code != http.StatusOK {
		t.Fatalf("search = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Tokyo") || strings.Contains(body, "Berlin") {
		t.Fatal("expected only Tokyo in search results")
	}
}

func TestCrewDetail_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/crew/Nairobi")
	expectRedirect(t, rec, "/crew")
	if got := cookieValue(rec, "flash_err"); !strings.Contains(got, "not found") {
		t.Fatalf("expected not found flash, got %q", got)
	}
}

func TestCrewDelete(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.post(t, "/crew/Tokyo/delete", nil)
	expectRedirect(t, rec, "/crew")
	if m, _ := env.db.GetCrew(context.Background(), "Tokyo"); m != nil {
		t.Fatal("expected Tokyo to be deleted")
	}

	rec = env.post(t, "/crew/Tokyo/delete", nil)
	if got := cookieValue(rec, "flash_err"); !strings.Contains(got, "not found") {
		t.Fatalf("expected not found flash, got %q", got)
	}
}

func TestHostageFilter(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	expectRedirect(t, env.get(t, "/hostages/filter?status="), "/hostages")
	expectRedirect(t, env.get(t, "/hostages/filter"), "/hostages")

	rec := env.get(t, "/hostages/filter?status=Resistant")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Arturo") {
		t.Fatalf("expected Arturo in filtered list, got %d", rec.Code)
	}
	rec = env.get(t, "/hostages/filter?status=Cooperative")
	if strings.Contains(rec.Body.String(), "Arturo") {
		t.Fatal("expected Arturo to be filtered out")
	}
}

func TestHostageAdd_OptionalFields(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.post(t, "/hostages/add", url.Values{
		"hostage_id":       {"8"},
		"first_name":       {"Monica"},
		"last_name":        {"Gaztambide"},
		"status":           {"Cooperative"},
		"usefulness":       {"6"},
		"instigator":       {"on"},
		"manager_codename": {""},
		"blueprint_id":     {"1"},
	})
	expectRedirect(t, rec, "/hostages")

	h, err := env.db.GetHostage(context.Background(), 8)
	if err != nil || h == nil {
		t.Fatalf("GetHostage = %v, %v", h, err)
	}
	if h.ManagerCodename != nil || !h.Instigator || h.Location() != "Vault" {
		t.Fatalf("unexpected hostage %+v", h)
	}
}

func TestResourceUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.post(t, "/resources/1/update", url.Values{"quantity": {"120"}})
	expectRedirect(t, rec, "/resources")
	res, err := env.db.GetResource(context.Background(), 1)
	if err != nil || res == nil || res.CurrentQuantity != 120 {
		t.Fatalf("GetResource = %+v, %v", res, err)
	}

	rec = env.post(t, "/resources/99/update", url.Values{"quantity": {"1"}})
	if got := cookieValue(rec, "flash_err"); !strings.Contains(got, "not found") {
		t.Fatalf("expected not found flash, got %q", got)
	}

	rec = env.post(t, "/resources/1/update", url.Values{"quantity": {"-1"}})
	if got := cookieValue(rec, "flash_err"); got == "" {
		t.Fatal("expected validation flash for negative quantity")
	}
}

func TestPhaseAssignCrew_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.post(t, "/phases/1/assign-crew", url.Values{"codename": {"Tokyo"}})
	expectRedirect(t, rec, "/phases")
	if got := cookieValue(rec, "flash"); !strings.Contains(got, "assigned") {
		t.Fatalf("expected success flash, got %q", got)
	}

	rec = env.post(t, "/phases/1/assign-crew", url.Values{"codename": {"Tokyo"}})
	if got := cookieValue(rec, "flash_err"); !strings.Contains(got, "already exists") {
		t.Fatalf("expected already exists flash, got %q", got)
	}

	rec = env.get(t, "/phases/1/assign-crew")
	if strings.Contains(rec.Body.String(), `value="Tokyo"`) {
		t.Fatal("assigned crew member should not be offered again")
	}

	rec = env.post(t, "/phases/1/remove-crew/Tokyo", nil)
	if got := cookieValue(rec, "flash"); !strings.Contains(got, "removed") {
		t.Fatalf("expected removal flash, got %q", got)
	}
}

func TestPhaseAssignResource_MissingPhase(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.post(t, "/phases/42/assign-resource", url.Values{"resource_id": {"1"}})
	if got := cookieValue(rec, "flash_err"); !strings.Contains(got, "not found") {
		t.Fatalf("expected not found flash, got %q", got)
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec := env.get(t, "/export/hostages")
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "hostages_export_") {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasSuffix(strings.TrimSpace(lines[1]), "None") {
		t.Fatalf("unexpected export body %q", rec.Body.String())
	}

	if rec := env.get(t, "/export/vault"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown kind, got %d", rec.Code)
	}
}

func TestCharts(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/loyalty-chart")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", rec.Body.String())
	}

	env.seed(t)
	rec = env.get(t, "/api/loyalty-chart")
	var rows []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(rows) != 2 || rows[0]["CodeName"] != "Berlin" {
		t.Fatalf("unexpected loyalty rows %v", rows)
	}

	rec = env.get(t, "/api/resource-chart")
	rows = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(rows) != 1 || rows[0]["Type"] != "Ammunition" {
		t.Fatalf("unexpected resource rows %v", rows)
	}
}

func TestCharts_Unavailable(t *testing.T) {
	env := newTestEnv(t)
	env.db.Close()

	rec := env.get(t, "/api/resource-chart")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on closed store, got %d", rec.Code)
	}
}
