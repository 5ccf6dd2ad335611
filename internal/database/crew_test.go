package database

import (
	"context"
	"slices"
	"testing"
	"time"
)

func crewCodenames(crew []*CrewMember) []string {
	names := make([]string, 0, len(crew))
	for _, m := range crew {
		names = append(names, m.CodeName)
	}
	return names
}

func TestListCrew_OrderedByLoyaltyWithSkills(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Rio", "Technical", 70)
	seedCrew(t, db, "Tokyo", "Tactical", 90)
	seedCrew(t, db, "Berlin", "Strategic", 70)
	seedCrew(t, db, "Moscow", "Technical", 40)

	if _, err := db.SetCrewSkill(ctx, "Tokyo", Skill{Kind: SkillTactical, Value: "Rifles"}); err != nil {
		t.Fatalf("SetCrewSkill returned error: %v", err)
	}
	if _, err := db.AddTrait(ctx, "Tokyo", "Impulsive"); err != nil {
		t.Fatalf("AddTrait returned error: %v", err)
	}

	crew, err := db.ListCrew(ctx)
	if err != nil {
		t.Fatalf("ListCrew returned error: %v", err)
	}

	want := []string{"Tokyo", "Berlin", "Rio", "Moscow"}
	if got := crewCodenames(crew); !slices.Equal(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}

	if crew[0].Skill != (Skill{Kind: SkillTactical, Value: "Rifles"}) {
		t.Fatalf("expected tactical skill for Tokyo, got %+v", crew[0].Skill)
	}
	if !slices.Equal(crew[0].Traits, []string{"Impulsive"}) {
		t.Fatalf("expected Tokyo traits, got %v", crew[0].Traits)
	}
	// Members without a subtype row are still listed
	if crew[1].Skill.Kind != SkillNone || crew[1].Skill.Label() != "None" {
		t.Fatalf("expected no skill for Berlin, got %+v", crew[1].Skill)
	}
}

func TestSearchCrew_EmptyFiltersMatchRoster(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Tokyo", "Tactical", 90)
	seedCrew(t, db, "Rio", "Technical", 70)
	seedCrew(t, db, "Helsinki", "Tactical", 70)

	roster, err := db.ListCrew(ctx)
	if err != nil {
		t.Fatalf("ListCrew returned error: %v", err)
	}

	for _, search := range []CrewSearch{{}, {Query: "  "}, {Query: "", Specialization: " "}} {
		got, err := db.SearchCrew(ctx, search)
		if err != nil {
			t.Fatalf("SearchCrew(%+v) returned error: %v", search, err)
		}
		if !slices.Equal(crewCodenames(got), crewCodenames(roster)) {
			t.Fatalf("SearchCrew(%+v) = %v, want %v", search, crewCodenames(got), crewCodenames(roster))
		}
	}
}

func TestSearchCrew_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Tokyo", "Tactical", 90)
	seedCrew(t, db, "Rio", "Technical", 70)
	seedCrew(t, db, "Helsinki", "Tactical", 60)
	seedCrew(t, db, "Under_Score", "Logistics", 10)
	seedCrew(t, db, "Émile", "Ñúñez ops", 40)

	tests := []struct {
		name   string
		search CrewSearch
		want   []string
	}{
		{"codename substring any case", CrewSearch{Query: "TOK"}, []string{"Tokyo"}},
		{"last name substring", CrewSearch{Query: "rio-la"}, []string{"Rio"}},
		{"specialization only", CrewSearch{Specialization: "tact"}, []string{"Tokyo", "Helsinki"}},
		{"query and specialization", CrewSearch{Query: "o", Specialization: "tactical"}, []string{"Tokyo"}},
		{"wildcards are literal", CrewSearch{Query: "_"}, []string{"Under_Score"}},
		{"percent is literal", CrewSearch{Query: "%"}, nil},
		{"non-ascii exact", CrewSearch{Query: "Émile"}, []string{"Émile"}},
		{"non-ascii lower", CrewSearch{Query: "émile"}, []string{"Émile"}},
		{"non-ascii upper", CrewSearch{Query: "ÉMILE"}, []string{"Émile"}},
		{"non-ascii specialization", CrewSearch{Specialization: "ÑÚÑEZ"}, []string{"Émile"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.SearchCrew(ctx, tt.search)
			if err != nil {
				t.Fatalf("SearchCrew returned error: %v", err)
			}
			if names := crewCodenames(got); !slices.Equal(names, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, names)
			}
		})
	}
}

func TestCreateCrewWithSkill(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)

	member := &CrewMember{CodeName: "Denver", HeistID: 1, FirstName: "Daniel", LastName: "Ramos", Specialization: "Muscle", LoyaltyScore: 60}
	err := db.CreateCrewWithSkill(ctx, member, Skill{Kind: SkillTactical})
	if Kind(err) != KindInvalid {
		t.Fatalf("expected invalid skill error, got %v", err)
	}
	if got, _ := db.GetCrew(ctx, "Denver"); got != nil {
		t.Fatalf("expected no crew row after failed create, got %+v", got)
	}

	if err := db.CreateCrewWithSkill(ctx, member, Skill{Kind: SkillTactical, Value: "Shotgun"}); err != nil {
		t.Fatalf("CreateCrewWithSkill returned error: %v", err)
	}
	got, err := db.GetCrew(ctx, "Denver")
	if err != nil || got == nil {
		t.Fatalf("GetCrew = %+v, %v", got, err)
	}
	if got.Skill.Kind != SkillTactical || got.Skill.Value != "Shotgun" {
		t.Fatalf("unexpected skill %+v", got.Skill)
	}

	err = db.CreateCrewWithSkill(ctx, member, Skill{Kind: SkillStrategic, Value: "Level 2"})
	if Kind(err) != KindDuplicate {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM strategic_crew WHERE codename = ?", "Denver"); n != 0 {
		t.Fatalf("expected no strategic row after duplicate, got %d", n)
	}
}

func TestCrewCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Nairobi", "Forgery", 80)

	outcome, err := db.UpdateCrew(ctx, "Nairobi", CrewUpdate{
		FirstName: "Agata", LastName: "Jimenez", Specialization: "Quality control", LoyaltyScore: 95,
	})
	if err != nil {
		t.Fatalf("UpdateCrew returned error: %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}

	member, err := db.GetCrew(ctx, "Nairobi")
	if err != nil {
		t.Fatalf("GetCrew returned error: %v", err)
	}
	if member == nil || member.FirstName != "Agata" || member.LoyaltyScore != 95 || member.HeistID != 1 {
		t.Fatalf("unexpected member after update: %+v", member)
	}

	outcome, err = db.UpdateCrew(ctx, "Ghost", CrewUpdate{FirstName: "a", LastName: "b", Specialization: "c"})
	if err != nil {
		t.Fatalf("UpdateCrew returned error: %v", err)
	}
	if outcome != OutcomeNotFound {
		t.Fatalf("expected not found for missing member, got %s", outcome)
	}

	missing, err := db.GetCrew(ctx, "Ghost")
	if err != nil || missing != nil {
		t.Fatalf("expected nil member without error, got %+v, %v", missing, err)
	}

	outcome, err = db.DeleteCrew(ctx, "Nairobi")
	if err != nil || outcome != OutcomeApplied {
		t.Fatalf("expected applied delete, got %s, %v", outcome, err)
	}
	outcome, err = db.DeleteCrew(ctx, "Nairobi")
	if err != nil || outcome != OutcomeNotFound {
		t.Fatalf("expected not found on second delete, got %s, %v", outcome, err)
	}
}

func TestSetCrewSkill_AtMostOneSubtype(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Berlin", "Strategic", 50)

	for _, skill := range []Skill{
		{Kind: SkillStrategic, Value: "Level 5"},
		{Kind: SkillTechnical, Value: "Jewel cutting"},
	} {
		outcome, err := db.SetCrewSkill(ctx, "Berlin", skill)
		if err != nil || outcome != OutcomeApplied {
			t.Fatalf("SetCrewSkill(%+v) = %s, %v", skill, outcome, err)
		}
	}

	total := countRows(t, db, `
		SELECT (SELECT COUNT(*) FROM tactical_crew WHERE codename = ?)
		     + (SELECT COUNT(*) FROM strategic_crew WHERE codename = ?)
		     + (SELECT COUNT(*) FROM technical_crew WHERE codename = ?)
	`, "Berlin", "Berlin", "Berlin")
	if total != 1 {
		t.Fatalf("expected exactly one subtype row, got %d", total)
	}

	member, err := db.GetCrew(ctx, "Berlin")
	if err != nil {
		t.Fatalf("GetCrew returned error: %v", err)
	}
	if member.Skill.Kind != SkillTechnical || member.Skill.Label() != "Technical certification" {
		t.Fatalf("expected technical skill, got %+v", member.Skill)
	}

	outcome, err := db.SetCrewSkill(ctx, "Berlin", Skill{})
	if err != nil || outcome != OutcomeApplied {
		t.Fatalf("clearing skill = %s, %v", outcome, err)
	}
	member, _ = db.GetCrew(ctx, "Berlin")
	if member.Skill.Kind != SkillNone {
		t.Fatalf("expected skill cleared, got %+v", member.Skill)
	}

	outcome, err = db.SetCrewSkill(ctx, "Ghost", Skill{Kind: SkillTactical, Value: "Knives"})
	if err != nil || outcome != OutcomeNotFound {
		t.Fatalf("expected not found for missing member, got %s, %v", outcome, err)
	}

	if _, err := db.SetCrewSkill(ctx, "Berlin", Skill{Kind: SkillTactical}); Kind(err) != KindInvalid {
		t.Fatalf("expected invalid for empty skill value, got %v", err)
	}
}

func TestSubtypeTriggersRejectSecondSubtype(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Palermo", "Strategic", 30)

	if _, err := db.Mutate(ctx, "INSERT INTO strategic_crew (codename, security_clearance_level) VALUES (?, ?)", "Palermo", "Level 4"); err != nil {
		t.Fatalf("first subtype insert failed: %v", err)
	}

	_, err := db.Mutate(ctx, "INSERT INTO tactical_crew (codename, weapon_proficiency) VALUES (?, ?)", "Palermo", "Pistols")
	if err == nil {
		t.Fatal("expected second subtype insert to fail")
	}
	if Kind(err) != KindConstraint {
		t.Fatalf("expected constraint kind, got %s (%v)", Kind(err), err)
	}
}

func TestParseSkillKind(t *testing.T) {
	tests := []struct {
		in      string
		want    SkillKind
		wantErr bool
	}{
		{"", SkillNone, false},
		{"none", SkillNone, false},
		{" Tactical ", SkillTactical, false},
		{"STRATEGIC", SkillStrategic, false},
		{"technical", SkillTechnical, false},
		{"psychic", SkillNone, true},
	}

	for _, tt := range tests {
		got, err := ParseSkillKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseSkillKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseSkillKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAddTrait_ReportsExisting(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Denver", "Muscle", 60)

	if outcome, err := db.AddTrait(ctx, "Denver", "Loud laugh"); err != nil || outcome != OutcomeApplied {
		t.Fatalf("first AddTrait = %s, %v", outcome, err)
	}
	if outcome, err := db.AddTrait(ctx, "Denver", "Loud laugh"); err != nil || outcome != OutcomeExists {
		t.Fatalf("second AddTrait = %s, %v", outcome, err)
	}
	if outcome, err := db.AddTrait(ctx, "Ghost", "Quiet"); err != nil || outcome != OutcomeNotFound {
		t.Fatalf("AddTrait on missing member = %s, %v", outcome, err)
	}
	if got := countRows(t, db, "SELECT COUNT(*) FROM traits WHERE codename = ?", "Denver"); got != 1 {
		t.Fatalf("expected 1 trait row, got %d", got)
	}
}

func TestGetCrewDetail_ReportsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Moscow", "Digging", 75)
	seedPhase(t, db, 1, "Entry")
	seedPhase(t, db, 2, "Printing")

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, note := range []string{"calm", "anxious", "resolved"} {
		err := db.AddPsychReport(ctx, &PsychReport{
			ReportTimestamp:    base.Add(time.Duration(i) * time.Hour),
			CodeName:           "Moscow",
			Frequency:          "daily",
			MoralCompromiseLog: note,
		})
		if err != nil {
			t.Fatalf("AddPsychReport returned error: %v", err)
		}
	}
	if _, err := db.AssignCrew(ctx, 2, "Moscow"); err != nil {
		t.Fatalf("AssignCrew returned error: %v", err)
	}
	if _, err := db.RecordDeviation(ctx, "Moscow", 1); err != nil {
		t.Fatalf("RecordDeviation returned error: %v", err)
	}

	detail, err := db.GetCrewDetail(ctx, "Moscow")
	if err != nil {
		t.Fatalf("GetCrewDetail returned error: %v", err)
	}
	if detail == nil {
		t.Fatal("expected detail")
	}

	if len(detail.Reports) != 3 || detail.Reports[0].MoralCompromiseLog != "resolved" || detail.Reports[2].MoralCompromiseLog != "calm" {
		t.Fatalf("expected reports newest first, got %+v", detail.Reports)
	}
	if !detail.Reports[0].ReportTimestamp.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("expected timestamp round trip, got %v", detail.Reports[0].ReportTimestamp)
	}
	if len(detail.Phases) != 1 || detail.Phases[0].Codename != "Printing" {
		t.Fatalf("unexpected phases: %+v", detail.Phases)
	}
	if len(detail.Deviations) != 1 || detail.Deviations[0].PhaseID != 1 {
		t.Fatalf("unexpected deviations: %+v", detail.Deviations)
	}

	missing, err := db.GetCrewDetail(ctx, "Ghost")
	if err != nil || missing != nil {
		t.Fatalf("expected nil detail without error, got %+v, %v", missing, err)
	}
}

func TestDeleteCrew_RemovesDependentRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Oslo", "Muscle", 20)
	seedCrew(t, db, "Helsinki", "Muscle", 25)
	seedPhase(t, db, 1, "Entry")
	seedPhase(t, db, 2, "Vault")

	for _, phase := range []int64{1, 2} {
		if _, err := db.AssignCrew(ctx, phase, "Oslo"); err != nil {
			t.Fatalf("AssignCrew returned error: %v", err)
		}
		if _, err := db.RecordDeviation(ctx, "Oslo", phase); err != nil {
			t.Fatalf("RecordDeviation returned error: %v", err)
		}
	}
	if _, err := db.AssignCrew(ctx, 1, "Helsinki"); err != nil {
		t.Fatalf("AssignCrew returned error: %v", err)
	}
	manager := "Oslo"
	if err := db.CreateHostage(ctx, &Hostage{HostageID: 1, FirstName: "Arturo", LastName: "Roman", Status: "Hostile", ManagerCodename: &manager}); err != nil {
		t.Fatalf("CreateHostage returned error: %v", err)
	}

	outcome, err := db.DeleteCrew(ctx, "Oslo")
	if err != nil || outcome != OutcomeApplied {
		t.Fatalf("DeleteCrew = %s, %v", outcome, err)
	}

	for _, q := range []string{
		"SELECT COUNT(*) FROM assigned_to WHERE codename = ?",
		"SELECT COUNT(*) FROM deviates_from WHERE codename = ?",
		"SELECT COUNT(*) FROM hostages WHERE manager_codename = ?",
	} {
		if got := countRows(t, db, q, "Oslo"); got != 0 {
			t.Fatalf("%s: expected 0 rows, got %d", q, got)
		}
	}

	devs, err := db.ListDeviations(ctx)
	if err != nil {
		t.Fatalf("ListDeviations returned error: %v", err)
	}
	if len(devs) != 0 {
		t.Fatalf("expected no deviations after delete, got %d", len(devs))
	}

	assigned, err := db.ListAssignedCrew(ctx, 1)
	if err != nil {
		t.Fatalf("ListAssignedCrew returned error: %v", err)
	}
	if !slices.Equal(assigned, []string{"Helsinki"}) {
		t.Fatalf("expected only Helsinki assigned, got %v", assigned)
	}

	h, err := db.GetHostage(ctx, 1)
	if err != nil {
		t.Fatalf("GetHostage returned error: %v", err)
	}
	if h.ManagerCodename != nil || h.Manager() != NoneLabel {
		t.Fatalf("expected manager cleared, got %v", h.ManagerCodename)
	}
}
