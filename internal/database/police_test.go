package database

import (
	"context"
	"slices"
	"testing"
)

func TestPoliceUnits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Professor", "Strategic", 100)
	seedBlueprint(t, db, 1, "Main gate")

	if err := db.CreatePoliceUnit(ctx, &PoliceUnit{UnitID: 1, UnitName: "Negotiation cell", CommandingOfficer: "Murillo"}); err != nil {
		t.Fatalf("CreatePoliceUnit returned error: %v", err)
	}
	if outcome, err := db.LinkCommunication(ctx, 1, "Professor", "Red phone"); err != nil || outcome != OutcomeApplied {
		t.Fatalf("LinkCommunication = %s, %v", outcome, err)
	}
	if outcome, err := db.LinkCommunication(ctx, 1, "Professor", "Red phone"); err != nil || outcome != OutcomeExists {
		t.Fatalf("second LinkCommunication = %s, %v", outcome, err)
	}
	if outcome, err := db.MonitorBlueprint(ctx, 1, 1); err != nil || outcome != OutcomeApplied {
		t.Fatalf("MonitorBlueprint = %s, %v", outcome, err)
	}

	unit := int64(1)
	codename := "Professor"
	id, err := db.RecordNegotiation(ctx, &Negotiation{UnitID: &unit, CodeName: &codename, Outcome: "Stalled"})
	if err != nil {
		t.Fatalf("RecordNegotiation returned error: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected negotiation id, got %d", id)
	}

	units, err := db.ListPoliceUnits(ctx)
	if err != nil {
		t.Fatalf("ListPoliceUnits returned error: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	u := units[0]
	if !slices.Equal(u.Contacts, []string{"Professor"}) || !slices.Equal(u.Monitored, []string{"Main gate"}) || u.Negotiations != 1 {
		t.Fatalf("unexpected unit fan-out: %+v", u)
	}

	outcome, err := db.DeletePoliceUnit(ctx, 1)
	if err != nil || outcome != OutcomeApplied {
		t.Fatalf("DeletePoliceUnit = %s, %v", outcome, err)
	}
	for _, q := range []string{
		"SELECT COUNT(*) FROM communicates_with WHERE unit_id = 1",
		"SELECT COUNT(*) FROM monitors WHERE unit_id = 1",
		"SELECT COUNT(*) FROM negotiations WHERE unit_id = 1",
	} {
		if got := countRows(t, db, q); got != 0 {
			t.Fatalf("%s: expected 0, got %d", q, got)
		}
	}

	negotiations, err := db.ListNegotiations(ctx)
	if err != nil {
		t.Fatalf("ListNegotiations returned error: %v", err)
	}
	if len(negotiations) != 1 || negotiations[0].UnitID != nil || negotiations[0].CodeName == nil {
		t.Fatalf("expected negotiation kept with unit cleared, got %+v", negotiations)
	}

	if outcome, err := db.DeletePoliceUnit(ctx, 1); err != nil || outcome != OutcomeNotFound {
		t.Fatalf("second DeletePoliceUnit = %s, %v", outcome, err)
	}
}

func TestDeleteBlueprint_UnplacesHostages(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedBlueprint(t, db, 1, "Vault")

	blueprint := int64(1)
	if err := db.CreateHostage(ctx, &Hostage{HostageID: 1, FirstName: "a", LastName: "b", Status: "Compliant", BlueprintID: &blueprint}); err != nil {
		t.Fatalf("CreateHostage returned error: %v", err)
	}

	outcome, err := db.DeleteBlueprint(ctx, 1)
	if err != nil || outcome != OutcomeApplied {
		t.Fatalf("DeleteBlueprint = %s, %v", outcome, err)
	}

	h, err := db.GetHostage(ctx, 1)
	if err != nil {
		t.Fatalf("GetHostage returned error: %v", err)
	}
	if h.BlueprintID != nil || h.Location() != NoneLabel {
		t.Fatalf("expected hostage unplaced, got %+v", h)
	}

	blueprints, err := db.ListBlueprints(ctx)
	if err != nil {
		t.Fatalf("ListBlueprints returned error: %v", err)
	}
	if len(blueprints) != 0 {
		t.Fatalf("expected no blueprints, got %d", len(blueprints))
	}
}

func TestGetDashboardStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	for i, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"} {
		seedCrew(t, db, name, "Any", i*5)
	}
	seedPhase(t, db, 1, "Entry")
	for i, status := range []string{"Compliant", "Compliant", "Hostile"} {
		if err := db.CreateHostage(ctx, &Hostage{HostageID: int64(i + 1), FirstName: "x", LastName: "y", Status: status}); err != nil {
			t.Fatalf("CreateHostage returned error: %v", err)
		}
	}
	if _, err := db.CreateResource(ctx, "Ammunition", 5, 5); err != nil {
		t.Fatalf("CreateResource returned error: %v", err)
	}
	if _, err := db.CreateResource(ctx, "Masks", 50, 5); err != nil {
		t.Fatalf("CreateResource returned error: %v", err)
	}

	stats, err := db.GetDashboardStats(ctx)
	if err != nil {
		t.Fatalf("GetDashboardStats returned error: %v", err)
	}
	if stats.CrewCount != 12 || stats.HostageCount != 3 || stats.PhaseCount != 1 || stats.CriticalResources != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
	if len(stats.TopLoyalty) != dashboardTopLoyalty || stats.TopLoyalty[0].CodeName != "L" {
		t.Fatalf("unexpected loyalty series: %+v", stats.TopLoyalty)
	}
	if len(stats.HostageStatuses) != 2 || stats.HostageStatuses[0] != (StatusCount{Status: "Compliant", Count: 2}) {
		t.Fatalf("unexpected status distribution: %+v", stats.HostageStatuses)
	}
	if len(stats.PhaseProgress) != 1 || stats.PhaseProgress[0].PlannedDuration != 60 {
		t.Fatalf("unexpected phase progress: %+v", stats.PhaseProgress)
	}

	rows, err := db.LoyaltyChartRows(ctx)
	if err != nil {
		t.Fatalf("LoyaltyChartRows returned error: %v", err)
	}
	if len(rows) != 12 || rows[0]["CodeName"] != "L" {
		t.Fatalf("unexpected loyalty chart rows: %v", rows)
	}

	rows, err = db.ResourceChartRows(ctx)
	if err != nil {
		t.Fatalf("ResourceChartRows returned error: %v", err)
	}
	if len(rows) != 2 || rows[0]["Type"] != "Ammunition" {
		t.Fatalf("unexpected resource chart rows: %v", rows)
	}
}
