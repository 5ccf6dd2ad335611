package database

import (
	"context"
	"testing"
)

func TestResourceTier(t *testing.T) {
	tests := []struct {
		quantity  int
		threshold int
		want      Tier
	}{
		{10, 10, TierCritical},
		{0, 10, TierCritical},
		{11, 10, TierWarning},
		{20, 10, TierWarning},
		{21, 10, TierGood},
		{0, 0, TierCritical},
		{1, 0, TierGood},
	}

	for _, tt := range tests {
		if got := ResourceTier(tt.quantity, tt.threshold); got != tt.want {
			t.Errorf("ResourceTier(%d, %d) = %s, want %s", tt.quantity, tt.threshold, got, tt.want)
		}
	}
}

func TestSupplyStatus_HasNoWarningBand(t *testing.T) {
	tests := []struct {
		quantity  int
		threshold int
		want      Supply
	}{
		{10, 10, SupplyCritical},
		{11, 10, SupplyOK},
		{20, 10, SupplyOK},
		{21, 10, SupplyOK},
	}

	for _, tt := range tests {
		if got := SupplyStatus(tt.quantity, tt.threshold); got != tt.want {
			t.Errorf("SupplyStatus(%d, %d) = %s, want %s", tt.quantity, tt.threshold, got, tt.want)
		}
	}
}

func resourceByID(t *testing.T, resources []*Resource, id int64) *Resource {
	t.Helper()
	for _, r := range resources {
		if r.ResourceID == id {
			return r
		}
	}
	t.Fatalf("resource %d not in roster", id)
	return nil
}

func TestAmmunitionScenario(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.CreateResource(ctx, "Ammunition", 5, 5)
	if err != nil {
		t.Fatalf("CreateResource returned error: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected system-assigned id, got %d", id)
	}

	roster, err := db.ListResources(ctx)
	if err != nil {
		t.Fatalf("ListResources returned error: %v", err)
	}
	if tier := resourceByID(t, roster, id).Tier(); tier != TierCritical {
		t.Fatalf("expected critical, got %s", tier)
	}

	outcome, err := db.UpdateResourceQuantity(ctx, id, 50)
	if err != nil || outcome != OutcomeApplied {
		t.Fatalf("UpdateResourceQuantity = %s, %v", outcome, err)
	}

	roster, err = db.ListResources(ctx)
	if err != nil {
		t.Fatalf("ListResources returned error: %v", err)
	}
	if tier := resourceByID(t, roster, id).Tier(); tier != TierGood {
		t.Fatalf("expected good, got %s", tier)
	}
}

func TestCreateResource_AssignsDistinctIDsAndOrdersByType(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := db.CreateResource(ctx, "Masks", 30, 10)
	if err != nil {
		t.Fatalf("CreateResource returned error: %v", err)
	}
	second, err := db.CreateResource(ctx, "Detonators", 4, 2)
	if err != nil {
		t.Fatalf("CreateResource returned error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct ids, got %d twice", first)
	}

	roster, err := db.ListResources(ctx)
	if err != nil {
		t.Fatalf("ListResources returned error: %v", err)
	}
	if len(roster) != 2 || roster[0].Type != "Detonators" || roster[1].Type != "Masks" {
		t.Fatalf("expected roster ordered by type, got %+v", roster)
	}
}

func TestCreateResource_RejectsInvalidInput(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		typ       string
		quantity  int
		threshold int
	}{
		{"empty type", "", 1, 1},
		{"negative quantity", "Masks", -1, 1},
		{"negative threshold", "Masks", 1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.CreateResource(ctx, tt.typ, tt.quantity, tt.threshold); Kind(err) != KindInvalid {
				t.Fatalf("expected invalid, got %v", err)
			}
		})
	}

	if _, err := db.UpdateResourceQuantity(ctx, 1, -5); Kind(err) != KindInvalid {
		t.Fatalf("expected invalid for negative quantity, got %v", err)
	}
}

func TestUpdateAndDeleteResource_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if outcome, err := db.UpdateResourceQuantity(ctx, 404, 1); err != nil || outcome != OutcomeNotFound {
		t.Fatalf("UpdateResourceQuantity = %s, %v", outcome, err)
	}
	if outcome, err := db.DeleteResource(ctx, 404); err != nil || outcome != OutcomeNotFound {
		t.Fatalf("DeleteResource = %s, %v", outcome, err)
	}
	if r, err := db.GetResource(ctx, 404); err != nil || r != nil {
		t.Fatalf("GetResource = %+v, %v", r, err)
	}
}

func TestDeleteResource_RemovesRequirementsAndTasks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Rio", "Technical", 70)
	seedPhase(t, db, 1, "Entry")
	seedBlueprint(t, db, 1, "Server room")

	id, err := db.CreateResource(ctx, "Laptops", 3, 1)
	if err != nil {
		t.Fatalf("CreateResource returned error: %v", err)
	}
	if _, err := db.RequireResource(ctx, 1, id); err != nil {
		t.Fatalf("RequireResource returned error: %v", err)
	}
	if _, err := db.AssignTask(ctx, TaskAssignment{PhaseID: 1, CodeName: "Rio", ResourceID: id, BlueprintID: 1}); err != nil {
		t.Fatalf("AssignTask returned error: %v", err)
	}

	outcome, err := db.DeleteResource(ctx, id)
	if err != nil || outcome != OutcomeApplied {
		t.Fatalf("DeleteResource = %s, %v", outcome, err)
	}

	phase, err := db.GetPhase(ctx, 1)
	if err != nil {
		t.Fatalf("GetPhase returned error: %v", err)
	}
	if len(phase.Requirements) != 0 {
		t.Fatalf("expected no requirements, got %+v", phase.Requirements)
	}
	tasks, err := db.ListTaskAssignments(ctx)
	if err != nil {
		t.Fatalf("ListTaskAssignments returned error: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(tasks))
	}
}
