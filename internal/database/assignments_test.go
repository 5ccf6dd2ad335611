package database

import (
	"context"
	"slices"
	"testing"
)

func TestAssignCrew_SecondAssignmentReportsExists(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Denver", "Muscle", 60)
	seedPhase(t, db, 1, "Entry")

	outcome, err := db.AssignCrew(ctx, 1, "Denver")
	if err != nil || outcome != OutcomeApplied {
		t.Fatalf("first AssignCrew = %s, %v", outcome, err)
	}
	outcome, err = db.AssignCrew(ctx, 1, "Denver")
	if err != nil {
		t.Fatalf("second AssignCrew returned error: %v", err)
	}
	if outcome != OutcomeExists {
		t.Fatalf("expected already assigned, got %s", outcome)
	}

	if got := countRows(t, db, "SELECT COUNT(*) FROM assigned_to WHERE phase_id = 1 AND codename = 'Denver'"); got != 1 {
		t.Fatalf("expected exactly one tuple, got %d", got)
	}
}

func TestAssignCrew_MissingParents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Denver", "Muscle", 60)
	seedPhase(t, db, 1, "Entry")

	if outcome, err := db.AssignCrew(ctx, 99, "Denver"); err != nil || outcome != OutcomeNotFound {
		t.Fatalf("AssignCrew to missing phase = %s, %v", outcome, err)
	}
	if outcome, err := db.AssignCrew(ctx, 1, "Ghost"); err != nil || outcome != OutcomeNotFound {
		t.Fatalf("AssignCrew of missing member = %s, %v", outcome, err)
	}
	if outcome, err := db.UnassignCrew(ctx, 1, "Denver"); err != nil || outcome != OutcomeNotFound {
		t.Fatalf("UnassignCrew without tuple = %s, %v", outcome, err)
	}
}

func TestAssignableCrew_AntiJoin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	for _, name := range []string{"Tokyo", "Rio", "Denver", "Nairobi", "Helsinki"} {
		seedCrew(t, db, name, "Any", 50)
	}
	seedPhase(t, db, 1, "Entry")
	seedPhase(t, db, 2, "Vault")

	for _, name := range []string{"Rio", "Nairobi"} {
		if _, err := db.AssignCrew(ctx, 1, name); err != nil {
			t.Fatalf("AssignCrew returned error: %v", err)
		}
	}
	if _, err := db.AssignCrew(ctx, 2, "Tokyo"); err != nil {
		t.Fatalf("AssignCrew returned error: %v", err)
	}

	roster, err := db.ListCrewCodenames(ctx)
	if err != nil {
		t.Fatalf("ListCrewCodenames returned error: %v", err)
	}

	for _, phase := range []int64{1, 2, 3} {
		assignable, err := db.ListAssignableCrew(ctx, phase)
		if err != nil {
			t.Fatalf("ListAssignableCrew returned error: %v", err)
		}
		assigned, err := db.ListAssignedCrew(ctx, phase)
		if err != nil {
			t.Fatalf("ListAssignedCrew returned error: %v", err)
		}

		if !slices.IsSorted(assignable) {
			t.Fatalf("phase %d: assignable crew not ordered by codename: %v", phase, assignable)
		}
		for _, name := range assigned {
			if slices.Contains(assignable, name) {
				t.Fatalf("phase %d: %s is both assigned and assignable", phase, name)
			}
		}

		union := append(slices.Clone(assignable), assigned...)
		slices.Sort(union)
		if !slices.Equal(union, roster) {
			t.Fatalf("phase %d: union %v does not equal roster %v", phase, union, roster)
		}
	}
}

func TestRequireResource_AndAssignableResources(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedPhase(t, db, 1, "Entry")

	masks, _ := db.CreateResource(ctx, "Masks", 10, 2)
	drills, _ := db.CreateResource(ctx, "Drills", 1, 2)
	cash, _ := db.CreateResource(ctx, "Cash", 100, 2)

	if outcome, err := db.RequireResource(ctx, 1, drills); err != nil || outcome != OutcomeApplied {
		t.Fatalf("RequireResource = %s, %v", outcome, err)
	}
	if outcome, err := db.RequireResource(ctx, 1, drills); err != nil || outcome != OutcomeExists {
		t.Fatalf("second RequireResource = %s, %v", outcome, err)
	}
	if outcome, err := db.RequireResource(ctx, 1, 999); err != nil || outcome != OutcomeNotFound {
		t.Fatalf("RequireResource of missing resource = %s, %v", outcome, err)
	}

	assignable, err := db.ListAssignableResources(ctx, 1)
	if err != nil {
		t.Fatalf("ListAssignableResources returned error: %v", err)
	}
	if len(assignable) != 2 || assignable[0].ResourceID != cash || assignable[1].ResourceID != masks {
		t.Fatalf("expected [Cash Masks], got %+v", assignable)
	}

	reqs, err := db.ListPhaseRequirements(ctx)
	if err != nil {
		t.Fatalf("ListPhaseRequirements returned error: %v", err)
	}
	if len(reqs) != 1 || reqs[0].ResourceType != "Drills" || reqs[0].Status() != SupplyCritical {
		t.Fatalf("unexpected requirements: %+v", reqs)
	}

	if outcome, err := db.UnrequireResource(ctx, 1, drills); err != nil || outcome != OutcomeApplied {
		t.Fatalf("UnrequireResource = %s, %v", outcome, err)
	}
	assignable, _ = db.ListAssignableResources(ctx, 1)
	if len(assignable) != 3 {
		t.Fatalf("expected all resources assignable after removal, got %d", len(assignable))
	}
}

func TestListPhases_FanOut(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Tokyo", "Tactical", 90)
	seedCrew(t, db, "Rio", "Technical", 70)
	seedPhase(t, db, 2, "Vault")
	seedPhase(t, db, 1, "Entry")
	seedPhase(t, db, 3, "Escape")

	guns, _ := db.CreateResource(ctx, "Guns", 5, 1)
	if _, err := db.RequireResource(ctx, 1, guns); err != nil {
		t.Fatalf("RequireResource returned error: %v", err)
	}
	for _, name := range []string{"Tokyo", "Rio"} {
		if _, err := db.AssignCrew(ctx, 2, name); err != nil {
			t.Fatalf("AssignCrew returned error: %v", err)
		}
	}

	phases, err := db.ListPhases(ctx)
	if err != nil {
		t.Fatalf("ListPhases returned error: %v", err)
	}
	if len(phases) != 3 || phases[0].PhaseID != 1 || phases[1].PhaseID != 2 || phases[2].PhaseID != 3 {
		t.Fatalf("expected phases ordered by id, got %+v", phases)
	}
	if len(phases[0].Requirements) != 1 || phases[0].Requirements[0].Type != "Guns" {
		t.Fatalf("unexpected requirements for phase 1: %+v", phases[0].Requirements)
	}
	if len(phases[1].Crew) != 2 || phases[1].Crew[0].CodeName != "Rio" {
		t.Fatalf("unexpected crew for phase 2: %+v", phases[1].Crew)
	}
	if len(phases[2].Crew) != 0 || len(phases[2].Requirements) != 0 {
		t.Fatalf("expected empty fan-out for phase 3, got %+v", phases[2])
	}
	if phases[0].CurrentDissonance != 0 {
		t.Fatalf("expected default dissonance 0, got %d", phases[0].CurrentDissonance)
	}

	if err := db.CreatePhase(ctx, &Phase{PhaseID: 1, Codename: "Again", PlannedDuration: 5}); Kind(err) != KindDuplicate {
		t.Fatalf("expected duplicate phase id, got %v", err)
	}
}

func TestDeletePhase_RemovesDependentRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Tokyo", "Tactical", 90)
	seedPhase(t, db, 1, "Entry")
	seedBlueprint(t, db, 1, "Lobby")
	guns, _ := db.CreateResource(ctx, "Guns", 5, 1)

	if _, err := db.AssignCrew(ctx, 1, "Tokyo"); err != nil {
		t.Fatalf("AssignCrew returned error: %v", err)
	}
	if _, err := db.RequireResource(ctx, 1, guns); err != nil {
		t.Fatalf("RequireResource returned error: %v", err)
	}
	if _, err := db.AssignTask(ctx, TaskAssignment{PhaseID: 1, CodeName: "Tokyo", ResourceID: guns, BlueprintID: 1}); err != nil {
		t.Fatalf("AssignTask returned error: %v", err)
	}
	if _, err := db.RecordDeviation(ctx, "Tokyo", 1); err != nil {
		t.Fatalf("RecordDeviation returned error: %v", err)
	}

	outcome, err := db.DeletePhase(ctx, 1)
	if err != nil || outcome != OutcomeApplied {
		t.Fatalf("DeletePhase = %s, %v", outcome, err)
	}
	for _, table := range []string{"assigned_to", "requires", "task_assignments", "deviates_from"} {
		if got := countRows(t, db, "SELECT COUNT(*) FROM "+table+" WHERE phase_id = 1"); got != 0 {
			t.Fatalf("%s: expected 0 rows, got %d", table, got)
		}
	}
	if p, err := db.GetPhase(ctx, 1); err != nil || p != nil {
		t.Fatalf("GetPhase after delete = %+v, %v", p, err)
	}
}

func TestTaskAssignments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Tokyo", "Tactical", 90)
	seedCrew(t, db, "Berlin", "Strategic", 80)
	seedPhase(t, db, 1, "Entry")
	seedPhase(t, db, 2, "Vault")
	seedBlueprint(t, db, 1, "Lobby")
	guns, _ := db.CreateResource(ctx, "Guns", 5, 1)

	tasks := []TaskAssignment{
		{PhaseID: 2, CodeName: "Berlin", ResourceID: guns, BlueprintID: 1},
		{PhaseID: 1, CodeName: "Tokyo", ResourceID: guns, BlueprintID: 1},
		{PhaseID: 1, CodeName: "Berlin", ResourceID: guns, BlueprintID: 1},
	}
	for _, task := range tasks {
		if outcome, err := db.AssignTask(ctx, task); err != nil || outcome != OutcomeApplied {
			t.Fatalf("AssignTask(%+v) = %s, %v", task, outcome, err)
		}
	}
	if outcome, err := db.AssignTask(ctx, tasks[0]); err != nil || outcome != OutcomeExists {
		t.Fatalf("duplicate AssignTask = %s, %v", outcome, err)
	}
	if outcome, err := db.AssignTask(ctx, TaskAssignment{PhaseID: 1, CodeName: "Tokyo", ResourceID: guns, BlueprintID: 9}); err != nil || outcome != OutcomeNotFound {
		t.Fatalf("AssignTask with missing blueprint = %s, %v", outcome, err)
	}

	view, err := db.ListTaskAssignments(ctx)
	if err != nil {
		t.Fatalf("ListTaskAssignments returned error: %v", err)
	}
	got := make([]string, 0, len(view))
	for _, v := range view {
		got = append(got, v.PhaseCodename+"/"+v.CodeName)
	}
	want := []string{"Entry/Berlin", "Entry/Tokyo", "Vault/Berlin"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if view[0].LocationName != "Lobby" || view[0].ResourceType != "Guns" || view[0].Specialization != "Strategic" {
		t.Fatalf("unexpected joined columns: %+v", view[0])
	}

	if outcome, err := db.RemoveTask(ctx, tasks[0]); err != nil || outcome != OutcomeApplied {
		t.Fatalf("RemoveTask = %s, %v", outcome, err)
	}
	if outcome, err := db.RemoveTask(ctx, tasks[0]); err != nil || outcome != OutcomeNotFound {
		t.Fatalf("second RemoveTask = %s, %v", outcome, err)
	}
}

func TestDeviations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedHeist(t, db)
	seedCrew(t, db, "Berlin", "Strategic", 80)
	seedPhase(t, db, 1, "Entry")

	if outcome, err := db.RecordDeviation(ctx, "Berlin", 1); err != nil || outcome != OutcomeApplied {
		t.Fatalf("RecordDeviation = %s, %v", outcome, err)
	}
	if outcome, err := db.RecordDeviation(ctx, "Berlin", 1); err != nil || outcome != OutcomeExists {
		t.Fatalf("second RecordDeviation = %s, %v", outcome, err)
	}

	devs, err := db.ListDeviations(ctx)
	if err != nil {
		t.Fatalf("ListDeviations returned error: %v", err)
	}
	if len(devs) != 1 || devs[0].CodeName != "Berlin" || devs[0].PhaseCodename != "Entry" {
		t.Fatalf("unexpected deviations: %+v", devs)
	}

	if outcome, err := db.RemoveDeviation(ctx, "Berlin", 1); err != nil || outcome != OutcomeApplied {
		t.Fatalf("RemoveDeviation = %s, %v", outcome, err)
	}
}
