package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TaskAssignment records that a crew member used a resource at a location during a phase
type TaskAssignment struct {
	PhaseID     int64
	CodeName    string
	ResourceID  int64
	BlueprintID int64

	// Populated by ListTaskAssignments
	PhaseCodename  string
	Specialization string
	ResourceType   string
	LocationName   string
}

// PhaseRequirement is a phase resource requirement with its current stock
type PhaseRequirement struct {
	PhaseID           int64
	PhaseCodename     string
	ResourceID        int64
	ResourceType      string
	CurrentQuantity   int
	CriticalThreshold int
}

// Status returns the binary CRITICAL/OK supply status of the requirement
func (r *PhaseRequirement) Status() Supply {
	return SupplyStatus(r.CurrentQuantity, r.CriticalThreshold)
}

// Deviation is a crew member who deviated from a phase
type Deviation struct {
	CodeName      string
	FirstName     string
	LastName      string
	PhaseID       int64
	PhaseCodename string
}

// junctionInsert describes a set-semantics insert into a composite-key table
type junctionInsert struct {
	parents []parentCheck
	dup     string
	insert  string

	// keyLen is how many leading args form the key checked by dup; zero means all
	keyLen int
}

type parentCheck struct {
	query string
	arg   any
}

// insertJunction runs a junction insert in one transaction. A missing parent reports
// OutcomeNotFound and an existing tuple reports OutcomeExists without writing.
func (db *DB) insertJunction(ctx context.Context, j junctionInsert, args ...any) (Outcome, error) {
	outcome := OutcomeApplied
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, p := range j.parents {
			found, err := exists(ctx, tx, p.query, p.arg)
			if err != nil {
				return err
			}
			if !found {
				outcome = OutcomeNotFound
				return nil
			}
		}

		key := args
		if j.keyLen > 0 {
			key = args[:j.keyLen]
		}
		dup, err := exists(ctx, tx, j.dup, key...)
		if err != nil {
			return err
		}
		if dup {
			outcome = OutcomeExists
			return nil
		}

		_, err = tx.ExecContext(ctx, j.insert, args...)
		return err
	})
	if err != nil {
		return OutcomeNotFound, err
	}
	return outcome, nil
}

func crewParent(codename string) parentCheck {
	return parentCheck{query: "SELECT 1 FROM crew_members WHERE codename = ?", arg: codename}
}

func phaseParent(id int64) parentCheck {
	return parentCheck{query: "SELECT 1 FROM plan_phases WHERE phase_id = ?", arg: id}
}

func resourceParent(id int64) parentCheck {
	return parentCheck{query: "SELECT 1 FROM resources WHERE resource_id = ?", arg: id}
}

func blueprintParent(id int64) parentCheck {
	return parentCheck{query: "SELECT 1 FROM heist_blueprints WHERE blueprint_id = ?", arg: id}
}

// AssignCrew assigns a crew member to a phase. Assigning twice reports OutcomeExists.
func (db *DB) AssignCrew(ctx context.Context, phaseID int64, codename string) (Outcome, error) {
	outcome, err := db.insertJunction(ctx, junctionInsert{
		parents: []parentCheck{phaseParent(phaseID), crewParent(codename)},
		dup:     "SELECT 1 FROM assigned_to WHERE phase_id = ? AND codename = ?",
		insert:  "INSERT INTO assigned_to (phase_id, codename) VALUES (?, ?)",
	}, phaseID, codename)
	if err != nil {
		return outcome, fmt.Errorf("failed to assign crew: %w", err)
	}
	return outcome, nil
}

// UnassignCrew removes a crew member from a phase
func (db *DB) UnassignCrew(ctx context.Context, phaseID int64, codename string) (Outcome, error) {
	affected, err := db.Mutate(ctx, "DELETE FROM assigned_to WHERE phase_id = ? AND codename = ?", phaseID, codename)
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to unassign crew: %w", err)
	}
	return outcomeOf(affected), nil
}

// ListAssignedCrew returns the codenames assigned to a phase in alphabetical order
func (db *DB) ListAssignedCrew(ctx context.Context, phaseID int64) ([]string, error) {
	return db.listCodenames(ctx, `
		SELECT codename FROM assigned_to WHERE phase_id = ? ORDER BY codename
	`, phaseID)
}

// ListAssignableCrew returns the codenames not yet assigned to a phase in alphabetical order
func (db *DB) ListAssignableCrew(ctx context.Context, phaseID int64) ([]string, error) {
	return db.listCodenames(ctx, `
		SELECT codename FROM crew_members
		WHERE codename NOT IN (SELECT codename FROM assigned_to WHERE phase_id = ?)
		ORDER BY codename
	`, phaseID)
}

func (db *DB) listCodenames(ctx context.Context, query string, args ...any) ([]string, error) {
	names := []string{}
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		names = append(names, name)
		return nil
	}, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list codenames: %w", err)
	}
	return names, nil
}

// RequireResource marks a resource as required by a phase. Requiring twice reports OutcomeExists.
func (db *DB) RequireResource(ctx context.Context, phaseID, resourceID int64) (Outcome, error) {
	outcome, err := db.insertJunction(ctx, junctionInsert{
		parents: []parentCheck{phaseParent(phaseID), resourceParent(resourceID)},
		dup:     "SELECT 1 FROM requires WHERE phase_id = ? AND resource_id = ?",
		insert:  "INSERT INTO requires (phase_id, resource_id) VALUES (?, ?)",
	}, phaseID, resourceID)
	if err != nil {
		return outcome, fmt.Errorf("failed to require resource: %w", err)
	}
	return outcome, nil
}

// UnrequireResource removes a resource requirement from a phase
func (db *DB) UnrequireResource(ctx context.Context, phaseID, resourceID int64) (Outcome, error) {
	affected, err := db.Mutate(ctx, "DELETE FROM requires WHERE phase_id = ? AND resource_id = ?", phaseID, resourceID)
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to remove requirement: %w", err)
	}
	return outcomeOf(affected), nil
}

// ListAssignableResources returns resources a phase does not require yet, by type
func (db *DB) ListAssignableResources(ctx context.Context, phaseID int64) ([]*Resource, error) {
	return db.listResources(ctx, `
		SELECT resource_id, type, current_quantity, critical_threshold
		FROM resources
		WHERE resource_id NOT IN (SELECT resource_id FROM requires WHERE phase_id = ?)
		ORDER BY type, resource_id
	`, phaseID)
}

// AssignTask records a task assignment. Recording the same tuple twice reports OutcomeExists.
func (db *DB) AssignTask(ctx context.Context, t TaskAssignment) (Outcome, error) {
	outcome, err := db.insertJunction(ctx, junctionInsert{
		parents: []parentCheck{
			phaseParent(t.PhaseID),
			crewParent(t.CodeName),
			resourceParent(t.ResourceID),
			blueprintParent(t.BlueprintID),
		},
		dup: `SELECT 1 FROM task_assignments
			WHERE phase_id = ? AND codename = ? AND resource_id = ? AND blueprint_id = ?`,
		insert: `INSERT INTO task_assignments (phase_id, codename, resource_id, blueprint_id)
			VALUES (?, ?, ?, ?)`,
	}, t.PhaseID, t.CodeName, t.ResourceID, t.BlueprintID)
	if err != nil {
		return outcome, fmt.Errorf("failed to assign task: %w", err)
	}
	return outcome, nil
}

// RemoveTask deletes a task assignment by its full key
func (db *DB) RemoveTask(ctx context.Context, t TaskAssignment) (Outcome, error) {
	affected, err := db.Mutate(ctx, `
		DELETE FROM task_assignments
		WHERE phase_id = ? AND codename = ? AND resource_id = ? AND blueprint_id = ?
	`, t.PhaseID, t.CodeName, t.ResourceID, t.BlueprintID)
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to remove task: %w", err)
	}
	return outcomeOf(affected), nil
}

// ListTaskAssignments returns the joined task assignment view by phase, then codename
func (db *DB) ListTaskAssignments(ctx context.Context) ([]*TaskAssignment, error) {
	var tasks []*TaskAssignment
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		var t TaskAssignment
		if err := rows.Scan(&t.PhaseID, &t.PhaseCodename, &t.CodeName, &t.Specialization,
			&t.ResourceID, &t.ResourceType, &t.BlueprintID, &t.LocationName); err != nil {
			return err
		}
		tasks = append(tasks, &t)
		return nil
	}, `
		SELECT ta.phase_id, pp.phase_codename, ta.codename, c.specialization,
		       ta.resource_id, r.type, ta.blueprint_id, hb.location_name
		FROM task_assignments ta
		JOIN plan_phases pp ON ta.phase_id = pp.phase_id
		JOIN crew_members c ON ta.codename = c.codename
		JOIN resources r ON ta.resource_id = r.resource_id
		JOIN heist_blueprints hb ON ta.blueprint_id = hb.blueprint_id
		ORDER BY ta.phase_id, ta.codename, ta.resource_id, ta.blueprint_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list task assignments: %w", err)
	}
	return tasks, nil
}

// ListPhaseRequirements returns every phase requirement with current stock, by phase
func (db *DB) ListPhaseRequirements(ctx context.Context) ([]*PhaseRequirement, error) {
	var reqs []*PhaseRequirement
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		var r PhaseRequirement
		if err := rows.Scan(&r.PhaseID, &r.PhaseCodename, &r.ResourceID, &r.ResourceType,
			&r.CurrentQuantity, &r.CriticalThreshold); err != nil {
			return err
		}
		reqs = append(reqs, &r)
		return nil
	}, `
		SELECT pp.phase_id, pp.phase_codename, r.resource_id, r.type, r.current_quantity, r.critical_threshold
		FROM plan_phases pp
		JOIN requires rq ON pp.phase_id = rq.phase_id
		JOIN resources r ON rq.resource_id = r.resource_id
		ORDER BY pp.phase_id, r.type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list phase requirements: %w", err)
	}
	return reqs, nil
}

// RecordDeviation records that a crew member deviated from a phase.
// Recording the same pair twice reports OutcomeExists.
func (db *DB) RecordDeviation(ctx context.Context, codename string, phaseID int64) (Outcome, error) {
	outcome, err := db.insertJunction(ctx, junctionInsert{
		parents: []parentCheck{crewParent(codename), phaseParent(phaseID)},
		dup:     "SELECT 1 FROM deviates_from WHERE codename = ? AND phase_id = ?",
		insert:  "INSERT INTO deviates_from (codename, phase_id) VALUES (?, ?)",
	}, codename, phaseID)
	if err != nil {
		return outcome, fmt.Errorf("failed to record deviation: %w", err)
	}
	return outcome, nil
}

// RemoveDeviation deletes a deviation record
func (db *DB) RemoveDeviation(ctx context.Context, codename string, phaseID int64) (Outcome, error) {
	affected, err := db.Mutate(ctx, "DELETE FROM deviates_from WHERE codename = ? AND phase_id = ?", codename, phaseID)
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to remove deviation: %w", err)
	}
	return outcomeOf(affected), nil
}

// ListDeviations returns the crew deviation log. Rows come back in store order.
func (db *DB) ListDeviations(ctx context.Context) ([]*Deviation, error) {
	var devs []*Deviation
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		var d Deviation
		if err := rows.Scan(&d.CodeName, &d.FirstName, &d.LastName, &d.PhaseID, &d.PhaseCodename); err != nil {
			return err
		}
		devs = append(devs, &d)
		return nil
	}, `
		SELECT c.codename, c.first_name, c.last_name, pp.phase_id, pp.phase_codename
		FROM deviates_from df
		JOIN crew_members c ON df.codename = c.codename
		JOIN plan_phases pp ON df.phase_id = pp.phase_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list deviations: %w", err)
	}
	return devs, nil
}
