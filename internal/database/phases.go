package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Phase is a plan phase with its required resources and assigned crew
type Phase struct {
	PhaseID           int64
	Codename          string
	PlannedDuration   int
	CurrentDissonance int
	Requirements      []Resource
	Crew              []PhaseCrew
}

// PhaseCrew is a crew member seen from a phase
type PhaseCrew struct {
	CodeName       string
	Specialization string
}

// phaseDependents removes every row that references a phase
var phaseDependents = []string{
	"DELETE FROM assigned_to WHERE phase_id = ?",
	"DELETE FROM requires WHERE phase_id = ?",
	"DELETE FROM task_assignments WHERE phase_id = ?",
	"DELETE FROM deviates_from WHERE phase_id = ?",
}

// ListPhases returns all phases by ID with requirements and crew attached.
// The fan-out is two batched queries regardless of the number of phases.
func (db *DB) ListPhases(ctx context.Context) ([]*Phase, error) {
	var phases []*Phase
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		var p Phase
		if err := rows.Scan(&p.PhaseID, &p.Codename, &p.PlannedDuration, &p.CurrentDissonance); err != nil {
			return err
		}
		phases = append(phases, &p)
		return nil
	}, `
		SELECT phase_id, phase_codename, planned_duration, current_dissonance
		FROM plan_phases
		ORDER BY phase_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list phases: %w", err)
	}

	if err := db.attachPhaseFanOut(ctx, phases, ""); err != nil {
		return nil, err
	}
	return phases, nil
}

// GetPhase retrieves one phase with requirements and crew. Returns nil if not found.
func (db *DB) GetPhase(ctx context.Context, id int64) (*Phase, error) {
	var p Phase
	err := db.queryRow(ctx, []any{&p.PhaseID, &p.Codename, &p.PlannedDuration, &p.CurrentDissonance}, `
		SELECT phase_id, phase_codename, planned_duration, current_dissonance
		FROM plan_phases WHERE phase_id = ?
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get phase: %w", err)
	}

	if err := db.attachPhaseFanOut(ctx, []*Phase{&p}, " WHERE pp.phase_id = ?", id); err != nil {
		return nil, err
	}
	return &p, nil
}

// attachPhaseFanOut loads requirements and crew for phases. where narrows both
// queries on the pp alias when the caller only needs a subset.
func (db *DB) attachPhaseFanOut(ctx context.Context, phases []*Phase, where string, args ...any) error {
	if len(phases) == 0 {
		return nil
	}

	byID := make(map[int64]*Phase, len(phases))
	for _, p := range phases {
		byID[p.PhaseID] = p
	}

	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		var (
			phaseID int64
			r       Resource
		)
		if err := rows.Scan(&phaseID, &r.ResourceID, &r.Type, &r.CurrentQuantity, &r.CriticalThreshold); err != nil {
			return err
		}
		if p, ok := byID[phaseID]; ok {
			p.Requirements = append(p.Requirements, r)
		}
		return nil
	}, `
		SELECT pp.phase_id, r.resource_id, r.type, r.current_quantity, r.critical_threshold
		FROM plan_phases pp
		JOIN requires rq ON pp.phase_id = rq.phase_id
		JOIN resources r ON rq.resource_id = r.resource_id`+where+`
		ORDER BY pp.phase_id, r.type, r.resource_id
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to load phase requirements: %w", err)
	}

	err = db.queryRows(ctx, func(rows *sql.Rows) error {
		var (
			phaseID int64
			c       PhaseCrew
		)
		if err := rows.Scan(&phaseID, &c.CodeName, &c.Specialization); err != nil {
			return err
		}
		if p, ok := byID[phaseID]; ok {
			p.Crew = append(p.Crew, c)
		}
		return nil
	}, `
		SELECT pp.phase_id, c.codename, c.specialization
		FROM plan_phases pp
		JOIN assigned_to asg ON pp.phase_id = asg.phase_id
		JOIN crew_members c ON asg.codename = c.codename`+where+`
		ORDER BY pp.phase_id, c.codename
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to load phase crew: %w", err)
	}

	return nil
}

// CreatePhase inserts a plan phase. The id is client supplied; a duplicate is a
// KindDuplicate error.
func (db *DB) CreatePhase(ctx context.Context, p *Phase) error {
	switch {
	case strings.TrimSpace(p.Codename) == "":
		return ValidationError{Field: "phase_codename", Message: "codename is required"}
	case p.PlannedDuration < 0:
		return ValidationError{Field: "planned_duration", Message: "must not be negative"}
	}

	_, err := db.Mutate(ctx, `
		INSERT INTO plan_phases (phase_id, phase_codename, planned_duration, current_dissonance)
		VALUES (?, ?, ?, ?)
	`, p.PhaseID, p.Codename, p.PlannedDuration, p.CurrentDissonance)
	if err != nil {
		return fmt.Errorf("failed to create phase: %w", err)
	}
	return nil
}

// DeletePhase removes a phase with its assignments, requirements, tasks and deviations
func (db *DB) DeletePhase(ctx context.Context, id int64) (Outcome, error) {
	var affected int64
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := execAll(ctx, tx, phaseDependents, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM plan_phases WHERE phase_id = ?", id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to delete phase: %w", err)
	}
	return outcomeOf(affected), nil
}
