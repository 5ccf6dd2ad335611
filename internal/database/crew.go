package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SkillKind tags which specialization subtype a crew member belongs to
type SkillKind string

const (
	SkillNone      SkillKind = ""
	SkillTactical  SkillKind = "tactical"
	SkillStrategic SkillKind = "strategic"
	SkillTechnical SkillKind = "technical"
)

// Skill is the optional specialization payload of a crew member.
// Value holds the weapon proficiency, security clearance level or technical
// certification depending on Kind.
type Skill struct {
	Kind  SkillKind
	Value string
}

// Label returns the human readable name of the subtype attribute
func (s Skill) Label() string {
	switch s.Kind {
	case SkillTactical:
		return "Weapon proficiency"
	case SkillStrategic:
		return "Security clearance"
	case SkillTechnical:
		return "Technical certification"
	default:
		return "None"
	}
}

// ParseSkillKind maps a form value to a SkillKind
func ParseSkillKind(s string) (SkillKind, error) {
	switch SkillKind(strings.ToLower(strings.TrimSpace(s))) {
	case SkillNone, "none":
		return SkillNone, nil
	case SkillTactical:
		return SkillTactical, nil
	case SkillStrategic:
		return SkillStrategic, nil
	case SkillTechnical:
		return SkillTechnical, nil
	}
	return SkillNone, ValidationError{Field: "skill", Message: fmt.Sprintf("unknown specialization subtype %q", s)}
}

// CrewMember is a crew roster row with its optional specialization payload
type CrewMember struct {
	CodeName       string
	HeistID        int64
	FirstName      string
	LastName       string
	Specialization string
	LoyaltyScore   int
	Skill          Skill
	Traits         []string
}

// CrewUpdate holds the fields replaced by UpdateCrew
type CrewUpdate struct {
	FirstName      string
	LastName       string
	Specialization string
	LoyaltyScore   int
}

// CrewSearch holds optional crew search filters. Empty fields apply no filter.
type CrewSearch struct {
	Query          string
	Specialization string
}

// PhaseRef is a phase seen from a crew member
type PhaseRef struct {
	PhaseID         int64
	Codename        string
	PlannedDuration int
}

// PsychReport is a single psychological report entry
type PsychReport struct {
	ReportTimestamp    time.Time
	CodeName           string
	Frequency          string
	MoralCompromiseLog string
}

// CrewDetail is the single-member fan-out view
type CrewDetail struct {
	Member     *CrewMember
	Phases     []PhaseRef
	Reports    []PsychReport
	Deviations []PhaseRef
}

const crewRosterSelect = `
	SELECT c.codename, c.heist_id, c.first_name, c.last_name, c.specialization, c.loyalty_score,
	       tc.weapon_proficiency, sc.security_clearance_level, tech.technical_certification
	FROM crew_members c
	LEFT JOIN tactical_crew tc ON c.codename = tc.codename
	LEFT JOIN strategic_crew sc ON c.codename = sc.codename
	LEFT JOIN technical_crew tech ON c.codename = tech.codename`

const crewRosterOrder = ` ORDER BY c.loyalty_score DESC, c.codename ASC`

// crewDependents removes or nulls every row that references a crew member
var crewDependents = []string{
	"DELETE FROM assigned_to WHERE codename = ?",
	"DELETE FROM deviates_from WHERE codename = ?",
	"DELETE FROM task_assignments WHERE codename = ?",
	"DELETE FROM traits WHERE codename = ?",
	"DELETE FROM psychological_reports WHERE codename = ?",
	"DELETE FROM tactical_crew WHERE codename = ?",
	"DELETE FROM strategic_crew WHERE codename = ?",
	"DELETE FROM technical_crew WHERE codename = ?",
	"DELETE FROM communicates_with WHERE codename = ?",
	"UPDATE hostages SET manager_codename = NULL WHERE manager_codename = ?",
	"UPDATE hostage_logs SET interacting_crew = NULL WHERE interacting_crew = ?",
	"UPDATE negotiations SET codename = NULL WHERE codename = ?",
}

func scanCrewRoster(rows *sql.Rows) (*CrewMember, error) {
	var (
		member                       CrewMember
		weapon, clearance, certified sql.NullString
	)
	err := rows.Scan(&member.CodeName, &member.HeistID, &member.FirstName, &member.LastName,
		&member.Specialization, &member.LoyaltyScore, &weapon, &clearance, &certified)
	if err != nil {
		return nil, err
	}
	member.Skill = skillFromColumns(weapon, clearance, certified)
	return &member, nil
}

// skillFromColumns collapses the three outer-joined subtype columns into one Skill
func skillFromColumns(weapon, clearance, certified sql.NullString) Skill {
	switch {
	case weapon.Valid:
		return Skill{Kind: SkillTactical, Value: weapon.String}
	case clearance.Valid:
		return Skill{Kind: SkillStrategic, Value: clearance.String}
	case certified.Valid:
		return Skill{Kind: SkillTechnical, Value: certified.String}
	}
	return Skill{}
}

// ListCrew returns the crew roster with subtype skills and traits, highest loyalty first
func (db *DB) ListCrew(ctx context.Context) ([]*CrewMember, error) {
	return db.SearchCrew(ctx, CrewSearch{})
}

// SearchCrew returns the crew roster filtered by a case-insensitive substring on
// codename, first or last name, and optionally on specialization.
func (db *DB) SearchCrew(ctx context.Context, search CrewSearch) ([]*CrewMember, error) {
	where := &whereBuilder{}
	where.anyContains(strings.TrimSpace(search.Query), "c.codename", "c.first_name", "c.last_name")
	where.contains("c.specialization", strings.TrimSpace(search.Specialization))
	clause, args := where.build()

	var crew []*CrewMember
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		member, err := scanCrewRoster(rows)
		if err != nil {
			return err
		}
		crew = append(crew, member)
		return nil
	}, crewRosterSelect+clause+crewRosterOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crew: %w", err)
	}

	if err := db.attachTraits(ctx, crew); err != nil {
		return nil, err
	}
	return crew, nil
}

// attachTraits loads all traits in one query and attaches them to the given members
func (db *DB) attachTraits(ctx context.Context, crew []*CrewMember) error {
	if len(crew) == 0 {
		return nil
	}

	byName := make(map[string]*CrewMember, len(crew))
	for _, m := range crew {
		byName[m.CodeName] = m
	}

	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		var codename, trait string
		if err := rows.Scan(&codename, &trait); err != nil {
			return err
		}
		if m, ok := byName[codename]; ok {
			m.Traits = append(m.Traits, trait)
		}
		return nil
	}, "SELECT codename, trait FROM traits ORDER BY codename, trait")
	if err != nil {
		return fmt.Errorf("failed to load traits: %w", err)
	}
	return nil
}

// GetCrew retrieves one crew member with subtype skill. Returns nil if not found.
func (db *DB) GetCrew(ctx context.Context, codename string) (*CrewMember, error) {
	var member *CrewMember
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		m, err := scanCrewRoster(rows)
		if err != nil {
			return err
		}
		member = m
		return nil
	}, crewRosterSelect+" WHERE c.codename = ?", codename)
	if err != nil {
		return nil, fmt.Errorf("failed to get crew member: %w", err)
	}
	if member == nil {
		return nil, nil
	}

	if err := db.attachTraits(ctx, []*CrewMember{member}); err != nil {
		return nil, err
	}
	return member, nil
}

// GetCrewDetail retrieves a crew member with assigned phases, psychological reports
// (newest first) and deviations. Returns nil if not found.
func (db *DB) GetCrewDetail(ctx context.Context, codename string) (*CrewDetail, error) {
	member, err := db.GetCrew(ctx, codename)
	if err != nil || member == nil {
		return nil, err
	}

	detail := &CrewDetail{Member: member}

	scanPhaseRef := func(dst *[]PhaseRef) func(*sql.Rows) error {
		return func(rows *sql.Rows) error {
			var ref PhaseRef
			if err := rows.Scan(&ref.PhaseID, &ref.Codename, &ref.PlannedDuration); err != nil {
				return err
			}
			*dst = append(*dst, ref)
			return nil
		}
	}

	err = db.queryRows(ctx, scanPhaseRef(&detail.Phases), `
		SELECT pp.phase_id, pp.phase_codename, pp.planned_duration
		FROM assigned_to asg
		JOIN plan_phases pp ON asg.phase_id = pp.phase_id
		WHERE asg.codename = ?
		ORDER BY pp.phase_id
	`, codename)
	if err != nil {
		return nil, fmt.Errorf("failed to load assigned phases: %w", err)
	}

	err = db.queryRows(ctx, func(rows *sql.Rows) error {
		var r PsychReport
		if err := rows.Scan(&r.ReportTimestamp, &r.CodeName, &r.Frequency, &r.MoralCompromiseLog); err != nil {
			return err
		}
		detail.Reports = append(detail.Reports, r)
		return nil
	}, `
		SELECT report_timestamp, codename, frequency, moral_compromise_log
		FROM psychological_reports
		WHERE codename = ?
		ORDER BY report_timestamp DESC
	`, codename)
	if err != nil {
		return nil, fmt.Errorf("failed to load psychological reports: %w", err)
	}

	err = db.queryRows(ctx, scanPhaseRef(&detail.Deviations), `
		SELECT pp.phase_id, pp.phase_codename, pp.planned_duration
		FROM deviates_from df
		JOIN plan_phases pp ON df.phase_id = pp.phase_id
		WHERE df.codename = ?
		ORDER BY pp.phase_id
	`, codename)
	if err != nil {
		return nil, fmt.Errorf("failed to load deviations: %w", err)
	}

	return detail, nil
}

// CreateCrew inserts a new crew member. The codename is client supplied and a
// duplicate is reported as a KindDuplicate error.
func (db *DB) CreateCrew(ctx context.Context, m *CrewMember) error {
	return db.CreateCrewWithSkill(ctx, m, Skill{})
}

// CreateCrewWithSkill inserts a crew member and its specialization subtype row
// in one transaction. Nothing is written when either insert fails.
func (db *DB) CreateCrewWithSkill(ctx context.Context, m *CrewMember, skill Skill) error {
	if err := validateCrew(m.CodeName, m.FirstName, m.LastName, m.Specialization); err != nil {
		return err
	}
	if err := validateSkill(skill); err != nil {
		return err
	}

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO crew_members (codename, heist_id, first_name, last_name, specialization, loyalty_score)
			VALUES (?, ?, ?, ?, ?, ?)
		`, m.CodeName, m.HeistID, m.FirstName, m.LastName, m.Specialization, m.LoyaltyScore); err != nil {
			return err
		}
		return insertSkill(ctx, tx, m.CodeName, skill)
	})
	if err != nil {
		return fmt.Errorf("failed to create crew member: %w", err)
	}
	return nil
}

// UpdateCrew replaces the name, specialization and loyalty of a crew member
func (db *DB) UpdateCrew(ctx context.Context, codename string, u CrewUpdate) (Outcome, error) {
	if err := validateCrew(codename, u.FirstName, u.LastName, u.Specialization); err != nil {
		return OutcomeNotFound, err
	}

	affected, err := db.Mutate(ctx, `
		UPDATE crew_members
		SET first_name = ?, last_name = ?, specialization = ?, loyalty_score = ?
		WHERE codename = ?
	`, u.FirstName, u.LastName, u.Specialization, u.LoyaltyScore, codename)
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to update crew member: %w", err)
	}
	return outcomeOf(affected), nil
}

// DeleteCrew removes a crew member and every row that references it
func (db *DB) DeleteCrew(ctx context.Context, codename string) (Outcome, error) {
	var affected int64
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := execAll(ctx, tx, crewDependents, codename); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM crew_members WHERE codename = ?", codename)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to delete crew member: %w", err)
	}
	return outcomeOf(affected), nil
}

// SetCrewSkill replaces the specialization subtype of a crew member.
// Any existing subtype row is removed first so at most one remains.
func (db *DB) SetCrewSkill(ctx context.Context, codename string, skill Skill) (Outcome, error) {
	if err := validateSkill(skill); err != nil {
		return OutcomeNotFound, err
	}

	outcome := OutcomeApplied
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, "SELECT 1 FROM crew_members WHERE codename = ?", codename)
		if err != nil {
			return err
		}
		if !found {
			outcome = OutcomeNotFound
			return nil
		}

		if err := execAll(ctx, tx, []string{
			"DELETE FROM tactical_crew WHERE codename = ?",
			"DELETE FROM strategic_crew WHERE codename = ?",
			"DELETE FROM technical_crew WHERE codename = ?",
		}, codename); err != nil {
			return err
		}
		return insertSkill(ctx, tx, codename, skill)
	})
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to set crew skill: %w", err)
	}
	return outcome, nil
}

func validateSkill(skill Skill) error {
	if skill.Kind != SkillNone && strings.TrimSpace(skill.Value) == "" {
		return ValidationError{Field: "skill", Message: "value is required"}
	}
	return nil
}

// insertSkill writes the subtype row for skill. SkillNone writes nothing.
func insertSkill(ctx context.Context, tx *sql.Tx, codename string, skill Skill) error {
	var stmt string
	switch skill.Kind {
	case SkillTactical:
		stmt = "INSERT INTO tactical_crew (codename, weapon_proficiency) VALUES (?, ?)"
	case SkillStrategic:
		stmt = "INSERT INTO strategic_crew (codename, security_clearance_level) VALUES (?, ?)"
	case SkillTechnical:
		stmt = "INSERT INTO technical_crew (codename, technical_certification) VALUES (?, ?)"
	default:
		return nil
	}
	_, err := tx.ExecContext(ctx, stmt, codename, skill.Value)
	return err
}

// AddTrait attaches a volatile trait to a crew member. Adding a trait the member
// already has reports OutcomeExists.
func (db *DB) AddTrait(ctx context.Context, codename, trait string) (Outcome, error) {
	trait = strings.TrimSpace(trait)
	if trait == "" {
		return OutcomeNotFound, ValidationError{Field: "trait", Message: "trait is required"}
	}

	outcome := OutcomeApplied
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, "SELECT 1 FROM crew_members WHERE codename = ?", codename)
		if err != nil {
			return err
		}
		if !found {
			outcome = OutcomeNotFound
			return nil
		}

		dup, err := exists(ctx, tx, "SELECT 1 FROM traits WHERE codename = ? AND trait = ?", codename, trait)
		if err != nil {
			return err
		}
		if dup {
			outcome = OutcomeExists
			return nil
		}

		_, err = tx.ExecContext(ctx, "INSERT INTO traits (codename, trait) VALUES (?, ?)", codename, trait)
		return err
	})
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to add trait: %w", err)
	}
	return outcome, nil
}

// AddPsychReport appends a psychological report. A zero timestamp means now.
func (db *DB) AddPsychReport(ctx context.Context, r *PsychReport) error {
	if r.ReportTimestamp.IsZero() {
		r.ReportTimestamp = time.Now().UTC()
	}

	_, err := db.Mutate(ctx, `
		INSERT INTO psychological_reports (report_timestamp, codename, frequency, moral_compromise_log)
		VALUES (?, ?, ?, ?)
	`, r.ReportTimestamp.UTC(), r.CodeName, r.Frequency, r.MoralCompromiseLog)
	if err != nil {
		return fmt.Errorf("failed to add psychological report: %w", err)
	}
	return nil
}

// ListCrewCodenames returns every codename in alphabetical order
func (db *DB) ListCrewCodenames(ctx context.Context) ([]string, error) {
	var names []string
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		names = append(names, name)
		return nil
	}, "SELECT codename FROM crew_members ORDER BY codename")
	if err != nil {
		return nil, fmt.Errorf("failed to list codenames: %w", err)
	}
	return names, nil
}

func validateCrew(codename, firstName, lastName, specialization string) error {
	switch {
	case strings.TrimSpace(codename) == "":
		return ValidationError{Field: "codename", Message: "codename is required"}
	case strings.TrimSpace(firstName) == "":
		return ValidationError{Field: "first_name", Message: "first name is required"}
	case strings.TrimSpace(lastName) == "":
		return ValidationError{Field: "last_name", Message: "last name is required"}
	case strings.TrimSpace(specialization) == "":
		return ValidationError{Field: "specialization", Message: "specialization is required"}
	}
	return nil
}

// execAll runs each statement in tx with the same arguments
func execAll(ctx context.Context, tx *sql.Tx, stmts []string, args ...any) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}
	return nil
}
