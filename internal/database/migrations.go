package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Migrate runs all database migrations
func (db *DB) Migrate(ctx context.Context) error {
	log.Info().Msg("Running database migrations")

	// Create migrations table if not exists
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	err = db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	log.Debug().Int("current_version", currentVersion).Msg("Current schema version")

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		log.Info().Int("version", migration.Version).Str("name", migration.Name).Msg("Applying migration")

		if err := db.Transaction(ctx, func(tx *sql.Tx) error {
			statements := splitSQLStatements(migration.SQL)
			for i, stmt := range statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("migration %d statement %d failed: %w", migration.Version, i+1, err)
				}
			}

			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", migration.Version); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
			}

			return nil
		}); err != nil {
			return err
		}
	}

	log.Info().Msg("Database migrations complete")
	return nil
}

type migration struct {
	Version int
	Name    string
	SQL     string
}

// splitSQLStatements splits a SQL string into individual statements.
// A statement ends at a line whose trimmed text ends with a semicolon, so trigger
// bodies must keep BEGIN ... END; on a single line.
func splitSQLStatements(sql string) []string {
	var statements []string
	var current strings.Builder

	lines := strings.SplitSeq(sql, "\n")
	for line := range lines {
		trimmed := strings.TrimSpace(line)
		// Skip empty lines and comments
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" && stmt != ";" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	// Handle any remaining content without trailing semicolon
	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		statements = append(statements, remaining)
	}

	return statements
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
			CREATE TABLE heists (
				heist_id INTEGER PRIMARY KEY,
				name TEXT NOT NULL,
				target TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE crew_members (
				codename TEXT PRIMARY KEY,
				heist_id INTEGER NOT NULL REFERENCES heists(heist_id),
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				specialization TEXT NOT NULL,
				loyalty_score INTEGER NOT NULL DEFAULT 0
			);

			-- Specialization subtypes, one table per subtype
			CREATE TABLE tactical_crew (
				codename TEXT PRIMARY KEY REFERENCES crew_members(codename) ON DELETE CASCADE,
				weapon_proficiency TEXT NOT NULL
			);

			CREATE TABLE strategic_crew (
				codename TEXT PRIMARY KEY REFERENCES crew_members(codename) ON DELETE CASCADE,
				security_clearance_level TEXT NOT NULL
			);

			CREATE TABLE technical_crew (
				codename TEXT PRIMARY KEY REFERENCES crew_members(codename) ON DELETE CASCADE,
				technical_certification TEXT NOT NULL
			);

			CREATE TABLE traits (
				codename TEXT NOT NULL REFERENCES crew_members(codename) ON DELETE CASCADE,
				trait TEXT NOT NULL,
				PRIMARY KEY (codename, trait)
			);

			CREATE TABLE psychological_reports (
				report_timestamp TIMESTAMP NOT NULL,
				codename TEXT NOT NULL REFERENCES crew_members(codename) ON DELETE CASCADE,
				frequency TEXT NOT NULL DEFAULT '',
				moral_compromise_log TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (report_timestamp, codename)
			);

			CREATE TABLE heist_blueprints (
				blueprint_id INTEGER PRIMARY KEY,
				location_name TEXT NOT NULL
			);

			CREATE TABLE hostages (
				hostage_id INTEGER PRIMARY KEY,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				status TEXT NOT NULL,
				usefulness INTEGER NOT NULL DEFAULT 0,
				instigator_flag BOOLEAN NOT NULL DEFAULT false,
				manager_codename TEXT REFERENCES crew_members(codename) ON DELETE SET NULL,
				blueprint_id INTEGER REFERENCES heist_blueprints(blueprint_id) ON DELETE SET NULL
			);

			-- A hostage has at most one current location
			CREATE TABLE is_located_in (
				hostage_id INTEGER PRIMARY KEY REFERENCES hostages(hostage_id) ON DELETE CASCADE,
				blueprint_id INTEGER NOT NULL REFERENCES heist_blueprints(blueprint_id) ON DELETE CASCADE
			);

			CREATE TABLE hostage_logs (
				interaction_timestamp TIMESTAMP NOT NULL,
				hostage_id INTEGER NOT NULL REFERENCES hostages(hostage_id) ON DELETE CASCADE,
				interacting_crew TEXT REFERENCES crew_members(codename) ON DELETE SET NULL,
				interaction_type TEXT NOT NULL DEFAULT '',
				summary TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (interaction_timestamp, hostage_id)
			);

			CREATE TABLE resources (
				resource_id INTEGER PRIMARY KEY AUTOINCREMENT,
				type TEXT NOT NULL,
				current_quantity INTEGER NOT NULL CHECK (current_quantity >= 0),
				critical_threshold INTEGER NOT NULL CHECK (critical_threshold >= 0)
			);

			CREATE TABLE plan_phases (
				phase_id INTEGER PRIMARY KEY,
				phase_codename TEXT NOT NULL,
				planned_duration INTEGER NOT NULL,
				current_dissonance INTEGER NOT NULL DEFAULT 0
			);

			CREATE TABLE assigned_to (
				codename TEXT NOT NULL REFERENCES crew_members(codename) ON DELETE CASCADE,
				phase_id INTEGER NOT NULL REFERENCES plan_phases(phase_id) ON DELETE CASCADE,
				PRIMARY KEY (codename, phase_id)
			);

			CREATE TABLE requires (
				phase_id INTEGER NOT NULL REFERENCES plan_phases(phase_id) ON DELETE CASCADE,
				resource_id INTEGER NOT NULL REFERENCES resources(resource_id) ON DELETE CASCADE,
				PRIMARY KEY (phase_id, resource_id)
			);

			-- Crew member used resource at location during phase
			CREATE TABLE task_assignments (
				phase_id INTEGER NOT NULL REFERENCES plan_phases(phase_id) ON DELETE CASCADE,
				codename TEXT NOT NULL REFERENCES crew_members(codename) ON DELETE CASCADE,
				resource_id INTEGER NOT NULL REFERENCES resources(resource_id) ON DELETE CASCADE,
				blueprint_id INTEGER NOT NULL REFERENCES heist_blueprints(blueprint_id) ON DELETE CASCADE,
				PRIMARY KEY (phase_id, codename, resource_id, blueprint_id)
			);

			CREATE TABLE deviates_from (
				codename TEXT NOT NULL REFERENCES crew_members(codename) ON DELETE CASCADE,
				phase_id INTEGER NOT NULL REFERENCES plan_phases(phase_id) ON DELETE CASCADE,
				PRIMARY KEY (codename, phase_id)
			);

			CREATE TABLE police_units (
				unit_id INTEGER PRIMARY KEY,
				unit_name TEXT NOT NULL,
				commanding_officer TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE communicates_with (
				unit_id INTEGER NOT NULL REFERENCES police_units(unit_id) ON DELETE CASCADE,
				codename TEXT NOT NULL REFERENCES crew_members(codename) ON DELETE CASCADE,
				channel TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (unit_id, codename)
			);

			CREATE TABLE negotiations (
				negotiation_id INTEGER PRIMARY KEY AUTOINCREMENT,
				unit_id INTEGER REFERENCES police_units(unit_id) ON DELETE SET NULL,
				codename TEXT REFERENCES crew_members(codename) ON DELETE SET NULL,
				started_at TIMESTAMP NOT NULL,
				outcome TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE monitors (
				unit_id INTEGER NOT NULL REFERENCES police_units(unit_id) ON DELETE CASCADE,
				blueprint_id INTEGER NOT NULL REFERENCES heist_blueprints(blueprint_id) ON DELETE CASCADE,
				PRIMARY KEY (unit_id, blueprint_id)
			);

			CREATE INDEX idx_crew_loyalty ON crew_members(loyalty_score DESC);
			CREATE INDEX idx_hostages_status ON hostages(status, usefulness DESC);
			CREATE INDEX idx_resources_type ON resources(type);
			CREATE INDEX idx_assigned_to_phase ON assigned_to(phase_id);
			CREATE INDEX idx_deviates_from_phase ON deviates_from(phase_id);
			CREATE INDEX idx_task_assignments_codename ON task_assignments(codename);
			CREATE INDEX idx_hostage_logs_hostage ON hostage_logs(hostage_id, interaction_timestamp DESC);
			CREATE INDEX idx_psych_reports_crew ON psychological_reports(codename, report_timestamp DESC);
		`,
	},
	{
		Version: 2,
		Name:    "exclusive_specialization",
		SQL: `
			-- A crew member has at most one specialization subtype row
			CREATE TRIGGER tactical_crew_exclusive BEFORE INSERT ON tactical_crew WHEN EXISTS (SELECT 1 FROM strategic_crew WHERE codename = NEW.codename) OR EXISTS (SELECT 1 FROM technical_crew WHERE codename = NEW.codename) BEGIN SELECT RAISE(ABORT, 'crew member already has a specialization'); END;
			CREATE TRIGGER strategic_crew_exclusive BEFORE INSERT ON strategic_crew WHEN EXISTS (SELECT 1 FROM tactical_crew WHERE codename = NEW.codename) OR EXISTS (SELECT 1 FROM technical_crew WHERE codename = NEW.codename) BEGIN SELECT RAISE(ABORT, 'crew member already has a specialization'); END;
			CREATE TRIGGER technical_crew_exclusive BEFORE INSERT ON technical_crew WHEN EXISTS (SELECT 1 FROM tactical_crew WHERE codename = NEW.codename) OR EXISTS (SELECT 1 FROM strategic_crew WHERE codename = NEW.codename) BEGIN SELECT RAISE(ABORT, 'crew member already has a specialization'); END;
		`,
	},
}
