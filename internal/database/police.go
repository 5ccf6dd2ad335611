package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// PoliceUnit is an external law-enforcement unit
type PoliceUnit struct {
	UnitID            int64
	UnitName          string
	CommandingOfficer string

	// Populated by ListPoliceUnits
	Contacts     []string
	Monitored    []string
	Negotiations int
}

// Negotiation is a single negotiation attempt between a unit and a crew member
type Negotiation struct {
	NegotiationID int64
	UnitID        *int64
	CodeName      *string
	StartedAt     time.Time
	Outcome       string
}

// policeDependents removes or nulls every row that references a police unit
var policeDependents = []string{
	"DELETE FROM communicates_with WHERE unit_id = ?",
	"DELETE FROM monitors WHERE unit_id = ?",
	"UPDATE negotiations SET unit_id = NULL WHERE unit_id = ?",
}

// CreatePoliceUnit inserts a police unit with a client supplied id
func (db *DB) CreatePoliceUnit(ctx context.Context, u *PoliceUnit) error {
	if strings.TrimSpace(u.UnitName) == "" {
		return ValidationError{Field: "unit_name", Message: "unit name is required"}
	}

	_, err := db.Mutate(ctx, `
		INSERT INTO police_units (unit_id, unit_name, commanding_officer) VALUES (?, ?, ?)
	`, u.UnitID, u.UnitName, u.CommandingOfficer)
	if err != nil {
		return fmt.Errorf("failed to create police unit: %w", err)
	}
	return nil
}

// ListPoliceUnits returns all units by ID with their crew contacts, monitored
// locations and negotiation count.
func (db *DB) ListPoliceUnits(ctx context.Context) ([]*PoliceUnit, error) {
	var units []*PoliceUnit
	byID := make(map[int64]*PoliceUnit)
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		var u PoliceUnit
		if err := rows.Scan(&u.UnitID, &u.UnitName, &u.CommandingOfficer, &u.Negotiations); err != nil {
			return err
		}
		units = append(units, &u)
		byID[u.UnitID] = &u
		return nil
	}, `
		SELECT pu.unit_id, pu.unit_name, pu.commanding_officer,
		       (SELECT COUNT(*) FROM negotiations n WHERE n.unit_id = pu.unit_id)
		FROM police_units pu
		ORDER BY pu.unit_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list police units: %w", err)
	}
	if len(units) == 0 {
		return units, nil
	}

	err = db.queryRows(ctx, func(rows *sql.Rows) error {
		var (
			id       int64
			codename string
		)
		if err := rows.Scan(&id, &codename); err != nil {
			return err
		}
		if u, ok := byID[id]; ok {
			u.Contacts = append(u.Contacts, codename)
		}
		return nil
	}, "SELECT unit_id, codename FROM communicates_with ORDER BY unit_id, codename")
	if err != nil {
		return nil, fmt.Errorf("failed to load police contacts: %w", err)
	}

	err = db.queryRows(ctx, func(rows *sql.Rows) error {
		var (
			id       int64
			location string
		)
		if err := rows.Scan(&id, &location); err != nil {
			return err
		}
		if u, ok := byID[id]; ok {
			u.Monitored = append(u.Monitored, location)
		}
		return nil
	}, `
		SELECT m.unit_id, hb.location_name
		FROM monitors m
		JOIN heist_blueprints hb ON m.blueprint_id = hb.blueprint_id
		ORDER BY m.unit_id, hb.location_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load monitored locations: %w", err)
	}

	return units, nil
}

// LinkCommunication records a communication channel between a unit and a crew member.
// Linking the same pair twice reports OutcomeExists.
func (db *DB) LinkCommunication(ctx context.Context, unitID int64, codename, channel string) (Outcome, error) {
	outcome, err := db.insertJunction(ctx, junctionInsert{
		parents: []parentCheck{
			{query: "SELECT 1 FROM police_units WHERE unit_id = ?", arg: unitID},
			crewParent(codename),
		},
		dup:    "SELECT 1 FROM communicates_with WHERE unit_id = ? AND codename = ?",
		insert: "INSERT INTO communicates_with (unit_id, codename, channel) VALUES (?, ?, ?)",
		keyLen: 2,
	}, unitID, codename, channel)
	if err != nil {
		return outcome, fmt.Errorf("failed to link communication: %w", err)
	}
	return outcome, nil
}

// MonitorBlueprint records that a unit watches a location.
// Recording the same pair twice reports OutcomeExists.
func (db *DB) MonitorBlueprint(ctx context.Context, unitID, blueprintID int64) (Outcome, error) {
	outcome, err := db.insertJunction(ctx, junctionInsert{
		parents: []parentCheck{
			{query: "SELECT 1 FROM police_units WHERE unit_id = ?", arg: unitID},
			blueprintParent(blueprintID),
		},
		dup:    "SELECT 1 FROM monitors WHERE unit_id = ? AND blueprint_id = ?",
		insert: "INSERT INTO monitors (unit_id, blueprint_id) VALUES (?, ?)",
	}, unitID, blueprintID)
	if err != nil {
		return outcome, fmt.Errorf("failed to monitor blueprint: %w", err)
	}
	return outcome, nil
}

// RecordNegotiation appends a negotiation and returns its id. A zero start time means now.
func (db *DB) RecordNegotiation(ctx context.Context, n *Negotiation) (int64, error) {
	if n.StartedAt.IsZero() {
		n.StartedAt = time.Now().UTC()
	}

	var id int64
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO negotiations (unit_id, codename, started_at, outcome) VALUES (?, ?, ?, ?)
		`, ptrToNullInt64(n.UnitID), ptrToNullString(n.CodeName), n.StartedAt.UTC(), n.Outcome)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record negotiation: %w", err)
	}
	n.NegotiationID = id
	return id, nil
}

// ListNegotiations returns negotiations newest first
func (db *DB) ListNegotiations(ctx context.Context) ([]*Negotiation, error) {
	var out []*Negotiation
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		var (
			n        Negotiation
			unitID   sql.NullInt64
			codename sql.NullString
		)
		if err := rows.Scan(&n.NegotiationID, &unitID, &codename, &n.StartedAt, &n.Outcome); err != nil {
			return err
		}
		n.UnitID = nullInt64ToPtr(unitID)
		n.CodeName = nullStringToPtr(codename)
		out = append(out, &n)
		return nil
	}, `
		SELECT negotiation_id, unit_id, codename, started_at, outcome
		FROM negotiations
		ORDER BY started_at DESC, negotiation_id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list negotiations: %w", err)
	}
	return out, nil
}

// DeletePoliceUnit removes a unit with its communications and monitored locations.
// Negotiations are kept with the unit reference cleared.
func (db *DB) DeletePoliceUnit(ctx context.Context, id int64) (Outcome, error) {
	var affected int64
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := execAll(ctx, tx, policeDependents, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM police_units WHERE unit_id = ?", id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to delete police unit: %w", err)
	}
	return outcomeOf(affected), nil
}
