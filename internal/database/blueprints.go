package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Heist is an operation crew members belong to
type Heist struct {
	HeistID int64
	Name    string
	Target  string
}

// Blueprint is a named location inside the target
type Blueprint struct {
	BlueprintID  int64
	LocationName string
}

// blueprintDependents removes or nulls every row that references a blueprint
var blueprintDependents = []string{
	"DELETE FROM is_located_in WHERE blueprint_id = ?",
	"DELETE FROM task_assignments WHERE blueprint_id = ?",
	"DELETE FROM monitors WHERE blueprint_id = ?",
	"UPDATE hostages SET blueprint_id = NULL WHERE blueprint_id = ?",
}

// CreateHeist inserts a heist with a client supplied id
func (db *DB) CreateHeist(ctx context.Context, h *Heist) error {
	if strings.TrimSpace(h.Name) == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}

	_, err := db.Mutate(ctx, "INSERT INTO heists (heist_id, name, target) VALUES (?, ?, ?)", h.HeistID, h.Name, h.Target)
	if err != nil {
		return fmt.Errorf("failed to create heist: %w", err)
	}
	return nil
}

// ListHeists returns all heists by ID
func (db *DB) ListHeists(ctx context.Context) ([]*Heist, error) {
	var heists []*Heist
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		var h Heist
		if err := rows.Scan(&h.HeistID, &h.Name, &h.Target); err != nil {
			return err
		}
		heists = append(heists, &h)
		return nil
	}, "SELECT heist_id, name, target FROM heists ORDER BY heist_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list heists: %w", err)
	}
	return heists, nil
}

// CreateBlueprint inserts a blueprint location with a client supplied id
func (db *DB) CreateBlueprint(ctx context.Context, b *Blueprint) error {
	if strings.TrimSpace(b.LocationName) == "" {
		return ValidationError{Field: "location_name", Message: "location name is required"}
	}

	_, err := db.Mutate(ctx, "INSERT INTO heist_blueprints (blueprint_id, location_name) VALUES (?, ?)",
		b.BlueprintID, b.LocationName)
	if err != nil {
		return fmt.Errorf("failed to create blueprint: %w", err)
	}
	return nil
}

// ListBlueprints returns all blueprint locations by name
func (db *DB) ListBlueprints(ctx context.Context) ([]*Blueprint, error) {
	var blueprints []*Blueprint
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		var b Blueprint
		if err := rows.Scan(&b.BlueprintID, &b.LocationName); err != nil {
			return err
		}
		blueprints = append(blueprints, &b)
		return nil
	}, "SELECT blueprint_id, location_name FROM heist_blueprints ORDER BY location_name, blueprint_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list blueprints: %w", err)
	}
	return blueprints, nil
}

// DeleteBlueprint removes a location. Hostages placed there become unplaced.
func (db *DB) DeleteBlueprint(ctx context.Context, id int64) (Outcome, error) {
	var affected int64
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := execAll(ctx, tx, blueprintDependents, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM heist_blueprints WHERE blueprint_id = ?", id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to delete blueprint: %w", err)
	}
	return outcomeOf(affected), nil
}
