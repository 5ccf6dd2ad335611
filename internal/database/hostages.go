package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Known hostage statuses offered by the presentation layer. The store accepts any
// non-empty status.
var HostageStatuses = []string{"Cooperative", "Compliant", "Resistant", "Hostile", "Injured"}

// NoneLabel is how an absent manager or location is rendered
const NoneLabel = "None"

// Hostage is a hostage roster row with its current location
type Hostage struct {
	HostageID       int64
	FirstName       string
	LastName        string
	Status          string
	Usefulness      int
	Instigator      bool
	ManagerCodename *string
	BlueprintID     *int64
	LocationName    *string
}

// Manager returns the manager codename, or NoneLabel when absent
func (h *Hostage) Manager() string {
	if h.ManagerCodename == nil {
		return NoneLabel
	}
	return *h.ManagerCodename
}

// Location returns the location name, or NoneLabel when unplaced
func (h *Hostage) Location() string {
	if h.LocationName == nil {
		return NoneLabel
	}
	return *h.LocationName
}

// HostageUpdate holds the fields replaced by UpdateHostage
type HostageUpdate struct {
	Status     string
	Usefulness int
	Instigator bool
}

// HostageLog is a single interaction with a hostage
type HostageLog struct {
	InteractionTimestamp time.Time
	HostageID            int64
	InteractingCrew      *string
	InteractionType      string
	Summary              string
}

// HostageDetail is a hostage with interaction history, newest first
type HostageDetail struct {
	Hostage *Hostage
	Logs    []HostageLog
}

const hostageRosterSelect = `
	SELECT h.hostage_id, h.first_name, h.last_name, h.status, h.usefulness, h.instigator_flag,
	       h.manager_codename, h.blueprint_id, hb.location_name
	FROM hostages h
	LEFT JOIN is_located_in il ON h.hostage_id = il.hostage_id
	LEFT JOIN heist_blueprints hb ON il.blueprint_id = hb.blueprint_id`

func scanHostage(rows *sql.Rows) (*Hostage, error) {
	var (
		h         Hostage
		manager   sql.NullString
		blueprint sql.NullInt64
		location  sql.NullString
	)
	err := rows.Scan(&h.HostageID, &h.FirstName, &h.LastName, &h.Status, &h.Usefulness,
		&h.Instigator, &manager, &blueprint, &location)
	if err != nil {
		return nil, err
	}
	h.ManagerCodename = nullStringToPtr(manager)
	h.BlueprintID = nullInt64ToPtr(blueprint)
	h.LocationName = nullStringToPtr(location)
	return &h, nil
}

func (db *DB) listHostages(ctx context.Context, query string, args ...any) ([]*Hostage, error) {
	var hostages []*Hostage
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		h, err := scanHostage(rows)
		if err != nil {
			return err
		}
		hostages = append(hostages, h)
		return nil
	}, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list hostages: %w", err)
	}
	return hostages, nil
}

// ListHostages returns the hostage roster ordered by status, then usefulness descending
func (db *DB) ListHostages(ctx context.Context) ([]*Hostage, error) {
	return db.listHostages(ctx, hostageRosterSelect+` ORDER BY h.status, h.usefulness DESC, h.hostage_id`)
}

// ListHostagesForExport returns the hostage roster ordered by status
func (db *DB) ListHostagesForExport(ctx context.Context) ([]*Hostage, error) {
	return db.listHostages(ctx, hostageRosterSelect+` ORDER BY h.status, h.hostage_id`)
}

// FilterHostagesByStatus returns hostages with exactly the given status, most useful first.
// An empty status is not a query; it returns ErrFilterRequired.
func (db *DB) FilterHostagesByStatus(ctx context.Context, status string) ([]*Hostage, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, ErrFilterRequired
	}

	where := (&whereBuilder{}).equals("h.status", status)
	clause, args := where.build()
	return db.listHostages(ctx, hostageRosterSelect+clause+` ORDER BY h.usefulness DESC, h.hostage_id`, args...)
}

// GetHostage retrieves one hostage with location. Returns nil if not found.
func (db *DB) GetHostage(ctx context.Context, id int64) (*Hostage, error) {
	hostages, err := db.listHostages(ctx, hostageRosterSelect+` WHERE h.hostage_id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(hostages) == 0 {
		return nil, nil
	}
	return hostages[0], nil
}

// GetHostageDetail retrieves a hostage and its interaction logs, newest first.
// Returns nil if not found.
func (db *DB) GetHostageDetail(ctx context.Context, id int64) (*HostageDetail, error) {
	h, err := db.GetHostage(ctx, id)
	if err != nil || h == nil {
		return nil, err
	}

	detail := &HostageDetail{Hostage: h}
	err = db.queryRows(ctx, func(rows *sql.Rows) error {
		var (
			l    HostageLog
			crew sql.NullString
		)
		if err := rows.Scan(&l.InteractionTimestamp, &l.HostageID, &crew, &l.InteractionType, &l.Summary); err != nil {
			return err
		}
		l.InteractingCrew = nullStringToPtr(crew)
		detail.Logs = append(detail.Logs, l)
		return nil
	}, `
		SELECT interaction_timestamp, hostage_id, interacting_crew, interaction_type, summary
		FROM hostage_logs
		WHERE hostage_id = ?
		ORDER BY interaction_timestamp DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load hostage logs: %w", err)
	}

	return detail, nil
}

// CreateHostage inserts a hostage. The id is client supplied. When a blueprint is
// given the hostage is also placed at that location.
func (db *DB) CreateHostage(ctx context.Context, h *Hostage) error {
	switch {
	case strings.TrimSpace(h.FirstName) == "":
		return ValidationError{Field: "first_name", Message: "first name is required"}
	case strings.TrimSpace(h.LastName) == "":
		return ValidationError{Field: "last_name", Message: "last name is required"}
	case strings.TrimSpace(h.Status) == "":
		return ValidationError{Field: "status", Message: "status is required"}
	}

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO hostages (hostage_id, first_name, last_name, status, usefulness, instigator_flag, manager_codename, blueprint_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, h.HostageID, h.FirstName, h.LastName, h.Status, h.Usefulness, h.Instigator,
			ptrToNullString(h.ManagerCodename), ptrToNullInt64(h.BlueprintID))
		if err != nil {
			return err
		}

		if h.BlueprintID != nil {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO is_located_in (hostage_id, blueprint_id) VALUES (?, ?)",
				h.HostageID, *h.BlueprintID)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create hostage: %w", err)
	}
	return nil
}

// UpdateHostage replaces status, usefulness and the instigator flag
func (db *DB) UpdateHostage(ctx context.Context, id int64, u HostageUpdate) (Outcome, error) {
	if strings.TrimSpace(u.Status) == "" {
		return OutcomeNotFound, ValidationError{Field: "status", Message: "status is required"}
	}

	affected, err := db.Mutate(ctx, `
		UPDATE hostages SET status = ?, usefulness = ?, instigator_flag = ? WHERE hostage_id = ?
	`, u.Status, u.Usefulness, u.Instigator, id)
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to update hostage: %w", err)
	}
	return outcomeOf(affected), nil
}

// LocateHostage moves a hostage to a blueprint location, replacing any previous one
func (db *DB) LocateHostage(ctx context.Context, id, blueprintID int64) (Outcome, error) {
	outcome := OutcomeApplied
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, "SELECT 1 FROM hostages WHERE hostage_id = ?", id)
		if err != nil {
			return err
		}
		if !found {
			outcome = OutcomeNotFound
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO is_located_in (hostage_id, blueprint_id) VALUES (?, ?)
			ON CONFLICT(hostage_id) DO UPDATE SET blueprint_id = excluded.blueprint_id
		`, id, blueprintID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE hostages SET blueprint_id = ? WHERE hostage_id = ?", blueprintID, id)
		return err
	})
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to locate hostage: %w", err)
	}
	return outcome, nil
}

// DeleteHostage removes a hostage with its location and interaction logs
func (db *DB) DeleteHostage(ctx context.Context, id int64) (Outcome, error) {
	var affected int64
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := execAll(ctx, tx, []string{
			"DELETE FROM is_located_in WHERE hostage_id = ?",
			"DELETE FROM hostage_logs WHERE hostage_id = ?",
		}, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM hostages WHERE hostage_id = ?", id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to delete hostage: %w", err)
	}
	return outcomeOf(affected), nil
}

// AddHostageLog appends an interaction log entry. A zero timestamp means now.
func (db *DB) AddHostageLog(ctx context.Context, l *HostageLog) error {
	if l.InteractionTimestamp.IsZero() {
		l.InteractionTimestamp = time.Now().UTC()
	}

	_, err := db.Mutate(ctx, `
		INSERT INTO hostage_logs (interaction_timestamp, hostage_id, interacting_crew, interaction_type, summary)
		VALUES (?, ?, ?, ?, ?)
	`, l.InteractionTimestamp.UTC(), l.HostageID, ptrToNullString(l.InteractingCrew), l.InteractionType, l.Summary)
	if err != nil {
		return fmt.Errorf("failed to add hostage log: %w", err)
	}
	return nil
}
