package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Tier is the derived three-level stock status shown on the resource roster
type Tier string

const (
	TierCritical Tier = "critical"
	TierWarning  Tier = "warning"
	TierGood     Tier = "good"
)

// ResourceTier classifies a stock level: critical at or below the threshold,
// warning at or below twice the threshold, good above that.
func ResourceTier(quantity, threshold int) Tier {
	switch {
	case quantity <= threshold:
		return TierCritical
	case quantity <= 2*threshold:
		return TierWarning
	default:
		return TierGood
	}
}

// Supply is the binary phase requirement status used by the operator menu
type Supply string

const (
	SupplyCritical Supply = "CRITICAL"
	SupplyOK       Supply = "OK"
)

// SupplyStatus is CRITICAL at or below the threshold and OK above it.
// It deliberately has no warning band.
func SupplyStatus(quantity, threshold int) Supply {
	if quantity <= threshold {
		return SupplyCritical
	}
	return SupplyOK
}

// Resource is a consumable asset
type Resource struct {
	ResourceID        int64
	Type              string
	CurrentQuantity   int
	CriticalThreshold int
}

// Tier returns the derived stock status of the resource
func (r *Resource) Tier() Tier {
	return ResourceTier(r.CurrentQuantity, r.CriticalThreshold)
}

// resourceDependents removes every row that references a resource
var resourceDependents = []string{
	"DELETE FROM requires WHERE resource_id = ?",
	"DELETE FROM task_assignments WHERE resource_id = ?",
}

func scanResource(rows *sql.Rows) (*Resource, error) {
	var r Resource
	if err := rows.Scan(&r.ResourceID, &r.Type, &r.CurrentQuantity, &r.CriticalThreshold); err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) listResources(ctx context.Context, query string, args ...any) ([]*Resource, error) {
	var resources []*Resource
	err := db.queryRows(ctx, func(rows *sql.Rows) error {
		r, err := scanResource(rows)
		if err != nil {
			return err
		}
		resources = append(resources, r)
		return nil
	}, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return resources, nil
}

// ListResources returns all resources ordered by type
func (db *DB) ListResources(ctx context.Context) ([]*Resource, error) {
	return db.listResources(ctx, `
		SELECT resource_id, type, current_quantity, critical_threshold
		FROM resources
		ORDER BY type, resource_id
	`)
}

// GetResource retrieves a resource by ID. Returns nil if not found.
func (db *DB) GetResource(ctx context.Context, id int64) (*Resource, error) {
	resources, err := db.listResources(ctx, `
		SELECT resource_id, type, current_quantity, critical_threshold
		FROM resources WHERE resource_id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if len(resources) == 0 {
		return nil, nil
	}
	return resources[0], nil
}

// CreateResource inserts a resource and returns its system-assigned ID
func (db *DB) CreateResource(ctx context.Context, resourceType string, quantity, threshold int) (int64, error) {
	switch {
	case strings.TrimSpace(resourceType) == "":
		return 0, ValidationError{Field: "type", Message: "type is required"}
	case quantity < 0:
		return 0, ValidationError{Field: "current_quantity", Message: "must not be negative"}
	case threshold < 0:
		return 0, ValidationError{Field: "critical_threshold", Message: "must not be negative"}
	}

	var id int64
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO resources (type, current_quantity, critical_threshold) VALUES (?, ?, ?)
		`, resourceType, quantity, threshold)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create resource: %w", err)
	}
	return id, nil
}

// UpdateResourceQuantity replaces the current quantity of a resource
func (db *DB) UpdateResourceQuantity(ctx context.Context, id int64, quantity int) (Outcome, error) {
	if quantity < 0 {
		return OutcomeNotFound, ValidationError{Field: "current_quantity", Message: "must not be negative"}
	}

	affected, err := db.Mutate(ctx, "UPDATE resources SET current_quantity = ? WHERE resource_id = ?", quantity, id)
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to update resource: %w", err)
	}
	return outcomeOf(affected), nil
}

// DeleteResource removes a resource with its phase requirements and task assignments
func (db *DB) DeleteResource(ctx context.Context, id int64) (Outcome, error) {
	var affected int64
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := execAll(ctx, tx, resourceDependents, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM resources WHERE resource_id = ?", id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("failed to delete resource: %w", err)
	}
	return outcomeOf(affected), nil
}
