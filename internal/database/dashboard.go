package database

import (
	"context"
	"database/sql"
	"fmt"
)

// DashboardStats contains the overview counters and chart series for the dashboard
type DashboardStats struct {
	CrewCount         int
	HostageCount      int
	PhaseCount        int
	CriticalResources int
	TopLoyalty        []LoyaltyPoint
	HostageStatuses   []StatusCount
	PhaseProgress     []PhaseProgress
}

// LoyaltyPoint is one bar of the loyalty chart
type LoyaltyPoint struct {
	CodeName     string
	LoyaltyScore int
}

// StatusCount is the number of hostages with one status
type StatusCount struct {
	Status string
	Count  int
}

// PhaseProgress is a phase's planned duration against its dissonance
type PhaseProgress struct {
	Codename          string
	PlannedDuration   int
	CurrentDissonance int
}

// dashboardTopLoyalty is the number of crew members shown on the dashboard chart
const dashboardTopLoyalty = 10

// GetDashboardStats gathers the dashboard counters on one scoped connection
func (db *DB) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	err := db.WithConn(ctx, func(conn *sql.Conn) error {
		counters := []struct {
			query string
			dest  *int
		}{
			{"SELECT COUNT(*) FROM crew_members", &stats.CrewCount},
			{"SELECT COUNT(*) FROM hostages", &stats.HostageCount},
			{"SELECT COUNT(*) FROM plan_phases", &stats.PhaseCount},
			{"SELECT COUNT(*) FROM resources WHERE current_quantity <= critical_threshold", &stats.CriticalResources},
		}
		for _, c := range counters {
			if err := conn.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
				return err
			}
		}

		rows, err := conn.QueryContext(ctx, `
			SELECT codename, loyalty_score FROM crew_members
			ORDER BY loyalty_score DESC, codename LIMIT ?
		`, dashboardTopLoyalty)
		if err != nil {
			return err
		}
		for rows.Next() {
			var p LoyaltyPoint
			if err := rows.Scan(&p.CodeName, &p.LoyaltyScore); err != nil {
				rows.Close()
				return err
			}
			stats.TopLoyalty = append(stats.TopLoyalty, p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		rows, err = conn.QueryContext(ctx, "SELECT status, COUNT(*) FROM hostages GROUP BY status ORDER BY status")
		if err != nil {
			return err
		}
		for rows.Next() {
			var s StatusCount
			if err := rows.Scan(&s.Status, &s.Count); err != nil {
				rows.Close()
				return err
			}
			stats.HostageStatuses = append(stats.HostageStatuses, s)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		rows, err = conn.QueryContext(ctx, `
			SELECT phase_codename, planned_duration, current_dissonance FROM plan_phases ORDER BY phase_id
		`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var p PhaseProgress
			if err := rows.Scan(&p.Codename, &p.PlannedDuration, &p.CurrentDissonance); err != nil {
				return err
			}
			stats.PhaseProgress = append(stats.PhaseProgress, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}

	return stats, nil
}

// LoyaltyChartRows returns every crew member's loyalty score for the chart API
func (db *DB) LoyaltyChartRows(ctx context.Context) ([]Row, error) {
	return db.Select(ctx, `
		SELECT codename AS CodeName, loyalty_score AS LoyaltyScore
		FROM crew_members
		ORDER BY loyalty_score DESC, codename
	`)
}

// ResourceChartRows returns stock levels for the resource chart API
func (db *DB) ResourceChartRows(ctx context.Context) ([]Row, error) {
	return db.Select(ctx, `
		SELECT type AS Type, current_quantity AS CurrentQuantity, critical_threshold AS CriticalThreshold
		FROM resources
		ORDER BY type, resource_id
	`)
}
