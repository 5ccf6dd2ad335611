// Package sentinel runs scheduled resource stock sweeps and database maintenance.
package sentinel

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/bellaciao/heistops/internal/database"
	"github.com/bellaciao/heistops/internal/notification"
	"github.com/bellaciao/heistops/internal/web/sse"
)

const (
	DefaultWatchSchedule       = "@every 5m"
	DefaultMaintenanceSchedule = "@daily"

	// jobTimeout bounds one sweep or maintenance run
	jobTimeout = 2 * time.Minute
)

// Publisher receives resource_critical events
type Publisher interface {
	Publish(eventType sse.EventType, data any)
}

// Notifier receives outbound alerts when resources enter or leave the critical tier
type Notifier interface {
	Notify(event notification.Event)
}

// Config holds the cron schedules. An empty schedule disables that job.
type Config struct {
	WatchSchedule       string
	MaintenanceSchedule string
}

// SweepResult is the outcome of one resource sweep
type SweepResult struct {
	Critical []Flagged
	Warning  []Flagged
	// Changed is true when the critical set differs from the previous sweep
	Changed bool
	// NewlyCritical and Recovered are the differences from the previous sweep
	NewlyCritical []Flagged
	Recovered     []Flagged
}

// Flagged identifies a resource picked up by a sweep. Resource types are not
// unique, so sets are compared by ResourceID.
type Flagged struct {
	ResourceID int64
	Type       string
}

// String returns the type with the resource id, e.g. "Ammunition #3".
func (f Flagged) String() string {
	return fmt.Sprintf("%s #%d", f.Type, f.ResourceID)
}

// Status reports the scheduler state
type Status struct {
	Running         bool
	Critical        []Flagged
	LastSweep       *time.Time
	NextSweep       *time.Time
	NextMaintenance *time.Time
}

// Manager owns the cron scheduler
type Manager struct {
	db        *database.DB
	publisher Publisher
	notifier  Notifier
	cron      *cron.Cron

	mu         sync.Mutex
	config     Config
	sweepID    cron.EntryID
	maintainID cron.EntryID
	running    bool
	critical   []Flagged
	lastSweep  time.Time
	sweptOnce  bool
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewManager creates a sentinel manager. publisher may be nil.
func NewManager(db *database.DB, publisher Publisher, cfg Config) *Manager {
	return &Manager{
		db:        db,
		publisher: publisher,
		cron:      cron.New(),
		config:    cfg,
	}
}

// SetNotifier sets the outbound alert destination. Call before Start.
func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

// Start schedules the jobs and starts the cron scheduler
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	if err := m.applySchedules(m.config); err != nil {
		return err
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.cron.Start()
	m.running = true

	log.Info().
		Str("watch_schedule", m.config.WatchSchedule).
		Str("maintenance_schedule", m.config.MaintenanceSchedule).
		Msg("Sentinel started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.cancel()
	m.running = false
	m.mu.Unlock()

	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Sentinel stopped")
}

// UpdateSchedules replaces both schedules. It is safe to call while running.
func (m *Manager) UpdateSchedules(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg == m.config {
		return nil
	}
	if err := m.applySchedules(cfg); err != nil {
		return err
	}
	m.config = cfg
	log.Info().
		Str("watch_schedule", cfg.WatchSchedule).
		Str("maintenance_schedule", cfg.MaintenanceSchedule).
		Msg("Sentinel schedules updated")
	return nil
}

// applySchedules validates both specs before touching the current entries
func (m *Manager) applySchedules(cfg Config) error {
	for _, spec := range []string{cfg.WatchSchedule, cfg.MaintenanceSchedule} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", spec, err)
		}
	}

	m.removeSchedules()

	if cfg.WatchSchedule != "" {
		id, err := m.cron.AddFunc(cfg.WatchSchedule, m.scheduledSweep)
		if err != nil {
			return err
		}
		m.sweepID = id
	}
	if cfg.MaintenanceSchedule != "" {
		id, err := m.cron.AddFunc(cfg.MaintenanceSchedule, m.scheduledMaintenance)
		if err != nil {
			return err
		}
		m.maintainID = id
	}
	return nil
}

func (m *Manager) removeSchedules() {
	if m.sweepID != 0 {
		m.cron.Remove(m.sweepID)
		m.sweepID = 0
	}
	if m.maintainID != 0 {
		m.cron.Remove(m.maintainID)
		m.maintainID = 0
	}
}

func (m *Manager) jobContext() (context.Context, context.CancelFunc) {
	m.mu.Lock()
	parent := m.ctx
	m.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, jobTimeout)
}

func (m *Manager) scheduledSweep() {
	ctx, cancel := m.jobContext()
	defer cancel()

	if _, err := m.Sweep(ctx); err != nil {
		log.Error().Err(err).Str("kind", database.Kind(err).String()).Msg("Scheduled resource sweep failed")
	}
}

func (m *Manager) scheduledMaintenance() {
	ctx, cancel := m.jobContext()
	defer cancel()

	start := time.Now()
	if err := m.db.Optimize(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduled database optimize failed")
		return
	}
	log.Debug().Dur("duration", time.Since(start)).Msg("Database optimized")
}

// Sweep classifies every resource by stock tier, logs the critical and warning
// ones, and publishes resource_critical when the critical set changes.
func (m *Manager) Sweep(ctx context.Context) (*SweepResult, error) {
	resources, err := m.db.ListResources(ctx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Critical: []Flagged{}, Warning: []Flagged{}}
	stock := make(map[int64]string)
	for _, r := range resources {
		flagged := Flagged{ResourceID: r.ResourceID, Type: r.Type}
		switch r.Tier() {
		case database.TierCritical:
			result.Critical = append(result.Critical, flagged)
			stock[r.ResourceID] = fmt.Sprintf("%d / %d", r.CurrentQuantity, r.CriticalThreshold)
			log.Warn().
				Int64("resource_id", r.ResourceID).
				Str("type", r.Type).
				Int("quantity", r.CurrentQuantity).
				Int("threshold", r.CriticalThreshold).
				Msg("Resource at critical level")
		case database.TierWarning:
			result.Warning = append(result.Warning, flagged)
			log.Info().
				Int64("resource_id", r.ResourceID).
				Str("type", r.Type).
				Int("quantity", r.CurrentQuantity).
				Msg("Resource running low")
		}
	}

	m.mu.Lock()
	previous := m.critical
	result.Changed = !m.sweptOnce || !slices.EqualFunc(previous, result.Critical, sameResource)
	result.NewlyCritical = difference(result.Critical, previous)
	result.Recovered = difference(previous, result.Critical)
	m.critical = result.Critical
	m.sweptOnce = true
	m.lastSweep = time.Now()
	notifier := m.notifier
	m.mu.Unlock()

	if result.Changed && m.publisher != nil {
		m.publisher.Publish(sse.EventResourceCritical, map[string]any{
			"critical": labels(result.Critical),
			"warning":  labels(result.Warning),
		})
	}
	if notifier != nil {
		notifyChanges(notifier, result, stock)
	}

	log.Debug().
		Int("resources", len(resources)).
		Int("critical", len(result.Critical)).
		Int("warning", len(result.Warning)).
		Bool("changed", result.Changed).
		Msg("Resource sweep complete")
	return result, nil
}

// Status returns the scheduler state
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := Status{Running: m.running, Critical: slices.Clone(m.critical)}
	if !m.lastSweep.IsZero() {
		t := m.lastSweep
		status.LastSweep = &t
	}
	if m.sweepID != 0 {
		if next := m.cron.Entry(m.sweepID).Next; !next.IsZero() {
			status.NextSweep = &next
		}
	}
	if m.maintainID != 0 {
		if next := m.cron.Entry(m.maintainID).Next; !next.IsZero() {
			status.NextMaintenance = &next
		}
	}
	return status
}

// difference returns the entries of a that are not in b, keeping a's order
func difference(a, b []Flagged) []Flagged {
	var out []Flagged
	for _, v := range a {
		if !slices.ContainsFunc(b, func(f Flagged) bool { return sameResource(f, v) }) {
			out = append(out, v)
		}
	}
	return out
}

func sameResource(a, b Flagged) bool {
	return a.ResourceID == b.ResourceID
}

func labels(flagged []Flagged) []string {
	out := make([]string, 0, len(flagged))
	for _, f := range flagged {
		out = append(out, f.String())
	}
	return out
}

func notifyChanges(n Notifier, result *SweepResult, stock map[int64]string) {
	if len(result.NewlyCritical) > 0 {
		fields := make(map[string]string, len(result.NewlyCritical))
		for _, f := range result.NewlyCritical {
			fields[f.String()] = stock[f.ResourceID]
		}
		n.Notify(notification.Event{
			Type:    notification.EventResourceCritical,
			Title:   "Resources at critical level",
			Message: strings.Join(labels(result.NewlyCritical), ", ") + " at or below critical threshold",
			Fields:  fields,
		})
	}
	if len(result.Recovered) > 0 {
		n.Notify(notification.Event{
			Type:    notification.EventResourceRecovered,
			Title:   "Resources restocked",
			Message: strings.Join(labels(result.Recovered), ", ") + " back above critical threshold",
		})
	}
}
