// Package cli implements the interactive operator menu.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"github.com/bellaciao/heistops/internal/database"
)

var (
	critical = color.New(color.FgRed, color.Bold)
	ok       = color.New(color.FgGreen)
	heading  = color.New(color.FgCyan, color.Bold)
	failure  = color.New(color.FgRed)
)

// Menu reads operator choices from in and writes results to out. Each option
// runs a single store call, so no connection is held while waiting for input.
type Menu struct {
	db  *database.DB
	in  *bufio.Scanner
	out io.Writer
}

// NewMenu creates a menu bound to the given streams
func NewMenu(db *database.DB, in io.Reader, out io.Writer) *Menu {
	return &Menu{db: db, in: bufio.NewScanner(in), out: out}
}

type option struct {
	key   string
	label string
	run   func(*Menu, context.Context) error
}

var options = []option{
	{"1", "Crew Profiles & Weapon Skills", (*Menu).crewProfiles},
	{"2", "Find Hostages by Status", (*Menu).hostagesByStatus},
	{"3", "View Task Assignment Details", (*Menu).taskAssignments},
	{"4", "Check Phase Resource Requirements", (*Menu).phaseRequirements},
	{"5", "View Crew Deviations", (*Menu).crewDeviations},
	{"6", "Add New Plan Phase", (*Menu).addPhase},
	{"7", "Update Resource Quantity", (*Menu).updateResource},
	{"8", "Delete Police Unit", (*Menu).deletePoliceUnit},
}

// Run loops until the operator quits, input ends or ctx is cancelled
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.printMenu()

		choice, more := m.prompt("Select Option: ")
		if !more {
			return m.in.Err()
		}
		choice = strings.ToLower(choice)
		if choice == "q" {
			fmt.Fprintln(m.out, "Bella Ciao! Exiting application...")
			return nil
		}

		opt := lookup(choice)
		if opt == nil {
			fmt.Fprintln(m.out, "Invalid choice. Please try again.")
			continue
		}

		fmt.Fprintln(m.out)
		heading.Fprintf(m.out, "--- %s ---\n", opt.label)
		if err := opt.run(m, ctx); err != nil {
			log.Debug().Err(err).Str("option", opt.key).Msg("Menu option failed")
			failure.Fprintf(m.out, "Error: %s\n", describe(err))
		}
	}
}

func lookup(key string) *option {
	for i := range options {
		if options[i].key == key {
			return &options[i]
		}
	}
	return nil
}

func (m *Menu) printMenu() {
	fmt.Fprintln(m.out)
	heading.Fprintln(m.out, "========== OPERATION BELLA CIAO ==========")
	for _, opt := range options {
		fmt.Fprintf(m.out, "%s. %s\n", opt.key, opt.label)
	}
	fmt.Fprintln(m.out, "q. Quit")
}

// prompt writes label and returns the next trimmed input line. more is false at end of input.
func (m *Menu) prompt(label string) (line string, more bool) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

var errInputClosed = errors.New("input closed")

func (m *Menu) promptInt64(label string) (int64, error) {
	line, more := m.prompt(label)
	if !more {
		return 0, errInputClosed
	}
	n, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return 0, database.ValidationError{Field: label, Message: fmt.Sprintf("%q is not a whole number", line)}
	}
	return n, nil
}

func (m *Menu) promptInt(label string) (int, error) {
	n, err := m.promptInt64(label)
	return int(n), err
}

// promptIntDefault is promptInt that returns fallback for a blank line.
func (m *Menu) promptIntDefault(label string, fallback int) (int, error) {
	line, more := m.prompt(label)
	if !more {
		return 0, errInputClosed
	}
	if line == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, database.ValidationError{Field: label, Message: fmt.Sprintf("%q is not a whole number", line)}
	}
	return n, nil
}

// describe turns a store error into an operator facing message
func describe(err error) string {
	var verr database.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, errInputClosed):
		return err.Error()
	}
	switch database.Kind(err) {
	case database.KindConnectivity:
		return "database unavailable"
	case database.KindDuplicate:
		return "record already exists"
	case database.KindConstraint:
		return "referenced record missing or still in use"
	}
	return err.Error()
}

func (m *Menu) crewProfiles(ctx context.Context) error {
	crew, err := m.db.ListCrew(ctx)
	if err != nil {
		return err
	}
	for _, c := range crew {
		weapon := "N/A"
		if c.Skill.Kind == database.SkillTactical && c.Skill.Value != "" {
			weapon = c.Skill.Value
		}
		fmt.Fprintf(m.out, "Agent: %s | Spec: %s | Loyalty: %d | Weapon Skill: %s\n",
			c.CodeName, c.Specialization, c.LoyaltyScore, weapon)
	}
	return nil
}

func (m *Menu) hostagesByStatus(ctx context.Context) error {
	status, more := m.prompt("Enter status (e.g., Cooperative, Hostile, Resistant): ")
	if !more {
		return errInputClosed
	}
	hostages, err := m.db.FilterHostagesByStatus(ctx, status)
	if errors.Is(err, database.ErrFilterRequired) {
		fmt.Fprintln(m.out, "A status is required.")
		return nil
	}
	if err != nil {
		return err
	}
	if len(hostages) == 0 {
		fmt.Fprintf(m.out, "No hostages found with status '%s'.\n", status)
		return nil
	}
	for _, h := range hostages {
		manager := "None"
		if h.ManagerCodename != nil {
			manager = *h.ManagerCodename
		}
		fmt.Fprintf(m.out, "ID: %d | Hostage: %s %s | Managed By: %s\n", h.HostageID, h.FirstName, h.LastName, manager)
	}
	return nil
}

func (m *Menu) taskAssignments(ctx context.Context) error {
	tasks, err := m.db.ListTaskAssignments(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(m.out, "No task assignments found.")
		return nil
	}
	for _, t := range tasks {
		fmt.Fprintf(m.out, "Phase: %s | Crew: %s (%s) | Using: %s | At: %s\n",
			t.PhaseCodename, t.CodeName, t.Specialization, t.ResourceType, t.LocationName)
	}
	return nil
}

func (m *Menu) phaseRequirements(ctx context.Context) error {
	reqs, err := m.db.ListPhaseRequirements(ctx)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		fmt.Fprintln(m.out, "No phase requirements found.")
		return nil
	}
	for _, r := range reqs {
		status := r.Status()
		label := ok.Sprint(status)
		if status == database.SupplyCritical {
			label = critical.Sprint(status)
		}
		fmt.Fprintf(m.out, "Phase '%s' needs %s (Have: %d) [%s]\n",
			r.PhaseCodename, r.ResourceType, r.CurrentQuantity, label)
	}
	return nil
}

func (m *Menu) crewDeviations(ctx context.Context) error {
	deviations, err := m.db.ListDeviations(ctx)
	if err != nil {
		return err
	}
	if len(deviations) == 0 {
		fmt.Fprintln(m.out, "No deviations logged.")
		return nil
	}
	for _, d := range deviations {
		fmt.Fprintf(m.out, "Crew: %s deviated from Phase: %s\n", d.CodeName, d.PhaseCodename)
	}
	return nil
}

func (m *Menu) addPhase(ctx context.Context) error {
	id, err := m.promptInt64("New Phase ID: ")
	if err != nil {
		return err
	}
	codename, more := m.prompt("Phase Codename: ")
	if !more {
		return errInputClosed
	}
	duration, err := m.promptInt("Planned Duration (hours): ")
	if err != nil {
		return err
	}
	dissonance, err := m.promptIntDefault("Current Dissonance (default 0): ", 0)
	if err != nil {
		return err
	}

	phase := &database.Phase{PhaseID: id, Codename: codename, PlannedDuration: duration, CurrentDissonance: dissonance}
	if err := m.db.CreatePhase(ctx, phase); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Phase '%s' added successfully.\n", codename)
	return nil
}

func (m *Menu) updateResource(ctx context.Context) error {
	id, err := m.promptInt64("Enter Resource ID to update: ")
	if err != nil {
		return err
	}
	quantity, err := m.promptInt("Enter New Current Quantity: ")
	if err != nil {
		return err
	}

	outcome, err := m.db.UpdateResourceQuantity(ctx, id, quantity)
	if err != nil {
		return err
	}
	if outcome == database.OutcomeNotFound {
		fmt.Fprintln(m.out, "Resource ID not found.")
		return nil
	}
	fmt.Fprintln(m.out, "Resource quantity updated.")
	return nil
}

func (m *Menu) deletePoliceUnit(ctx context.Context) error {
	id, err := m.promptInt64("Enter Unit ID to delete: ")
	if err != nil {
		return err
	}

	outcome, err := m.db.DeletePoliceUnit(ctx, id)
	if err != nil {
		return err
	}
	if outcome == database.OutcomeNotFound {
		fmt.Fprintln(m.out, "Police Unit ID not found.")
		return nil
	}
	fmt.Fprintf(m.out, "Police Unit %d deleted successfully.\n", id)
	return nil
}
