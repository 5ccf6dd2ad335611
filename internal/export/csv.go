// Package export renders the crew, hostage and resource rosters as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bellaciao/heistops/internal/database"
)

// Kind names an exportable roster
type Kind string

const (
	KindCrew      Kind = "crew"
	KindHostages  Kind = "hostages"
	KindResources Kind = "resources"
)

// Kinds lists every exportable roster in menu order
var Kinds = []Kind{KindCrew, KindHostages, KindResources}

var (
	crewHeader     = []string{"CodeName", "FirstName", "LastName", "Specialization", "LoyaltyScore"}
	hostageHeader  = []string{"HostageID", "FirstName", "LastName", "Status", "Usefulness", "Manager"}
	resourceHeader = []string{"ResourceID", "Type", "CurrentQuantity", "CriticalThreshold"}
)

// ParseKind validates a roster name
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown export kind %q (want crew, hostages or resources)", s)
}

// FileName returns the download name for an export taken at now,
// e.g. crew_export_20260301_091500.csv
func FileName(kind Kind, now time.Time) string {
	return fmt.Sprintf("%s_export_%s.csv", kind, now.Format("20060102_150405"))
}

// WriteCrew writes the crew roster, highest loyalty first
func WriteCrew(w io.Writer, crew []*database.CrewMember) error {
	return writeAll(w, crewHeader, len(crew), func(i int) []string {
		m := crew[i]
		return []string{m.CodeName, m.FirstName, m.LastName, m.Specialization, strconv.Itoa(m.LoyaltyScore)}
	})
}

// WriteHostages writes the hostage roster. An absent manager is written as "None".
func WriteHostages(w io.Writer, hostages []*database.Hostage) error {
	return writeAll(w, hostageHeader, len(hostages), func(i int) []string {
		h := hostages[i]
		return []string{
			strconv.FormatInt(h.HostageID, 10),
			h.FirstName,
			h.LastName,
			h.Status,
			strconv.Itoa(h.Usefulness),
			h.Manager(),
		}
	})
}

// WriteResources writes the resource roster
func WriteResources(w io.Writer, resources []*database.Resource) error {
	return writeAll(w, resourceHeader, len(resources), func(i int) []string {
		r := resources[i]
		return []string{
			strconv.FormatInt(r.ResourceID, 10),
			r.Type,
			strconv.Itoa(r.CurrentQuantity),
			strconv.Itoa(r.CriticalThreshold),
		}
	})
}

func writeAll(w io.Writer, header []string, n int, record func(int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range n {
		if err := cw.Write(record(i)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write loads the roster for kind from db and writes it to w.
// The rosters are read in full before anything is written.
func Write(ctx context.Context, db *database.DB, kind Kind, w io.Writer) error {
	switch kind {
	case KindCrew:
		crew, err := db.ListCrew(ctx)
		if err != nil {
			return err
		}
		return WriteCrew(w, crew)
	case KindHostages:
		hostages, err := db.ListHostagesForExport(ctx)
		if err != nil {
			return err
		}
		return WriteHostages(w, hostages)
	case KindResources:
		resources, err := db.ListResources(ctx)
		if err != nil {
			return err
		}
		return WriteResources(w, resources)
	}
	return fmt.Errorf("unknown export kind %q", kind)
}
