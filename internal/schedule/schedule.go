package schedule

import (
	"strings"

	"sheetcal/internal/grid"
	appLog "sheetcal/internal/log"
	"sheetcal/internal/model"
)

// Schedule is the per-date, per-employee view of a schedule table.
// Days, Rosters and Shifts are in first-appearance order of the table scan.
type Schedule struct {
	Days []Day
}

// Day holds everyone working on one date (model.DateLayout).
type Day struct {
	Date    string
	Rosters []Roster
}

// Roster is one employee's shifts on a day. No two consecutive shifts touch;
// touching shifts are merged when added.
type Roster struct {
	Employee string
	Shifts   []model.Shift
}

// ShiftCount returns the total number of shifts in s.
func (s Schedule) ShiftCount() int {
	n := 0
	for _, d := range s.Days {
		for _, r := range d.Rosters {
			n += len(r.Shifts)
		}
	}
	return n
}

// String renders s for humans, one date block at a time.
func (s Schedule) String() string {
	var b strings.Builder
	for _, d := range s.Days {
		b.WriteString("Date: " + d.Date + "\n")
		for _, r := range d.Rosters {
			parts := make([]string, len(r.Shifts))
			for i, sh := range r.Shifts {
				parts[i] = sh.String()
			}
			b.WriteString("  Employee: " + r.Employee + ", Shifts: " + strings.Join(parts, ", ") + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Builder accumulates shifts into a Schedule. The zero value is ready to use.
type Builder struct {
	days  []*dayBuilder
	index map[string]int
}

type dayBuilder struct {
	date    string
	rosters []*Roster
	index   map[string]int
}

// AddShift records that employee works s on date. When the employee's latest
// shift on that date ends exactly when s starts, that shift is extended to
// s.End; otherwise s is appended. Overlapping shifts are kept as they are.
func (b *Builder) AddShift(date, employee string, s model.Shift) {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	i, ok := b.index[date]
	if !ok {
		i = len(b.days)
		b.index[date] = i
		b.days = append(b.days, &dayBuilder{date: date, index: make(map[string]int)})
	}
	d := b.days[i]

	j, ok := d.index[employee]
	if !ok {
		j = len(d.rosters)
		d.index[employee] = j
		d.rosters = append(d.rosters, &Roster{Employee: employee})
	}
	r := d.rosters[j]

	if n := len(r.Shifts); n > 0 && r.Shifts[n-1].End == s.Start {
		r.Shifts[n-1].End = s.End
		return
	}
	r.Shifts = append(r.Shifts, s)
}

// Schedule returns a copy of everything added so far.
func (b *Builder) Schedule() Schedule {
	out := Schedule{Days: make([]Day, 0, len(b.days))}
	for _, d := range b.days {
		day := Day{Date: d.date, Rosters: make([]Roster, 0, len(d.rosters))}
		for _, r := range d.rosters {
			shifts := make([]model.Shift, len(r.Shifts))
			copy(shifts, r.Shifts)
			day.Rosters = append(day.Rosters, Roster{Employee: r.Employee, Shifts: shifts})
		}
		out.Days = append(out.Days, day)
	}
	return out
}

// Build turns a normalized grid into a Schedule. Header dates are resolved
// against year. Rows whose label is not a time range are skipped, and cells
// missing from short rows are treated as empty.
func Build(g grid.Grid, year int) (Schedule, error) {
	var dates []string
	if len(g.Header) > 1 {
		dates = make([]string, len(g.Header)-1)
	}
	for j := range dates {
		d, err := ParseDate(g.Header[j+1], year)
		if err != nil {
			return Schedule{}, at(err, 1, j+2)
		}
		dates[j] = d
	}

	var b Builder
	for i, label := range g.Labels {
		// table row 1 is the header
		tableRow := i + 2

		shift, ok, err := ParseTimeRange(label)
		if err != nil {
			return Schedule{}, at(err, tableRow, 1)
		}
		if !ok {
			appLog.Debug("skipping non-shift row", "row", tableRow, "label", label)
			continue
		}
		if i >= len(g.Rows) {
			break
		}
		row := g.Rows[i]

		for j, date := range dates {
			if j+1 >= len(row) || row[j+1] == "" {
				continue
			}
			for _, name := range strings.Split(row[j+1], ", ") {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				b.AddShift(date, name, shift)
			}
		}
	}

	s := b.Schedule()
	appLog.Info("schedule built", "dates", len(s.Days), "shifts", s.ShiftCount())
	return s, nil
}

// Coalesce feeds every shift of s through a fresh Builder. Applying it to an
// already coalesced schedule returns an equal schedule.
func Coalesce(s Schedule) Schedule {
	var b Builder
	for _, d := range s.Days {
		for _, r := range d.Rosters {
			for _, sh := range r.Shifts {
				b.AddShift(d.Date, r.Employee, sh)
			}
		}
	}
	return b.Schedule()
}

// at stamps a table position onto a *model.ParseError.
func at(err error, row, col int) error {
	if pe, ok := err.(*model.ParseError); ok {
		pe.Row, pe.Column = row, col
	}
	return err
}
