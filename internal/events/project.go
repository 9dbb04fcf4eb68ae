package events

import (
	"errors"
	"strings"
	"time"
	_ "time/tzdata"

	"sheetcal/internal/model"
	"sheetcal/internal/schedule"
)

// DateTimeLayout is how an intermediate record's date and time columns read
// when joined with a single space.
const DateTimeLayout = model.DateLayout + " " + model.ClockLayout

// Flatten emits one Event per shift of s, ordered by date, then employee,
// then shift, as they appear in s.
func Flatten(s schedule.Schedule) []model.Event {
	out := make([]model.Event, 0, s.ShiftCount())
	for _, d := range s.Days {
		for _, r := range d.Rosters {
			for _, sh := range r.Shifts {
				out = append(out, model.Event{
					Subject:   r.Employee,
					StartDate: d.Date,
					StartTime: sh.Start.String(),
					EndDate:   d.Date,
					EndTime:   sh.End.String(),
				})
			}
		}
	}
	return out
}

// LoadLocation resolves an IANA timezone name.
func LoadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &model.InvalidTimezoneError{Name: name, Err: errors.New("empty name")}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &model.InvalidTimezoneError{Name: name, Err: err}
	}
	return loc, nil
}

// Localize resolves every event to start/end instants in the timezone tz.
func Localize(evs []model.Event, tz string) ([]model.Occurrence, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	return LocalizeIn(evs, loc)
}

// LocalizeIn is Localize for an already loaded location.
func LocalizeIn(evs []model.Event, loc *time.Location) ([]model.Occurrence, error) {
	out := make([]model.Occurrence, 0, len(evs))
	for i, ev := range evs {
		start, err := parseInstant(ev.StartDate, ev.StartTime, loc)
		if err != nil {
			return nil, recordErr(err, i, "Start")
		}
		end, err := parseInstant(ev.EndDate, ev.EndTime, loc)
		if err != nil {
			return nil, recordErr(err, i, "End")
		}
		out = append(out, model.Occurrence{
			Summary: ev.Subject,
			Start:   start,
			End:     end,
		})
	}
	return out, nil
}

func parseInstant(date, clock string, loc *time.Location) (time.Time, error) {
	s := date + " " + clock
	t, err := time.ParseInLocation(DateTimeLayout, s, loc)
	if err != nil {
		return time.Time{}, &model.ParseError{Input: s, Reason: "invalid date/time", Err: err}
	}
	return t, nil
}

// recordErr positions err at data record i (0-based) of the event table.
func recordErr(err error, i int, field string) error {
	var pe *model.ParseError
	if errors.As(err, &pe) {
		pe.Row = i + 2
		pe.Reason = "invalid " + strings.ToLower(field) + " date/time"
	}
	return err
}
