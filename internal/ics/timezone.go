package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"sheetcal/internal/model"
)

var (
	propTzOffsetFrom = ical.ComponentProperty(ical.PropertyTzoffsetfrom)
	propTzOffsetTo   = ical.ComponentProperty(ical.PropertyTzoffsetto)
	propTzName       = ical.ComponentProperty(ical.PropertyTzname)
)

// zoneSpan is the range of instants the calendar uses in one location.
type zoneSpan struct {
	loc      *time.Location
	from, to time.Time
}

// zoneSpans collects the locations written with a TZID, in first-use order.
func zoneSpans(occs []model.Occurrence) []*zoneSpan {
	var spans []*zoneSpan
	byName := map[string]*zoneSpan{}
	for _, occ := range occs {
		for _, t := range []time.Time{occ.Start, occ.End} {
			if isUTC(t) {
				continue
			}
			name := t.Location().String()
			sp, ok := byName[name]
			if !ok {
				sp = &zoneSpan{loc: t.Location(), from: t, to: t}
				byName[name] = sp
				spans = append(spans, sp)
			}
			if t.Before(sp.from) {
				sp.from = t
			}
			if t.After(sp.to) {
				sp.to = t
			}
		}
	}
	return spans
}

// addTimezone appends a VTIMEZONE for sp.loc. It holds one observance in
// effect before sp.from and one per offset change up to sp.to, each with a
// single onset, so the definition is exact for every instant in the span.
func addTimezone(cal *ical.Calendar, sp *zoneSpan) {
	tz := cal.AddTimezone(sp.loc.String())

	// Local midnight the day before the first instant keeps the onset
	// stable across runs with the same data.
	y, m, d := sp.from.In(sp.loc).Date()
	at := time.Date(y, m, d-1, 0, 0, 0, 0, sp.loc)
	_, offset := at.Zone()
	addObservance(tz, at, offset)

	limit := sp.to.Add(time.Hour)
	for {
		next, ok := nextTransition(at, limit)
		if !ok {
			return
		}
		addObservance(tz, next, offset)
		_, offset = next.Zone()
		at = next
	}
}

// addObservance adds a STANDARD or DAYLIGHT block starting at onset, which
// is written as local time in the offset that was in effect before it.
func addObservance(tz *ical.VTimezone, onset time.Time, fromOffset int) {
	name, toOffset := onset.Zone()

	var cb *ical.ComponentBase
	if onset.IsDST() {
		dl := &ical.Daylight{}
		tz.Components = append(tz.Components, dl)
		cb = &dl.ComponentBase
	} else {
		cb = &tz.AddStandard().ComponentBase
	}

	local := onset.In(time.FixedZone("", fromOffset))
	cb.SetProperty(ical.ComponentPropertyDtStart, local.Format(icalLocalLayout))
	cb.SetProperty(propTzOffsetFrom, formatOffset(fromOffset))
	cb.SetProperty(propTzOffsetTo, formatOffset(toOffset))
	if name != "" {
		cb.SetProperty(propTzName, name)
	}
}

// nextTransition finds the first offset change after after and no later
// than limit, to the second.
func nextTransition(after, limit time.Time) (time.Time, bool) {
	loc := after.Location()
	_, offset := after.Zone()
	for t := after.Add(time.Hour); !t.After(limit); t = t.Add(time.Hour) {
		if _, o := t.Zone(); o == offset {
			continue
		}
		lo, hi := t.Add(-time.Hour).Unix(), t.Unix()
		for hi-lo > 1 {
			mid := lo + (hi-lo)/2
			if _, o := time.Unix(mid, 0).In(loc).Zone(); o == offset {
				lo = mid
			} else {
				hi = mid
			}
		}
		return time.Unix(hi, 0).In(loc), true
	}
	return time.Time{}, false
}

// formatOffset renders seconds east of UTC as the UTC-OFFSET value type.
func formatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if s != 0 {
		return fmt.Sprintf("%c%02d%02d%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%c%02d%02d", sign, h, m)
}
