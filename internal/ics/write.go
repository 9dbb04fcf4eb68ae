package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "sheetcal/internal/log"
	"sheetcal/internal/model"
)

// icalLocalLayout is DTSTART/DTEND wall-clock form used with a TZID parameter.
const icalLocalLayout = "20060102T150405"

// uidNamespace scopes the name-based UUIDs generated for events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://sheetcal.invalid/events"))

// WriterConfig controls calendar-level properties of the written file.
type WriterConfig struct {
	// ProductID is the PRODID value. Empty uses the library default.
	ProductID string
	// CalendarName is advertised as X-WR-CALNAME when set.
	CalendarName string
	// TimeZone is advertised as X-WR-TIMEZONE when set.
	TimeZone string
	// Stamp is used for DTSTAMP. Zero means time.Now().
	Stamp time.Time
}

// BuildCalendar converts occurrences into a VCALENDAR with one VEVENT each.
//
// DTSTART/DTEND are written as local wall-clock time with a TZID naming the
// occurrence's location, so calendar clients keep the shift in that zone.
// Every TZID used is defined by a VTIMEZONE ahead of the events. Occurrences
// in UTC are written in UTC form. Events without a UID get a stable one
// derived from summary and instants.
func BuildCalendar(occs []model.Occurrence, cfg WriterConfig) *ical.Calendar {
	cal := ical.NewCalendar()
	if cfg.ProductID != "" {
		cal.SetProductId(cfg.ProductID)
	}
	cal.SetMethod(ical.MethodPublish)
	if cfg.CalendarName != "" {
		cal.SetXWRCalName(cfg.CalendarName)
	}
	if cfg.TimeZone != "" {
		cal.SetXWRTimezone(cfg.TimeZone)
	}

	for _, sp := range zoneSpans(occs) {
		addTimezone(cal, sp)
	}

	stamp := cfg.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	for _, occ := range occs {
		uid := occ.UID
		if uid == "" {
			uid = EventUID(occ)
		}
		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(stamp)
		ev.SetSummary(occ.Summary)
		setInstant(ev, ical.ComponentPropertyDtStart, occ.Start)
		setInstant(ev, ical.ComponentPropertyDtEnd, occ.End)
	}
	return cal
}

// Write serializes occurrences as an iCalendar document to w.
func Write(w io.Writer, occs []model.Occurrence, cfg WriterConfig) error {
	cal := BuildCalendar(occs, cfg)
	if err := cal.SerializeTo(w); err != nil {
		return err
	}
	appLog.Info("ics written", "event_count", len(occs), "timezone", cfg.TimeZone)
	return nil
}

// EventUID returns the name-based UID for an occurrence. The same employee,
// start and end always give the same UID.
func EventUID(occ model.Occurrence) string {
	key := occ.Summary + "|" + occ.Start.UTC().Format(time.RFC3339) + "|" + occ.End.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uidNamespace, []byte(key)).String()
}

func setInstant(ev *ical.VEvent, prop ical.ComponentProperty, t time.Time) {
	if isUTC(t) {
		if prop == ical.ComponentPropertyDtStart {
			ev.SetStartAt(t)
		} else {
			ev.SetEndAt(t)
		}
		return
	}
	ev.SetProperty(prop, t.Format(icalLocalLayout), ical.WithTZID(t.Location().String()))
}

func isUTC(t time.Time) bool {
	loc := t.Location()
	return loc == time.UTC || loc.String() == "UTC"
}
