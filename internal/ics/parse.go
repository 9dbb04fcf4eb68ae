package ics

import (
	"bytes"
	"errors"
	"fmt"
	_ "time/tzdata"

	ical "github.com/arran4/golang-ical"

	appLog "sheetcal/internal/log"
	"sheetcal/internal/model"
)

// ParseICS parses an iCalendar payload back into occurrences.
//
//   - It relies on the underlying library's TZID handling to construct
//     time.Time values with their Location set.
//   - VEVENTs that lack a UID or valid DTSTART/DTEND are logged and skipped.
func ParseICS(body []byte) ([]model.Occurrence, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	occs := make([]model.Occurrence, 0)
	for _, comp := range cal.Events() {
		occ, perr := parseVEvent(comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr, "uid", comp.Id())
			continue
		}
		occs = append(occs, occ)
	}

	appLog.Debug("ics parse completed", "event_count", len(occs))
	return occs, nil
}

func parseVEvent(ve *ical.VEvent) (model.Occurrence, error) {
	var out model.Occurrence

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = ical.FromText(uidProp.Value)

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = ical.FromText(p.Value)
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return out, fmt.Errorf("DTEND: %w", err)
	}
	out.Start = start
	out.End = end

	return out, nil
}
