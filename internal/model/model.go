package model

import (
	"fmt"
	"time"
)

// ClockLayout is the textual form of a time of day used throughout the
// pipeline and in the intermediate event table, e.g. "09:00 AM".
const ClockLayout = "03:04 PM"

// DateLayout is the textual form of a calendar date, e.g. "06/01/2024".
const DateLayout = "01/02/2006"

// Clock is a time of day in minutes after midnight.
type Clock int

// NewClock returns the Clock for hour:minute (24h).
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ClockOf returns the time of day of t, dropping seconds.
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute())
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// String renders c in ClockLayout.
func (c Clock) String() string {
	return time.Date(2000, 1, 1, c.Hour(), c.Minute(), 0, 0, time.UTC).Format(ClockLayout)
}

// ParseClock parses a ClockLayout string ("09:00 AM").
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, err
	}
	return ClockOf(t), nil
}

// Shift is a single working interval on one day. Start is always before End.
type Shift struct {
	Start Clock
	End   Clock
}

func (s Shift) String() string {
	return s.Start.String() + " to " + s.End.String()
}

// Event is one row of the intermediate event table. Dates use DateLayout and
// times use ClockLayout. EndDate always equals StartDate.
type Event struct {
	Subject   string
	StartDate string
	StartTime string
	EndDate   string
	EndTime   string
}

// Occurrence is an Event resolved to concrete instants in a timezone; it is
// what the calendar sink consumes.
type Occurrence struct {
	// UID is filled in by the calendar writer when empty.
	UID     string
	Summary string

	// Start / End carry the display timezone as their Location.
	Start time.Time
	End   time.Time
}

// ParseError reports a token of the source or intermediate table that could
// not be parsed. Row and Column are 1-based table positions; 0 means unknown.
type ParseError struct {
	Input  string
	Row    int
	Column int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
	switch {
	case e.Row > 0 && e.Column > 0:
		msg += fmt.Sprintf(" (row %d, column %d)", e.Row, e.Column)
	case e.Row > 0:
		msg += fmt.Sprintf(" (row %d)", e.Row)
	case e.Column > 0:
		msg += fmt.Sprintf(" (column %d)", e.Column)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// InvalidTimezoneError reports an unrecognized IANA timezone name.
type InvalidTimezoneError struct {
	Name string
	Err  error
}

func (e *InvalidTimezoneError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid timezone %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("invalid timezone %q", e.Name)
}

func (e *InvalidTimezoneError) Unwrap() error { return e.Err }
