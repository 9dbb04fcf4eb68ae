package schedule

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"sheetcal/internal/model"
)

// rangeSeparator splits a row label into its start and end tokens.
const rangeSeparator = " - "

// Header date tokens carry day and month only. "2/1" is day/month
// ("1/6" = 1 June); "2-Jan" is the older spreadsheet export form.
var dateLayouts = []string{"2/1", "2-Jan"}

// Hour tokens such as "9AM" or "09PM"; minutes are optional.
var hourLayouts = []string{"3PM", "3:04PM"}

// ParseDate resolves a header date token against year and returns it in
// model.DateLayout.
func ParseDate(token string, year int) (string, error) {
	tok := strings.TrimSpace(token)

	var (
		parsed time.Time
		err    error
	)
	for _, layout := range dateLayouts {
		parsed, err = time.Parse(layout, tok)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", &model.ParseError{Input: token, Reason: "invalid date", Err: err}
	}

	// time.Parse validated against year 0, which is a leap year; check the
	// day still exists in the requested year.
	d := time.Date(year, parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	if d.Month() != parsed.Month() || d.Day() != parsed.Day() {
		return "", &model.ParseError{
			Input:  token,
			Reason: "invalid date",
			Err:    errors.New("day out of range for year"),
		}
	}
	return d.Format(model.DateLayout), nil
}

// ParseHour parses an hour-plus-meridiem token ("9AM", "12pm", "9:30AM").
func ParseHour(token string) (model.Clock, error) {
	tok := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(token), " ", ""))

	var err error
	for _, layout := range hourLayouts {
		var t time.Time
		t, err = time.Parse(layout, tok)
		if err != nil {
			continue
		}
		// The "3" layout takes hour 0 as 12; a 12-hour clock has no hour 0.
		if t.Hour()%12 == 0 && hourDigits(tok) != 12 {
			return 0, &model.ParseError{Input: token, Reason: "invalid time", Err: errors.New("hour out of range")}
		}
		return model.ClockOf(t), nil
	}
	return 0, &model.ParseError{Input: token, Reason: "invalid time", Err: err}
}

func hourDigits(tok string) int {
	end := strings.IndexFunc(tok, func(r rune) bool { return r < '0' || r > '9' })
	if end < 0 {
		end = len(tok)
	}
	n, _ := strconv.Atoi(tok[:end])
	return n
}

// ParseTimeRange parses a row label such as "9AM - 5PM". Labels without the
// " - " separator are not shift rows: ok is false and err is nil.
func ParseTimeRange(label string) (shift model.Shift, ok bool, err error) {
	startTok, endTok, found := strings.Cut(label, rangeSeparator)
	if !found {
		return model.Shift{}, false, nil
	}

	start, err := ParseHour(startTok)
	if err != nil {
		return model.Shift{}, false, err
	}
	end, err := ParseHour(endTok)
	if err != nil {
		return model.Shift{}, false, err
	}
	if end <= start {
		return model.Shift{}, false, &model.ParseError{Input: label, Reason: "shift must end after it starts"}
	}
	return model.Shift{Start: start, End: end}, true, nil
}
