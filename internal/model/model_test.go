package model

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockString(t *testing.T) {
	cases := map[Clock]string{
		NewClock(0, 0):   "12:00 AM",
		NewClock(9, 0):   "09:00 AM",
		NewClock(12, 0):  "12:00 PM",
		NewClock(17, 30): "05:30 PM",
		NewClock(23, 59): "11:59 PM",
	}
	pattern := regexp.MustCompile(`^\d{2}:\d{2} (AM|PM)$`)
	for c, want := range cases {
		assert.Equal(t, want, c.String())
		assert.Regexp(t, pattern, c.String())

		back, err := ParseClock(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, back)
	}
}

func TestParseClockRejectsOtherLayouts(t *testing.T) {
	for _, in := range []string{"9AM", "09:00", "9:00AM", ""} {
		_, err := ParseClock(in)
		assert.Error(t, err, in)
	}
}

func TestParseErrorMessage(t *testing.T) {
	base := errors.New("day out of range")
	err := &ParseError{Input: "32/6", Row: 1, Column: 3, Reason: "invalid date", Err: base}

	assert.Equal(t, `parse "32/6": invalid date (row 1, column 3): day out of range`, err.Error())
	assert.ErrorIs(t, err, base)

	var pe *ParseError
	require.ErrorAs(t, error(err), &pe)
	assert.Equal(t, 3, pe.Column)

	assert.Equal(t, `parse "x": bad (row 4)`, (&ParseError{Input: "x", Row: 4, Reason: "bad"}).Error())
}

func TestInvalidTimezoneError(t *testing.T) {
	err := &InvalidTimezoneError{Name: "Mars/Olympus"}
	assert.Equal(t, `invalid timezone "Mars/Olympus"`, err.Error())
}
