package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetcal/internal/ics"
	"sheetcal/internal/model"
)

func writeInput(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "week.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func options(dir, input string) Options {
	return Options{
		Input:        input,
		TimeZone:     "America/Los_Angeles",
		Year:         2024,
		EventsFile:   filepath.Join(dir, "output_events.csv"),
		CalendarFile: filepath.Join(dir, "output_ics.ics"),
		CalendarName: "Shifts",
		ProductID:    "-//sheetcal//test//EN",
		Now:          time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "Label,1/6,2/6\n9AM - 12PM,Alice,\"Bob, Carol\"\n")
	opts := options(dir, input)

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Schedule.ShiftCount())
	require.Len(t, res.Events, 3)
	require.Len(t, res.Occurrences, 3)

	table, err := os.ReadFile(opts.EventsFile)
	require.NoError(t, err)
	assert.Equal(t,
		"Subject,Start date,Start time,End date,End time\n"+
			"Alice,06/01/2024,09:00 AM,06/01/2024,12:00 PM\n"+
			"Bob,06/02/2024,09:00 AM,06/02/2024,12:00 PM\n"+
			"Carol,06/02/2024,09:00 AM,06/02/2024,12:00 PM\n",
		string(table))

	body, err := os.ReadFile(opts.CalendarFile)
	require.NoError(t, err)
	occs, err := ics.ParseICS(body)
	require.NoError(t, err)
	require.Len(t, occs, 3)

	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	wantDays := []int{1, 2, 2}
	for i, o := range occs {
		assert.True(t, o.Start.Equal(time.Date(2024, 6, wantDays[i], 9, 0, 0, 0, loc)), "start %d", i)
		assert.True(t, o.End.Equal(time.Date(2024, 6, wantDays[i], 12, 0, 0, 0, loc)), "end %d", i)
	}
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, []string{occs[0].Summary, occs[1].Summary, occs[2].Summary})
}

func TestRunParseErrorWritesNothing(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "Label,1/6,32/6\n9AM - 12PM,Alice,Bob\n")
	opts := options(dir, input)

	_, err := Run(context.Background(), opts)
	var pe *model.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "32/6", pe.Input)

	assertNoOutputs(t, dir, opts)
}

func TestRunInvalidTimezone(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "Label,1/6\n9AM - 12PM,Alice\n")
	opts := options(dir, input)
	opts.TimeZone = "Pacific/Nowhere"

	_, err := Run(context.Background(), opts)
	var tzErr *model.InvalidTimezoneError
	require.ErrorAs(t, err, &tzErr)

	assertNoOutputs(t, dir, opts)
}

func TestRunKeepsPreviousOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	opts := options(dir, writeInput(t, dir, "Label,1/6\n9AM - 12PM,Alice\n"))
	_, err := Run(context.Background(), opts)
	require.NoError(t, err)
	before, err := os.ReadFile(opts.CalendarFile)
	require.NoError(t, err)

	writeInput(t, dir, "Label,1/6\nnine - noon,Alice\n")
	_, err = Run(context.Background(), opts)
	require.Error(t, err)

	after, err := os.ReadFile(opts.CalendarFile)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunRequiresYearAndOutputs(t *testing.T) {
	dir := t.TempDir()
	opts := options(dir, writeInput(t, dir, "Label,1/6\n"))

	noYear := opts
	noYear.Year = 0
	_, err := Run(context.Background(), noYear)
	assert.Error(t, err)

	noOut := opts
	noOut.CalendarFile = ""
	_, err = Run(context.Background(), noOut)
	assert.Error(t, err)
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), options(dir, filepath.Join(dir, "absent.csv")))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func assertNoOutputs(t *testing.T, dir string, opts Options) {
	t.Helper()
	for _, p := range []string{opts.EventsFile, opts.CalendarFile} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "%s should not exist", p)
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}

func TestConvertWritesNothing(t *testing.T) {
	dir := t.TempDir()
	opts := options(dir, writeInput(t, dir, "Label,1/6\n9AM - 12PM,Alice\n12PM - 2PM,Alice\n"))

	res, err := Convert(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 1)
	assert.Equal(t, 5*time.Hour, res.Occurrences[0].End.Sub(res.Occurrences[0].Start))

	assertNoOutputs(t, dir, opts)
}
