// Package pipeline runs one schedule-to-calendar conversion.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"sheetcal/internal/events"
	"sheetcal/internal/grid"
	"sheetcal/internal/ics"
	appLog "sheetcal/internal/log"
	"sheetcal/internal/model"
	"sheetcal/internal/schedule"
	"sheetcal/internal/source"
)

// Options describes a single conversion run.
type Options struct {
	// Input is a local path or an http(s) URL of the schedule table.
	Input string
	// TimeZone is the IANA zone every shift is localized to.
	TimeZone string
	// Year resolves the header's day/month tokens. Required.
	Year int

	EventsFile   string
	CalendarFile string

	CalendarName string
	ProductID    string

	// Fetcher downloads remote inputs; nil uses an uncached default.
	Fetcher *source.Fetcher

	// Now stamps the calendar; zero means time.Now().
	Now time.Time
}

// Result is everything a run produced, for callers that want to display it.
type Result struct {
	Schedule    schedule.Schedule
	Events      []model.Event
	Occurrences []model.Occurrence
}

// Run converts opts.Input into the intermediate event table and the
// calendar file. Nothing is written unless the whole table parses, and
// each output is replaced atomically.
func Run(ctx context.Context, opts Options) (Result, error) {
	var res Result

	if opts.Year <= 0 {
		return res, errors.New("pipeline: year is required")
	}
	if opts.EventsFile == "" || opts.CalendarFile == "" {
		return res, errors.New("pipeline: output paths are required")
	}

	loc, err := events.LoadLocation(opts.TimeZone)
	if err != nil {
		return res, err
	}

	g, err := readGrid(ctx, opts.Input, opts.Fetcher)
	if err != nil {
		return res, err
	}

	s, err := schedule.Build(grid.Normalize(g), opts.Year)
	if err != nil {
		return res, err
	}
	res.Schedule = s
	res.Events = events.Flatten(s)

	err = writeFileAtomic(opts.EventsFile, func(w io.Writer) error {
		return events.WriteTable(w, res.Events)
	})
	if err != nil {
		return res, fmt.Errorf("write events table: %w", err)
	}
	appLog.Info("events table written", "path", opts.EventsFile, "event_count", len(res.Events))

	// The calendar is built from the table as written to disk.
	recs, err := readEvents(opts.EventsFile)
	if err != nil {
		return res, err
	}

	res.Occurrences, err = events.LocalizeIn(recs, loc)
	if err != nil {
		return res, err
	}

	cfg := ics.WriterConfig{
		ProductID:    opts.ProductID,
		CalendarName: opts.CalendarName,
		TimeZone:     loc.String(),
		Stamp:        opts.Now,
	}
	err = writeFileAtomic(opts.CalendarFile, func(w io.Writer) error {
		return ics.Write(w, res.Occurrences, cfg)
	})
	if err != nil {
		return res, fmt.Errorf("write calendar: %w", err)
	}
	appLog.Info("calendar written", "path", opts.CalendarFile, "event_count", len(res.Occurrences))

	return res, nil
}

// Convert parses opts.Input and localizes its shifts without writing any
// file. Output paths in opts are ignored.
func Convert(ctx context.Context, opts Options) (Result, error) {
	var res Result

	if opts.Year <= 0 {
		return res, errors.New("pipeline: year is required")
	}
	loc, err := events.LoadLocation(opts.TimeZone)
	if err != nil {
		return res, err
	}

	g, err := readGrid(ctx, opts.Input, opts.Fetcher)
	if err != nil {
		return res, err
	}
	s, err := schedule.Build(grid.Normalize(g), opts.Year)
	if err != nil {
		return res, err
	}
	res.Schedule = s
	res.Events = events.Flatten(s)
	res.Occurrences, err = events.LocalizeIn(res.Events, loc)
	if err != nil {
		return res, err
	}
	return res, nil
}

func readGrid(ctx context.Context, input string, f *source.Fetcher) (grid.Grid, error) {
	rc, err := source.Open(ctx, input, f)
	if err != nil {
		return grid.Grid{}, err
	}
	defer rc.Close()

	return grid.Read(rc)
}

func readEvents(path string) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events table: %w", err)
	}
	defer f.Close()

	return events.ReadTable(f)
}

// writeFileAtomic writes through a temp file in the target directory and
// renames it over path once fill succeeds.
func writeFileAtomic(path string, fill func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
