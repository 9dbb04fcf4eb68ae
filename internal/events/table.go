package events

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"sheetcal/internal/model"
)

// Column names of the intermediate event table, in order.
const (
	ColSubject   = "Subject"
	ColStartDate = "Start date"
	ColStartTime = "Start time"
	ColEndDate   = "End date"
	ColEndTime   = "End time"
)

var tableHeader = []string{ColSubject, ColStartDate, ColStartTime, ColEndDate, ColEndTime}

// WriteTable writes evs as a delimited table with a header row.
func WriteTable(w io.Writer, evs []model.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tableHeader); err != nil {
		return err
	}
	for _, ev := range evs {
		rec := []string{ev.Subject, ev.StartDate, ev.StartTime, ev.EndDate, ev.EndTime}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable reads a table written by WriteTable. Columns are located by
// header name, so extra columns and a different order are accepted.
func ReadTable(r io.Reader) ([]model.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("events: empty table")
	}
	if err != nil {
		return nil, fmt.Errorf("events: read header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}
	idx := make([]int, len(tableHeader))
	for i, name := range tableHeader {
		p, ok := pos[name]
		if !ok {
			return nil, &model.ParseError{Input: strings.Join(header, ","), Row: 1, Reason: "missing column " + name}
		}
		idx[i] = p
	}

	var out []model.Event
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("events: read row %d: %w", row, err)
		}
		field := func(i int) string {
			if idx[i] < len(rec) {
				return rec[idx[i]]
			}
			return ""
		}
		out = append(out, model.Event{
			Subject:   field(0),
			StartDate: field(1),
			StartTime: field(2),
			EndDate:   field(3),
			EndTime:   field(4),
		})
	}
	return out, nil
}
