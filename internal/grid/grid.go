// Package grid reads the weekly schedule table and normalizes its cells.
//
// The table is a comma-separated file whose first record is the header
// (a label cell followed by one date token per column) and whose following
// records each start with a time-range label:
//
//	Shift,1/6,2/6
//	9AM - 12PM,Alice,"Bob, Carol"
package grid

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	appLog "sheetcal/internal/log"
)

// Grid is the schedule table split into its header, row labels and body.
//
// Rows[i] is the whole data record including its label at index 0, so body
// column j+1 lines up with Header[j+1]. len(Rows) == len(Labels).
type Grid struct {
	Header []string
	Labels []string
	Rows   [][]string
}

// Read parses a delimited schedule table. Ragged records are accepted.
// A leading byte-order mark (as written by spreadsheet exports) is removed.
func Read(r io.Reader) (Grid, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return Grid{}, fmt.Errorf("grid: empty table")
	}
	if err != nil {
		return Grid{}, fmt.Errorf("grid: read header: %w", err)
	}

	g := Grid{Header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Grid{}, fmt.Errorf("grid: read row %d: %w", len(g.Rows)+2, err)
		}
		label := ""
		if len(rec) > 0 {
			label = rec[0]
		}
		g.Labels = append(g.Labels, label)
		g.Rows = append(g.Rows, rec)
	}

	appLog.Debug("grid read", "columns", len(g.Header), "rows", len(g.Rows))
	return g, nil
}

// Normalize trims every cell, drops rows whose label is blank and pads short
// rows to the header width with empty cells. Blank-label rows are dropped
// from Labels and Rows together so positions stay paired.
func Normalize(g Grid) Grid {
	out := Grid{
		Header: make([]string, len(g.Header)),
		Labels: make([]string, 0, len(g.Labels)),
		Rows:   make([][]string, 0, len(g.Rows)),
	}
	for i, h := range g.Header {
		out.Header[i] = clean(h)
	}

	dropped := 0
	for i, label := range g.Labels {
		label = clean(label)
		if label == "" {
			dropped++
			continue
		}

		var src []string
		if i < len(g.Rows) {
			src = g.Rows[i]
		}
		// At least one cell so the label always has a slot.
		row := make([]string, max(len(src), len(out.Header), 1))
		for j, cell := range src {
			row[j] = clean(cell)
		}
		row[0] = label

		out.Labels = append(out.Labels, label)
		out.Rows = append(out.Rows, row)
	}

	if dropped > 0 {
		appLog.Debug("grid dropped blank rows", "count", dropped)
	}
	return out
}

// clean trims surrounding whitespace and puts text in NFC so names typed
// with combining accents compare equal to precomposed ones.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
