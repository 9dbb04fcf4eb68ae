package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetcal/internal/grid"
	"sheetcal/internal/model"
)

func shift(startH, endH int) model.Shift {
	return model.Shift{Start: model.NewClock(startH, 0), End: model.NewClock(endH, 0)}
}

func TestBuilderCoalescesContiguousShifts(t *testing.T) {
	var b Builder
	b.AddShift("06/01/2024", "Alice", shift(9, 12))
	b.AddShift("06/01/2024", "Alice", shift(12, 15))

	s := b.Schedule()
	require.Len(t, s.Days, 1)
	require.Len(t, s.Days[0].Rosters, 1)
	assert.Equal(t, []model.Shift{shift(9, 15)}, s.Days[0].Rosters[0].Shifts)
}

func TestBuilderKeepsGapsAndOverlaps(t *testing.T) {
	cases := []struct {
		name string
		in   []model.Shift
		want []model.Shift
	}{
		{"gap", []model.Shift{shift(9, 11), shift(12, 14)}, []model.Shift{shift(9, 11), shift(12, 14)}},
		{"overlap", []model.Shift{shift(9, 12), shift(11, 14)}, []model.Shift{shift(9, 12), shift(11, 14)}},
		{"chain", []model.Shift{shift(6, 9), shift(9, 12), shift(12, 15)}, []model.Shift{shift(6, 15)}},
		{"only latest shift extends", []model.Shift{shift(9, 12), shift(13, 14), shift(12, 13)}, []model.Shift{shift(9, 12), shift(13, 14), shift(12, 13)}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var b Builder
			for _, sh := range c.in {
				b.AddShift("06/01/2024", "Alice", sh)
			}
			got := b.Schedule().Days[0].Rosters[0].Shifts
			assert.Equal(t, c.want, got)
		})
	}
}

func TestBuilderSeparatesDatesAndEmployees(t *testing.T) {
	var b Builder
	b.AddShift("06/02/2024", "Bob", shift(9, 12))
	b.AddShift("06/01/2024", "Alice", shift(9, 12))
	b.AddShift("06/02/2024", "Alice", shift(12, 15))
	b.AddShift("06/01/2024", "Alice", shift(12, 15))

	s := b.Schedule()
	require.Len(t, s.Days, 2)
	assert.Equal(t, "06/02/2024", s.Days[0].Date)
	assert.Equal(t, "06/01/2024", s.Days[1].Date)
	assert.Equal(t, []Roster{
		{Employee: "Bob", Shifts: []model.Shift{shift(9, 12)}},
		{Employee: "Alice", Shifts: []model.Shift{shift(12, 15)}},
	}, s.Days[0].Rosters)
	assert.Equal(t, []model.Shift{shift(9, 15)}, s.Days[1].Rosters[0].Shifts)
}

func TestBuilderSnapshotIsIndependent(t *testing.T) {
	var b Builder
	b.AddShift("06/01/2024", "Alice", shift(9, 12))
	snap := b.Schedule()
	b.AddShift("06/01/2024", "Alice", shift(12, 15))

	assert.Equal(t, []model.Shift{shift(9, 12)}, snap.Days[0].Rosters[0].Shifts)
}

func TestBuildEndToEnd(t *testing.T) {
	g := grid.Grid{
		Header: []string{"Label", "1/6", "2/6"},
		Labels: []string{"9AM - 12PM"},
		Rows:   [][]string{{"9AM - 12PM", "Alice", "Bob, Carol"}},
	}

	s, err := Build(g, 2024)
	require.NoError(t, err)

	want := Schedule{Days: []Day{
		{Date: "06/01/2024", Rosters: []Roster{
			{Employee: "Alice", Shifts: []model.Shift{shift(9, 12)}},
		}},
		{Date: "06/02/2024", Rosters: []Roster{
			{Employee: "Bob", Shifts: []model.Shift{shift(9, 12)}},
			{Employee: "Carol", Shifts: []model.Shift{shift(9, 12)}},
		}},
	}}
	assert.Equal(t, want, s)
	assert.Equal(t, 3, s.ShiftCount())
}

func TestBuildMultiNameCell(t *testing.T) {
	g := grid.Grid{
		Header: []string{"Label", "3/6"},
		Labels: []string{"9AM - 5PM"},
		Rows:   [][]string{{"9AM - 5PM", "Alice, Bob"}},
	}
	s, err := Build(g, 2024)
	require.NoError(t, err)

	require.Len(t, s.Days[0].Rosters, 2)
	for _, r := range s.Days[0].Rosters {
		require.Len(t, r.Shifts, 1)
		assert.Equal(t, "09:00 AM", r.Shifts[0].Start.String())
		assert.Equal(t, "05:00 PM", r.Shifts[0].End.String())
	}
}

func TestBuildMergesAcrossRows(t *testing.T) {
	g := grid.Grid{
		Header: []string{"Label", "1/6"},
		Labels: []string{"9AM - 12PM", "Lunch", "12PM - 3PM", "3PM - 6PM"},
		Rows: [][]string{
			{"9AM - 12PM", "Alice, Bob"},
			{"Lunch", "everyone"},
			{"12PM - 3PM", "Alice"},
			{"3PM - 6PM", "Alice, Bob"},
		},
	}
	s, err := Build(g, 2024)
	require.NoError(t, err)

	require.Len(t, s.Days, 1)
	assert.Equal(t, []Roster{
		{Employee: "Alice", Shifts: []model.Shift{shift(9, 18)}},
		{Employee: "Bob", Shifts: []model.Shift{shift(9, 12), shift(15, 18)}},
	}, s.Days[0].Rosters)
}

func TestBuildSkipsRowsWithoutSeparator(t *testing.T) {
	g := grid.Grid{
		Header: []string{"Label", "1/6"},
		Labels: []string{"Notes", "9AM-5PM"},
		Rows: [][]string{
			{"Notes", "Alice"},
			{"9AM-5PM", "Bob"},
		},
	}
	s, err := Build(g, 2024)
	require.NoError(t, err)
	assert.Empty(t, s.Days)
	assert.Zero(t, s.ShiftCount())
}

func TestBuildToleratesRaggedRows(t *testing.T) {
	g := grid.Grid{
		Header: []string{"Label", "1/6", "2/6", "3/6"},
		Labels: []string{"9AM - 12PM"},
		Rows:   [][]string{{"9AM - 12PM", "Alice"}},
	}
	s, err := Build(g, 2024)
	require.NoError(t, err)
	require.Len(t, s.Days, 1)
	assert.Equal(t, "06/01/2024", s.Days[0].Date)
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name   string
		g      grid.Grid
		input  string
		row    int
		column int
	}{
		{
			name:  "day out of range",
			g:     grid.Grid{Header: []string{"Label", "1/6", "32/6"}},
			input: "32/6", row: 1, column: 3,
		},
		{
			name: "bad time token",
			g: grid.Grid{
				Header: []string{"Label", "1/6"},
				Labels: []string{"9AM - 12PM", "noon - 3PM"},
				Rows:   [][]string{{"9AM - 12PM", "A"}, {"noon - 3PM", "B"}},
			},
			input: "noon", row: 3, column: 1,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Build(c.g, 2024)
			var pe *model.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, c.input, pe.Input)
			assert.Equal(t, c.row, pe.Row)
			assert.Equal(t, c.column, pe.Column)
		})
	}
}

func TestCoalesceIsIdempotent(t *testing.T) {
	g := grid.Grid{
		Header: []string{"Label", "1/6", "2/6"},
		Labels: []string{"6AM - 9AM", "9AM - 12PM", "10AM - 1PM", "12PM - 3PM"},
		Rows: [][]string{
			{"6AM - 9AM", "Alice", "Bob"},
			{"9AM - 12PM", "Alice", ""},
			{"10AM - 1PM", "Alice, Carol", "Bob"},
			{"12PM - 3PM", "Carol", "Bob"},
		},
	}
	s, err := Build(g, 2024)
	require.NoError(t, err)

	once := Coalesce(s)
	assert.Equal(t, s, once)
	assert.Equal(t, once, Coalesce(once))
}

func TestScheduleString(t *testing.T) {
	var b Builder
	b.AddShift("06/01/2024", "Alice", shift(9, 12))
	b.AddShift("06/01/2024", "Alice", shift(13, 15))

	want := "Date: 06/01/2024\n" +
		"  Employee: Alice, Shifts: 09:00 AM to 12:00 PM, 01:00 PM to 03:00 PM\n\n"
	assert.Equal(t, want, b.Schedule().String())
}
