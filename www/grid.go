package www

import (
	"database/sql"
	"slices"

	"github.com/angas/fmi-go/hours"
)

// A cell is one stored value, whatever table it came from.
type cell struct {
	When      hours.DateHour
	Parameter string
	Value     sql.NullFloat64
}

type gridRow struct {
	When   hours.DateHour
	Values []sql.NullFloat64
}

// grid lays out values with one row per hour and one column per parameter.
type grid struct {
	Station  string
	Stations []string
	Model    string
	Columns  []string
	Rows     []gridRow
}

// Value returns the value of the named column in row i.
func (g grid) Value(i int, column string) sql.NullFloat64 {
	c := slices.Index(g.Columns, column)
	if c < 0 || i < 0 || i >= len(g.Rows) {
		return sql.NullFloat64{}
	}
	return g.Rows[i].Values[c]
}

// toGrid expects cells ordered by hour.
func toGrid(cells []cell) grid {
	var g grid
	for _, c := range cells {
		if !slices.Contains(g.Columns, c.Parameter) {
			g.Columns = append(g.Columns, c.Parameter)
		}
	}
	slices.Sort(g.Columns)

	for _, c := range cells {
		if len(g.Rows) == 0 || g.Rows[len(g.Rows)-1].When != c.When {
			g.Rows = append(g.Rows, gridRow{When: c.When, Values: make([]sql.NullFloat64, len(g.Columns))})
		}
		row := &g.Rows[len(g.Rows)-1]
		row.Values[slices.Index(g.Columns, c.Parameter)] = c.Value
	}
	return g
}
