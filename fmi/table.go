package fmi

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Row struct {
	Time   time.Time
	Values []float64
}

// Table is a time indexed table with one column per requested parameter. Rows
// are in strictly increasing time order, missing values are NaN.
type Table struct {
	Columns []string
	Rows    []Row
}

func (t Table) Len() int {
	return len(t.Rows)
}

func (t Table) Times() []time.Time {
	times := make([]time.Time, len(t.Rows))
	for i, r := range t.Rows {
		times[i] = r.Time
	}
	return times
}

// Column returns the values of the named column, or nil if there is no such column.
func (t Table) Column(name string) []float64 {
	idx := slices.Index(t.Columns, name)
	if idx < 0 {
		return nil
	}
	values := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		values[i] = r.Values[idx]
	}
	return values
}

// Append adds rows of a table with the same columns that are later than the
// last row of t.
func (t Table) Append(other Table) (Table, error) {
	if len(t.Columns) == 0 {
		return other, nil
	}
	if !slices.Equal(t.Columns, other.Columns) {
		return t, fmt.Errorf("appending table with columns %v to %v", other.Columns, t.Columns)
	}
	for _, r := range other.Rows {
		if n := len(t.Rows); n > 0 && !r.Time.After(t.Rows[n-1].Time) {
			continue
		}
		t.Rows = append(t.Rows, r)
	}
	return t, nil
}

func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"date"}, t.Columns...)); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	record := make([]string, len(t.Columns)+1)
	for _, r := range t.Rows {
		record[0] = r.Time.UTC().Format(time.RFC3339)
		for i, v := range r.Values {
			record[i+1] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// toTable pivots the flat list of (time, parameter, value) elements into rows.
// columns are the requested names, codes maps each column to the FMI code it
// reads from. Elements outside w are dropped.
func toTable(fc *featureCollection, columns []string, codes map[string]string, w Window) (Table, error) {
	colsByCode := make(map[string][]int)
	for i, c := range columns {
		code := codes[c]
		colsByCode[code] = append(colsByCode[code], i)
	}

	rowsByTime := make(map[time.Time]*Row)
	for _, m := range fc.Members {
		el := m.Element
		cols, ok := colsByCode[el.Name]
		if !ok {
			continue
		}

		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(el.Time))
		if err != nil {
			return Table{}, fmt.Errorf("parsing time %q of %s: %w", el.Time, el.Name, err)
		}
		ts = ts.UTC()
		if !w.Contains(ts) {
			continue
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(el.Value), 64)
		if err != nil {
			return Table{}, fmt.Errorf("parsing value %q of %s at %s: %w", el.Value, el.Name, el.Time, err)
		}

		row, ok := rowsByTime[ts]
		if !ok {
			row = &Row{Time: ts, Values: make([]float64, len(columns))}
			for i := range row.Values {
				row.Values[i] = math.NaN()
			}
			rowsByTime[ts] = row
		}
		for _, i := range cols {
			row.Values[i] = value
		}
	}

	t := Table{Columns: columns, Rows: make([]Row, 0, len(rowsByTime))}
	for _, r := range rowsByTime {
		t.Rows = append(t.Rows, *r)
	}
	slices.SortFunc(t.Rows, func(a, b Row) int { return a.Time.Compare(b.Time) })

	return t, nil
}
