package fmi

import (
	"bytes"
	"math"
	"testing"
	"time"
)

func hourRow(h int, values ...float64) Row {
	return Row{Time: time.Date(2022, 9, 1, h, 0, 0, 0, time.UTC), Values: values}
}

func TestTableAppend(t *testing.T) {
	a := Table{Columns: []string{"temperature"}, Rows: []Row{hourRow(0, 1), hourRow(1, 2)}}
	b := Table{Columns: []string{"temperature"}, Rows: []Row{hourRow(1, 20), hourRow(2, 3)}}

	res, err := a.Append(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", res.Len())
	}
	if v := res.Column("temperature"); v[1] != 2 || v[2] != 3 {
		t.Errorf("expected overlapping hour to keep first value, got %v", v)
	}

	if _, err := a.Append(Table{Columns: []string{"humidity"}}); err == nil {
		t.Errorf("expected an error when columns differ")
	}

	empty, err := Table{}.Append(b)
	if err != nil || empty.Len() != 2 {
		t.Errorf("expected appending to an empty table to return the other, got %v, %v", empty, err)
	}
}

func TestTableColumnUnknown(t *testing.T) {
	tb := Table{Columns: []string{"temperature"}, Rows: []Row{hourRow(0, 1)}}
	if tb.Column("humidity") != nil {
		t.Errorf("expected nil for an unknown column")
	}
}

func TestTableWriteCSV(t *testing.T) {
	tb := Table{
		Columns: []string{"temperature", "humidity"},
		Rows:    []Row{hourRow(0, 14.2, 81), hourRow(1, math.NaN(), 84.5)},
	}

	var buf bytes.Buffer
	if err := tb.WriteCSV(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "date,temperature,humidity\n" +
		"2022-09-01T00:00:00Z,14.2,81\n" +
		"2022-09-01T01:00:00Z,NaN,84.5\n"
	if buf.String() != expected {
		t.Errorf("expected\n%s\ngot\n%s", expected, buf.String())
	}
}
