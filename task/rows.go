package task

import (
	"database/sql"
	"math"

	"github.com/angas/fmi-go/fmi"
	"github.com/angas/fmi-go/hours"
)

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// cells walks a table column by column within every row.
func cells(t fmi.Table, fn func(when hours.DateHour, column string, value sql.NullFloat64)) {
	for _, row := range t.Rows {
		when := hours.FromTime(row.Time)
		for i, col := range t.Columns {
			fn(when, col, nullFloat(row.Values[i]))
		}
	}
}
