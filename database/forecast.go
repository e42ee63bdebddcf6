package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/angas/fmi-go/hours"
)

type ForecastRow struct {
	Station   string
	Model     string
	Parameter string
	When      hours.DateHour
	Value     sql.NullFloat64
}

func (d *Database) SaveForecast(ctx context.Context, rows []ForecastRow) error {
	if len(rows) == 0 {
		return nil
	}
	d.logger.Debug("saving forecast", "rows", len(rows), "station", rows[0].Station, "model", rows[0].Model)

	tx, err := d.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving forecast, begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO forecast (station, model, parameter, date, hour, value)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(station, model, parameter, date, hour) DO UPDATE SET
			value = excluded.value`)
	if err != nil {
		return fmt.Errorf("saving forecast, prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.Station,
			row.Model,
			row.Parameter,
			row.When.Date,
			row.When.Hour,
			roundNull(row.Value))
		if err != nil {
			return fmt.Errorf("saving forecast %s %s %s: %w", row.Station, row.Parameter, row.When, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving forecast, commit: %w", err)
	}
	return nil
}

// GetForecastHour returns all parameters forecasted for the hour,
// sql.ErrNoRows if there are none.
func (d *Database) GetForecastHour(ctx context.Context, station, model string, dh hours.DateHour) ([]ForecastRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT station, model, parameter, date, hour, value
		FROM forecast
		WHERE station = ? AND model = ? AND date = ? AND hour = ?
		ORDER BY parameter ASC`,
		station, model, dh.Date, dh.Hour)
	if err != nil {
		return nil, fmt.Errorf("fetching forecast for %s at %s: %w", station, dh, err)
	}
	defer rows.Close()

	fc, err := scanForecast(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning forecast row: %w", err)
	}
	if len(fc) == 0 {
		return nil, sql.ErrNoRows
	}
	return fc, nil
}

func (d *Database) GetForecastFrom(ctx context.Context, station, model string, dh hours.DateHour) ([]ForecastRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT station, model, parameter, date, hour, value
		FROM forecast
		WHERE station = ? AND model = ? AND ((date = ? AND hour >= ?) OR date > ?)
		ORDER BY date, hour, parameter ASC`,
		station, model, dh.Date, dh.Hour, dh.Date)
	if err != nil {
		return nil, fmt.Errorf("fetching forecast for %s from %s: %w", station, dh, err)
	}
	defer rows.Close()

	fc, err := scanForecast(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning forecast row: %w", err)
	}
	return fc, nil
}

func (d *Database) PurgeForecast(ctx context.Context, retentionDays int) error {
	return d.purgeTable(ctx, "forecast", retentionDays)
}

func scanForecast(rows *sql.Rows) ([]ForecastRow, error) {
	var fc []ForecastRow
	for rows.Next() {
		var f ForecastRow
		err := rows.Scan(
			&f.Station,
			&f.Model,
			&f.Parameter,
			&f.When.Date,
			&f.When.Hour,
			&f.Value)
		if err != nil {
			return nil, err
		}
		fc = append(fc, f)
	}
	return fc, rows.Err()
}
