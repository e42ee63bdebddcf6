package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/angas/fmi-go/convert"
	"github.com/angas/fmi-go/hours"
)

type ObservationRow struct {
	Station   string
	Parameter string
	When      hours.DateHour
	Value     sql.NullFloat64
}

func (d *Database) SaveObservations(ctx context.Context, rows []ObservationRow) error {
	if len(rows) == 0 {
		return nil
	}
	d.logger.Debug("saving observations", "rows", len(rows), "station", rows[0].Station)

	tx, err := d.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving observations, begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observation (station, parameter, date, hour, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(station, parameter, date, hour) DO UPDATE SET
			value = excluded.value`)
	if err != nil {
		return fmt.Errorf("saving observations, prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.Station,
			row.Parameter,
			row.When.Date,
			row.When.Hour,
			roundNull(row.Value))
		if err != nil {
			return fmt.Errorf("saving observation %s %s %s: %w", row.Station, row.Parameter, row.When, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving observations, commit: %w", err)
	}
	return nil
}

func (d *Database) GetObservationsFrom(ctx context.Context, station string, dh hours.DateHour) ([]ObservationRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT station, parameter, date, hour, value
		FROM observation
		WHERE station = ? AND ((date = ? AND hour >= ?) OR date > ?)
		ORDER BY date, hour, parameter ASC`,
		station, dh.Date, dh.Hour, dh.Date)
	if err != nil {
		return nil, fmt.Errorf("fetching observations for %s from %s: %w", station, dh, err)
	}
	defer rows.Close()

	obs, err := scanObservations(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning observation row: %w", err)
	}
	return obs, nil
}

// GetLatestObservations returns the most recent non null value of every
// parameter stored for the station.
func (d *Database) GetLatestObservations(ctx context.Context, station string) ([]ObservationRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT o.station, o.parameter, o.date, o.hour, o.value
		FROM observation o
			JOIN (
				SELECT parameter, MAX(date || ' ' || printf('%02d', hour)) AS dh
				FROM observation
				WHERE station = ? AND value IS NOT NULL
				GROUP BY parameter
			) latest ON latest.parameter = o.parameter
				AND latest.dh = o.date || ' ' || printf('%02d', o.hour)
		WHERE o.station = ?
		ORDER BY o.parameter ASC`,
		station, station)
	if err != nil {
		return nil, fmt.Errorf("fetching latest observations for %s: %w", station, err)
	}
	defer rows.Close()

	obs, err := scanObservations(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning observation row: %w", err)
	}
	return obs, nil
}

// GetLatestObservationHour returns the last hour stored for the station, or a
// zero DateHour if there is none.
func (d *Database) GetLatestObservationHour(ctx context.Context, station string) (hours.DateHour, error) {
	var dh hours.DateHour
	err := d.read.QueryRowContext(ctx, `
		SELECT date, hour
		FROM observation
		WHERE station = ?
		ORDER BY date DESC, hour DESC
		LIMIT 1`,
		station).Scan(&dh.Date, &dh.Hour)
	if errors.Is(err, sql.ErrNoRows) {
		return hours.DateHour{}, nil
	}
	if err != nil {
		return hours.DateHour{}, fmt.Errorf("fetching latest observation hour for %s: %w", station, err)
	}
	return dh, nil
}

func (d *Database) GetStations(ctx context.Context) ([]string, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT station FROM observation
		UNION
		SELECT station FROM forecast
		ORDER BY station`)
	if err != nil {
		return nil, fmt.Errorf("fetching stations: %w", err)
	}
	defer rows.Close()

	var stations []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning station: %w", err)
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

func (d *Database) PurgeObservations(ctx context.Context, retentionDays int) error {
	return d.purgeTable(ctx, "observation", retentionDays)
}

func scanObservations(rows *sql.Rows) ([]ObservationRow, error) {
	var obs []ObservationRow
	for rows.Next() {
		var o ObservationRow
		err := rows.Scan(
			&o.Station,
			&o.Parameter,
			&o.When.Date,
			&o.When.Hour,
			&o.Value)
		if err != nil {
			return nil, err
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

func roundNull(v sql.NullFloat64) sql.NullFloat64 {
	if !v.Valid {
		return v
	}
	return sql.NullFloat64{Float64: convert.TwoDecimals(v.Float64), Valid: true}
}
