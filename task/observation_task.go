package task

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/angas/fmi-go/config"
	"github.com/angas/fmi-go/database"
	"github.com/angas/fmi-go/fmi"
	"github.com/angas/fmi-go/hours"
	"github.com/angas/fmi-go/types"
)

func NewObservationTask(
	logger *slog.Logger,
	db *database.Database,
	provider types.ObservationProvider,
	publisher types.Publisher,
	stations []config.AppConfigStation,
	cnfg config.AppConfigObservations) func() {

	return func() {
		logger.Debug("running observation task...")

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		total := 0
		for _, station := range stations {
			n, err := updateObservations(ctx, logger, db, provider, publisher, station, cnfg)
			if err != nil {
				logger.Error("observation task error", slog.String("station", station.Key()), slog.Any("error", err))
				continue
			}
			total += n
		}

		logger.Info("observation task done", slog.Int("noOfHoursUpdated", total))
	}
}

// updateObservations loads everything newer than the last stored hour of the
// station, the last hour included since its values may have been incomplete.
func updateObservations(
	ctx context.Context,
	logger *slog.Logger,
	db *database.Database,
	provider types.ObservationProvider,
	publisher types.Publisher,
	station config.AppConfigStation,
	cnfg config.AppConfigObservations) (int, error) {

	latest, err := db.GetLatestObservationHour(ctx, station.Key())
	if err != nil {
		return 0, err
	}

	hoursBack := cnfg.GetHours()
	if !latest.IsZero() {
		hoursBack = max(latest.HoursUntil(hours.FromNow())+1, 1)
	}
	logger.Debug("fetching observations", slog.String("station", station.Key()), slog.Int("hours", hoursBack))

	t, err := provider.GetObservations(ctx, fmi.ObservationQuery{
		Location:   station.Location(),
		Parameters: cnfg.Parameters,
		Hours:      hoursBack,
	})
	if err != nil {
		return 0, fmt.Errorf("fetching observations: %w", err)
	}

	var rows []database.ObservationRow
	cells(t, func(when hours.DateHour, column string, value sql.NullFloat64) {
		rows = append(rows, database.ObservationRow{
			Station:   station.Key(),
			Parameter: column,
			When:      when,
			Value:     value,
		})
	})
	if err := db.SaveObservations(ctx, rows); err != nil {
		return 0, err
	}

	if err := publisher.PublishObservations(station.Key(), t); err != nil {
		logger.Warn("publishing observations failed", slog.String("station", station.Key()), slog.Any("error", err))
	}

	return t.Len(), nil
}
