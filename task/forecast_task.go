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

func NewForecastTask(
	logger *slog.Logger,
	db *database.Database,
	provider types.ForecastProvider,
	publisher types.Publisher,
	stations []config.AppConfigStation,
	cnfg config.AppConfigForecast) func() {

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if needImmediateForecastUpdate(ctx, db, stations, cnfg.GetModel()) {
		logger.Info("need an immediate update of forecast")
		runForecastTask(logger, db, provider, publisher, stations, cnfg)
	} else {
		logger.Debug("no need for immediate update of forecast")
	}

	return func() {
		runForecastTask(logger, db, provider, publisher, stations, cnfg)
	}
}

func runForecastTask(
	logger *slog.Logger,
	db *database.Database,
	provider types.ForecastProvider,
	publisher types.Publisher,
	stations []config.AppConfigStation,
	cnfg config.AppConfigForecast) {

	logger.Debug("running forecast task...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	model := cnfg.GetModel()
	total := 0
	for _, station := range stations {
		t, err := provider.GetForecast(ctx, fmi.ForecastQuery{
			Location:   station.Location(),
			Parameters: cnfg.Parameters,
			Model:      model,
			Hours:      cnfg.GetHours(),
		})
		if err != nil {
			logger.Error("forecast task error", slog.String("station", station.Key()), slog.Any("error", fmt.Errorf("fetching forecast: %w", err)))
			continue
		}

		var rows []database.ForecastRow
		cells(t, func(when hours.DateHour, column string, value sql.NullFloat64) {
			rows = append(rows, database.ForecastRow{
				Station:   station.Key(),
				Model:     string(model),
				Parameter: column,
				When:      when,
				Value:     value,
			})
		})
		if err := db.SaveForecast(ctx, rows); err != nil {
			logger.Error("forecast task error", slog.String("station", station.Key()), slog.Any("error", err))
			continue
		}

		if err := publisher.PublishForecast(station.Key(), model, t); err != nil {
			logger.Warn("publishing forecast failed", slog.String("station", station.Key()), slog.Any("error", err))
		}
		total += t.Len()
	}

	logger.Info("forecast task done", slog.Int("noOfHoursUpdated", total))
}

func needImmediateForecastUpdate(ctx context.Context, db *database.Database, stations []config.AppConfigStation, model fmi.Model) bool {
	dh := hours.FromNow().Add(12)
	for _, station := range stations {
		if _, err := db.GetForecastHour(ctx, station.Key(), string(model), dh); err != nil {
			return true
		}
	}
	return false
}
