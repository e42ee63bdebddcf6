package task

import (
	"context"
	"log/slog"

	"github.com/angas/fmi-go/config"
	"github.com/angas/fmi-go/database"
	"github.com/angas/fmi-go/types"
	"github.com/robfig/cron/v3"
)

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	ObservationTask func()
	ForecastTask    func()
	MaintenanceTask func()
}

func NewTasks(
	db *database.Database,
	observations types.ObservationProvider,
	forecasts types.ForecastProvider,
	publisher types.Publisher,
	cnfg *config.AppConfig,
) *Tasks {
	logger := slog.Default().With("module", "tasks")
	return &Tasks{
		cron:            cron.New(),
		cnfg:            cnfg,
		ObservationTask: NewObservationTask(logger.With(slog.String("task", "observation")), db, observations, publisher, cnfg.Stations, cnfg.Observations),
		ForecastTask:    NewForecastTask(logger.With(slog.String("task", "forecast")), db, forecasts, publisher, cnfg.Stations, cnfg.Forecast),
		MaintenanceTask: NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), db, cnfg),
	}
}

func (t *Tasks) Run() {
	_, err := t.cron.AddFunc(t.cnfg.Observations.RunAt, t.ObservationTask)
	if err != nil {
		panic(err)
	}
	_, err = t.cron.AddFunc(t.cnfg.Forecast.RunAt, t.ForecastTask)
	if err != nil {
		panic(err)
	}
	_, err = t.cron.AddFunc("30 2 * * *", t.MaintenanceTask)
	if err != nil {
		panic(err)
	}
	t.cron.Start()
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}
