package www

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/angas/fmi-go/convert"
	"github.com/angas/fmi-go/database"
	"github.com/angas/fmi-go/fmi"
	"github.com/angas/fmi-go/hours"
	"github.com/angas/fmi-go/slice"
	"github.com/angas/fmi-go/www/chartjs"
)

func hourlyData(cells []cell, parameter string, from hours.DateHour) []*float64 {
	data := make([]*float64, chartjs.NoOfHours)
	for i := 0; i < chartjs.NoOfHours; i++ {
		dh := from.Add(i)
		c, found := slice.Find(cells, func(c cell) bool { return c.When == dh && c.Parameter == parameter })
		if found && c.Value.Valid {
			v := convert.RoundFloat64(c.Value.Float64, 1)
			data[i] = &v
		}
	}
	return data
}

// NewChartHandler serves two charts for a station, the last 24 hours of
// observations and the next 24 hours of forecast.
func NewChartHandler(logger *slog.Logger, stations []string, model fmi.Model, db *database.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		station, ok := selectedStation(r, stations)
		if !ok {
			http.Error(w, "Unknown station", http.StatusNotFound)
			return
		}
		left := stringOrDefault(r.URL, "left", "temperature")
		right := stringOrDefault(r.URL, "right", "wind_speed")

		now := hours.FromNow()
		since := now.Sub(chartjs.NoOfHours - 1)

		obs, err := db.GetObservationsFrom(r.Context(), station, since)
		if err != nil {
			logger.Error("handling chart request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		obsCells := slice.Map(obs, observationCell)

		chart1 := chartjs.NewChart("Observations", since.Time(), hours.GuiLocation(), left, right)
		chart1.Data.Datasets[0].Data = hourlyData(obsCells, left, since)
		chart1.Data.Datasets[1].Data = hourlyData(obsCells, right, since)

		fc, err := db.GetForecastFrom(r.Context(), station, string(model), now)
		if err != nil {
			logger.Error("handling chart request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fcCells := slice.Map(fc, forecastCell)

		chart2 := chartjs.NewChart("Forecast", now.Time(), hours.GuiLocation(), left, right)
		chart2.Data.Datasets[0].Data = hourlyData(fcCells, left, now)
		chart2.Data.Datasets[1].Data = hourlyData(fcCells, right, now)

		w.Header().Set("Content-Type", "application/json")
		err = json.NewEncoder(w).Encode([]chartjs.Chart{chart1, chart2})
		if err != nil {
			logger.Error("handling chart request", slog.Any("error", err))
			http.Error(w, "unable to encode data points", http.StatusInternalServerError)
			return
		}
	}
}
