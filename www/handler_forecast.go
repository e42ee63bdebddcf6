package www

import (
	"log/slog"
	"net/http"

	"github.com/angas/fmi-go/database"
	"github.com/angas/fmi-go/fmi"
	"github.com/angas/fmi-go/hours"
	"github.com/angas/fmi-go/slice"
)

func forecastCell(f database.ForecastRow) cell {
	return cell{When: f.When, Parameter: f.Parameter, Value: f.Value}
}

func NewForecastHandler(logger *slog.Logger, stations []string, model fmi.Model, db *database.Database, tm *TemplateManager, task func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			station, ok := selectedStation(r, stations)
			if !ok {
				http.Error(w, "Unknown station", http.StatusNotFound)
				return
			}
			m := stringOrDefault(r.URL, "model", string(model))

			fc, err := db.GetForecastFrom(r.Context(), station, m, hours.FromNow())
			if err != nil {
				logger.Error("handling forecast get request", slog.Any("error", err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			g := toGrid(slice.Map(fc, forecastCell))
			g.Station = station
			g.Stations = stations
			g.Model = m

			w.Header().Set("Content-Type", "text/html")
			if err := tm.ExecuteToWriter("forecast.html", g, w); err != nil {
				logger.Error("handling forecast get request", slog.Any("error", err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

		case http.MethodPost:
			go task()
			w.WriteHeader(http.StatusAccepted)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
