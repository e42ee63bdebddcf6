package www

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/angas/fmi-go/database"
	"github.com/angas/fmi-go/hours"
	"github.com/angas/fmi-go/slice"
)

func observationCell(o database.ObservationRow) cell {
	return cell{When: o.When, Parameter: o.Parameter, Value: o.Value}
}

func NewObservationsHandler(logger *slog.Logger, stations []string, db *database.Database, tm *TemplateManager, task func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			station, ok := selectedStation(r, stations)
			if !ok {
				http.Error(w, "Unknown station", http.StatusNotFound)
				return
			}
			from := hours.FromNow().Sub(intOrDefault(r.URL, "hours", 24))

			obs, err := db.GetObservationsFrom(r.Context(), station, from)
			if err != nil {
				logger.Error("handling observations get request", slog.Any("error", err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if params := listParam(r.URL, "parameter"); len(params) > 0 {
				obs = slice.Filter(obs, func(o database.ObservationRow) bool {
					return slices.Contains(params, o.Parameter)
				})
			}

			g := toGrid(slice.Map(obs, observationCell))
			g.Station = station
			g.Stations = stations

			w.Header().Set("Content-Type", "text/html")
			if err := tm.ExecuteToWriter("observations.html", g, w); err != nil {
				logger.Error("handling observations get request", slog.Any("error", err))
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

func selectedStation(r *http.Request, stations []string) (string, bool) {
	if len(stations) == 0 {
		return "", false
	}
	station := stringOrDefault(r.URL, "station", stations[0])
	return station, slices.Contains(stations, station)
}
