package www

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/angas/fmi-go/fmi"
	"github.com/angas/fmi-go/types"
)

type apiRow struct {
	Time   time.Time  `json:"time"`
	Values []*float64 `json:"values"`
}

type apiTable struct {
	Columns []string `json:"columns"`
	Rows    []apiRow `json:"rows"`
}

// NaN has no JSON representation, it is sent as null.
func toApiTable(t fmi.Table) apiTable {
	res := apiTable{Columns: t.Columns, Rows: make([]apiRow, len(t.Rows))}
	for i, row := range t.Rows {
		values := make([]*float64, len(row.Values))
		for j, v := range row.Values {
			v := v
			if !math.IsNaN(v) {
				values[j] = &v
			}
		}
		res.Rows[i] = apiRow{Time: row.Time.UTC(), Values: values}
	}
	return res
}

func locationParam(r *http.Request) fmi.Location {
	return fmi.Location{
		Place:  r.URL.Query().Get("place"),
		Fmisid: r.URL.Query().Get("fmisid"),
	}
}

func NewApiObservationsHandler(logger *slog.Logger, provider types.ObservationProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		t, err := provider.GetObservations(r.Context(), fmi.ObservationQuery{
			Location:   locationParam(r),
			Parameters: listParam(r.URL, "parameter"),
			Hours:      intOrDefault(r.URL, "hours", 0),
			StartDate:  r.URL.Query().Get("start"),
			EndDate:    r.URL.Query().Get("end"),
		})
		writeApiResponse(logger, w, t, err)
	}
}

func NewApiForecastHandler(logger *slog.Logger, provider types.ForecastProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		t, err := provider.GetForecast(r.Context(), fmi.ForecastQuery{
			Location:   locationParam(r),
			Parameters: listParam(r.URL, "parameter"),
			Model:      fmi.Model(r.URL.Query().Get("model")),
			Hours:      intOrDefault(r.URL, "hours", 0),
		})
		writeApiResponse(logger, w, t, err)
	}
}

func writeApiResponse(logger *slog.Logger, w http.ResponseWriter, t fmi.Table, err error) {
	if err != nil {
		status := apiErrorStatus(err)
		if status >= http.StatusInternalServerError {
			logger.Error("handling api request", slog.Any("error", err))
		} else {
			logger.Debug("rejected api request", slog.Any("error", err))
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toApiTable(t)); err != nil {
		logger.Error("handling api request", slog.Any("error", err))
		http.Error(w, "unable to encode table", http.StatusInternalServerError)
	}
}

func apiErrorStatus(err error) int {
	var serviceErr *fmi.ServiceError
	switch {
	case errors.Is(err, fmi.ErrMissingParameter),
		errors.Is(err, fmi.ErrMissingLocation),
		errors.Is(err, fmi.ErrUnknownParameter),
		errors.Is(err, fmi.ErrUnknownModel),
		errors.Is(err, fmi.ErrNoTimeWindow),
		errors.Is(err, fmi.ErrOverdeterminedWindow),
		errors.Is(err, fmi.ErrInvalidDate),
		errors.Is(err, fmi.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.As(err, &serviceErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
