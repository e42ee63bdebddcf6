package www

import (
	"context"
	"log/slog"

	"github.com/angas/fmi-go/database"
	"github.com/angas/fmi-go/hours"
	"github.com/angas/fmi-go/types/maybe"
)

type LatestValue struct {
	Parameter string
	When      hours.DateHour
	Value     maybe.Maybe[float64]
}

type StationLatest struct {
	Station string
	Values  []LatestValue
	// Age of the newest value in hours
	Age maybe.Maybe[int]
}

type RealTimeData struct {
	Stations []StationLatest
}

// RealTimeManager collects the latest stored observation of every station.
type RealTimeManager struct {
	db       *database.Database
	logger   *slog.Logger
	stations []string
}

func NewRealTimeManager(db *database.Database, stations []string) *RealTimeManager {
	return &RealTimeManager{
		db:       db,
		logger:   slog.Default().With("module", "real_time_manager"),
		stations: stations,
	}
}

func (m *RealTimeManager) Get(ctx context.Context) (RealTimeData, error) {
	rtd := RealTimeData{}
	now := hours.FromNow()

	for _, station := range m.stations {
		sl := StationLatest{Station: station, Age: maybe.None[int]()}

		obs, err := m.db.GetLatestObservations(ctx, station)
		if err != nil {
			return RealTimeData{}, err
		}

		newest := hours.DateHour{}
		for _, o := range obs {
			sl.Values = append(sl.Values, LatestValue{
				Parameter: o.Parameter,
				When:      o.When,
				Value:     maybe.FromNullFloat64(o.Value),
			})
			if newest.IsZero() || o.When.Compare(newest) > 0 {
				newest = o.When
			}
		}
		if !newest.IsZero() {
			sl.Age = maybe.Some(newest.HoursUntil(now))
		}

		rtd.Stations = append(rtd.Stations, sl)
	}

	return rtd, nil
}
