package types

import (
	"context"

	"github.com/angas/fmi-go/fmi"
)

type ObservationProvider interface {
	GetObservations(ctx context.Context, q fmi.ObservationQuery) (fmi.Table, error)
}

type ForecastProvider interface {
	GetForecast(ctx context.Context, q fmi.ForecastQuery) (fmi.Table, error)
}

// Publisher hands freshly fetched tables to whoever is listening downstream.
type Publisher interface {
	PublishObservations(station string, t fmi.Table) error
	PublishForecast(station string, model fmi.Model, t fmi.Table) error
}
