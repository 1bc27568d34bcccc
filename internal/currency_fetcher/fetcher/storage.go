package fetcher

import (
	"context"

	"github.com/langowen/currency/internal/entities"
)

type Cache interface {
	LoadSnapshot(ctx context.Context) (entities.RateSnapshot, error)
	SaveSnapshot(ctx context.Context, snap entities.RateSnapshot) error
}

type Registry interface {
	Apply(rates map[string]float64) int
	Rates() map[string]float64
}
