package fetcher

import (
	"context"
	"time"

	"github.com/eapache/go-resiliency/breaker"
	"github.com/langowen/currency/internal/entities"
	"github.com/pkg/errors"
)

// Source fetches a rate table keyed by uppercase currency code.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (map[string]float64, error)
}

type guardedSource struct {
	Source
	breaker *breaker.Breaker
}

// WithBreaker stops calling src for timeout after threshold consecutive
// failures. A threshold <= 0 returns src unchanged.
func WithBreaker(src Source, threshold int, timeout time.Duration) Source {
	if threshold <= 0 {
		return src
	}

	return &guardedSource{
		Source:  src,
		breaker: breaker.New(threshold, 1, timeout),
	}
}

func (g *guardedSource) Fetch(ctx context.Context) (map[string]float64, error) {
	var rates map[string]float64

	err := g.breaker.Run(func() error {
		var err error
		rates, err = g.Source.Fetch(ctx)
		return err
	})
	if errors.Is(err, breaker.ErrBreakerOpen) {
		return nil, errors.Wrapf(entities.ErrNetwork, "%s: circuit open", g.Name())
	}

	return rates, err
}
