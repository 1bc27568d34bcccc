package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/langowen/currency/internal/currency/converter"
	"github.com/langowen/currency/internal/currency/registry"
	"github.com/langowen/currency/internal/currency/selector"
	"github.com/langowen/currency/internal/entities"
)

type Updater interface {
	Refresh(ctx context.Context) bool
	Restore(ctx context.Context) bool
	ShouldRefresh() bool
	LastUpdate() (time.Time, bool)
}

// Service is the currency API the rest of the application consumes.
type Service struct {
	registry  *registry.Registry
	selector  *selector.Selector
	converter *converter.Converter
	updater   Updater

	wg sync.WaitGroup
}

func New(reg *registry.Registry, sel *selector.Selector, updater Updater) *Service {
	return &Service{
		registry:  reg,
		selector:  sel,
		converter: converter.New(reg, sel),
		updater:   updater,
	}
}

// Bootstrap restores the persisted selection and rates, then refreshes in
// the background when the table is stale. It never blocks on the network.
func (s *Service) Bootstrap(ctx context.Context) {
	const op = "service.Bootstrap"

	code := s.selector.Load(ctx)
	restored := s.updater.Restore(ctx)

	slog.Info("currency state loaded", "op", op, "currency", code, "cached_rates", restored)

	if !s.updater.ShouldRefresh() {
		return
	}

	bg := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if !s.updater.Refresh(bg) {
			slog.Warn("background rate refresh did not update rates", "op", op)
		}
	}()
}

// Wait blocks until a background refresh started by Bootstrap has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Refresh(ctx context.Context) bool {
	return s.updater.Refresh(ctx)
}

func (s *Service) ShouldRefresh() bool {
	return s.updater.ShouldRefresh()
}

func (s *Service) GetCurrent() string {
	return s.selector.GetCurrent()
}

// SetCurrent fails with entities.ErrUnknownCurrency for unsupported codes.
func (s *Service) SetCurrent(ctx context.Context, code string) error {
	return s.selector.SetCurrent(ctx, code)
}

// Current returns the full record of the selected currency.
func (s *Service) Current() entities.Currency {
	return s.converter.Current()
}

func (s *Service) ToDisplay(amount float64) float64 {
	return s.converter.ToDisplay(amount)
}

func (s *Service) ToReference(amount float64) float64 {
	return s.converter.ToReference(amount)
}

func (s *Service) Format(amount float64) string {
	return s.converter.Format(amount)
}

func (s *Service) List() []entities.Currency {
	return s.registry.List()
}

// LastUpdateTime reports false when no rate table was ever fetched or restored.
func (s *Service) LastUpdateTime() (time.Time, bool) {
	return s.updater.LastUpdate()
}
