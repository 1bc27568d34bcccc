package selector

import (
	"context"
	"log/slog"
	"sync"

	"github.com/langowen/currency/internal/entities"
	"github.com/pkg/errors"
)

type Registry interface {
	Lookup(code string) (entities.Currency, bool)
}

type Cache interface {
	LoadSelection(ctx context.Context) (entities.CurrencySelection, error)
	SaveSelection(ctx context.Context, sel entities.CurrencySelection) error
}

// Selector holds the single display currency of the process.
type Selector struct {
	registry Registry
	cache    Cache
	fallback string

	mu      sync.RWMutex
	current string
}

// New starts with defaultCode when the registry knows it, otherwise with
// the reference currency.
func New(registry Registry, cache Cache, defaultCode string) *Selector {
	s := &Selector{
		registry: registry,
		cache:    cache,
		fallback: entities.ReferenceCode,
	}

	if c, ok := registry.Lookup(defaultCode); ok {
		s.fallback = c.Code
	} else if defaultCode != "" {
		slog.Warn("unknown default currency, using reference", "code", defaultCode, "reference", entities.ReferenceCode)
	}

	s.current = s.fallback

	return s
}

// Load restores the persisted selection. Missing, corrupt or unknown values
// keep the default.
func (s *Selector) Load(ctx context.Context) string {
	const op = "selector.Load"

	sel, err := s.cache.LoadSelection(ctx)
	if err != nil {
		if !errors.Is(err, entities.ErrNotFound) {
			slog.Warn("failed to load currency selection", "op", op, "error", err)
		}
		return s.GetCurrent()
	}

	c, ok := s.registry.Lookup(sel.Code)
	if !ok {
		slog.Warn("persisted currency is not supported", "op", op, "code", sel.Code)
		return s.GetCurrent()
	}

	s.mu.Lock()
	s.current = c.Code
	s.mu.Unlock()

	return c.Code
}

func (s *Selector) GetCurrent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// SetCurrent switches the display currency and persists it. A failed write
// is logged; the in-memory selection still changes.
func (s *Selector) SetCurrent(ctx context.Context, code string) error {
	const op = "selector.SetCurrent"

	c, ok := s.registry.Lookup(code)
	if !ok {
		return errors.Wrapf(entities.ErrUnknownCurrency, "%s: %q", op, code)
	}

	s.mu.Lock()
	s.current = c.Code
	s.mu.Unlock()

	if err := s.cache.SaveSelection(ctx, entities.CurrencySelection{Code: c.Code}); err != nil {
		slog.Error("failed to persist currency selection", "op", op, "code", c.Code, "error", err)
	}

	return nil
}
