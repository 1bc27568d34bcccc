package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/langowen/currency/internal/currency/cache"
	"github.com/langowen/currency/internal/currency/registry"
	"github.com/langowen/currency/internal/currency/selector"
	"github.com/langowen/currency/internal/currency_fetcher/adapter/storage/memory"
	"github.com/langowen/currency/internal/currency_fetcher/fetcher"
	"github.com/langowen/currency/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type source struct {
	rates map[string]float64
	calls atomic.Int32
}

func (s *source) Name() string { return "test" }

func (s *source) Fetch(context.Context) (map[string]float64, error) {
	s.calls.Add(1)
	return s.rates, nil
}

type env struct {
	svc   *Service
	store *memory.Storage
	src   *source
}

func setup(t *testing.T, store *memory.Storage, now time.Time) env {
	t.Helper()

	reg := registry.New()
	c := cache.New(store, cache.Keys{})
	src := &source{rates: map[string]float64{"COP": 3800, "EUR": 0.9, "MXN": 17.2}}
	f := fetcher.NewFetcher(reg, c, []fetcher.Source{src}, fetcher.WithClock(func() time.Time { return now }))

	return env{
		svc:   New(reg, selector.New(reg, c, "USD"), f),
		store: store,
		src:   src,
	}
}

func TestBootstrapRefreshesWhenStale(t *testing.T) {
	now := time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC)
	e := setup(t, memory.NewStorage(), now)

	_, ok := e.svc.LastUpdateTime()
	require.False(t, ok)

	e.svc.Bootstrap(context.Background())
	e.svc.Wait()

	last, ok := e.svc.LastUpdateTime()
	require.True(t, ok)
	assert.Equal(t, now, last)
	assert.Equal(t, int32(1), e.src.calls.Load())
	assert.False(t, e.svc.ShouldRefresh())
}

func TestBootstrapSkipsFreshCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC)
	store := memory.NewStorage()

	require.NoError(t, cache.New(store, cache.Keys{}).SaveSnapshot(ctx, entities.RateSnapshot{
		Rates:      map[string]float64{"EUR": 0.93},
		LastUpdate: now.Add(-time.Hour),
	}))
	require.NoError(t, cache.New(store, cache.Keys{}).SaveSelection(ctx, entities.CurrencySelection{Code: "EUR"}))

	e := setup(t, store, now)
	e.svc.Bootstrap(ctx)
	e.svc.Wait()

	assert.Equal(t, int32(0), e.src.calls.Load())
	assert.Equal(t, "EUR", e.svc.GetCurrent())
	assert.InDelta(t, 9.3, e.svc.ToDisplay(10), 1e-9)
}

func TestBootstrapDoesNotBlockOnCancel(t *testing.T) {
	now := time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC)
	e := setup(t, memory.NewStorage(), now)

	ctx, cancel := context.WithCancel(context.Background())
	e.svc.Bootstrap(ctx)
	cancel()

	require.Eventually(t, func() bool {
		_, ok := e.svc.LastUpdateTime()
		return ok
	}, time.Second, 5*time.Millisecond)
	e.svc.Wait()
}

func TestPublicAPI(t *testing.T) {
	ctx := context.Background()
	e := setup(t, memory.NewStorage(), time.Now())

	require.True(t, e.svc.Refresh(ctx))

	assert.Len(t, e.svc.List(), 4)
	assert.Equal(t, "USD", e.svc.GetCurrent())
	assert.Equal(t, "$20.00", e.svc.Format(19.999))

	require.NoError(t, e.svc.SetCurrent(ctx, "COP"))
	assert.Equal(t, "COP", e.svc.Current().Code)
	assert.Equal(t, "Peso Colombiano", e.svc.Current().Name)
	assert.InDelta(t, 380000.0, e.svc.ToDisplay(100), 1e-6)
	assert.InDelta(t, 100.0, e.svc.ToReference(380000), 1e-9)

	err := e.svc.SetCurrent(ctx, "XYZ")
	assert.ErrorIs(t, err, entities.ErrUnknownCurrency)
	assert.Equal(t, "COP", e.svc.GetCurrent())
}
