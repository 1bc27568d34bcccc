package selector

import (
	"context"
	"testing"

	"github.com/langowen/currency/internal/currency/cache"
	"github.com/langowen/currency/internal/currency/registry"
	"github.com/langowen/currency/internal/currency_fetcher/adapter/storage/memory"
	"github.com/langowen/currency/internal/entities"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readOnlyStore struct{ *memory.Storage }

func (readOnlyStore) Set(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func TestDefaults(t *testing.T) {
	c := cache.New(memory.NewStorage(), cache.Keys{})

	assert.Equal(t, "USD", New(registry.New(), c, "").GetCurrent())
	assert.Equal(t, "COP", New(registry.New(), c, "cop").GetCurrent())
	assert.Equal(t, "USD", New(registry.New(), c, "XYZ").GetCurrent())
}

func TestSetCurrentPersists(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	reg := registry.New()

	s := New(reg, cache.New(store, cache.Keys{}), "USD")
	require.NoError(t, s.SetCurrent(ctx, "eur"))
	assert.Equal(t, "EUR", s.GetCurrent())

	raw, err := store.Get(ctx, "currency")
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"EUR"}`, string(raw))

	restarted := New(reg, cache.New(store, cache.Keys{}), "USD")
	assert.Equal(t, "EUR", restarted.Load(ctx))
	assert.Equal(t, "EUR", restarted.GetCurrent())
}

func TestSetCurrentUnknown(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()

	s := New(registry.New(), cache.New(store, cache.Keys{}), "MXN")

	err := s.SetCurrent(ctx, "XYZ")
	require.ErrorIs(t, err, entities.ErrUnknownCurrency)
	assert.Equal(t, "MXN", s.GetCurrent())

	_, err = store.Get(ctx, "currency")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestSetCurrentSurvivesWriteFailure(t *testing.T) {
	s := New(registry.New(), cache.New(readOnlyStore{memory.NewStorage()}, cache.Keys{}), "USD")

	require.NoError(t, s.SetCurrent(context.Background(), "COP"))
	assert.Equal(t, "COP", s.GetCurrent())
}

func TestLoadFallsBack(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		raw  string
	}{
		{"unknown code", `{"code":"XYZ"}`},
		{"corrupt", `{"code":`},
		{"empty", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStorage()
			require.NoError(t, store.Set(ctx, "currency", []byte(tt.raw)))

			s := New(registry.New(), cache.New(store, cache.Keys{}), "COP")
			assert.Equal(t, "COP", s.Load(ctx))
		})
	}

	s := New(registry.New(), cache.New(memory.NewStorage(), cache.Keys{}), "")
	assert.Equal(t, "USD", s.Load(ctx))
}
