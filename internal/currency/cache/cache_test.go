package cache

import (
	"context"
	"testing"
	"time"

	"github.com/langowen/currency/internal/currency_fetcher/adapter/storage/memory"
	"github.com/langowen/currency/internal/entities"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (brokenStore) Set(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(memory.NewStorage(), Keys{})
	ts := time.Date(2025, 11, 12, 10, 30, 0, 0, time.UTC)

	_, err := c.LoadSnapshot(ctx)
	require.ErrorIs(t, err, entities.ErrNotFound)

	require.NoError(t, c.SaveSnapshot(ctx, entities.RateSnapshot{
		Rates:      map[string]float64{"COP": 3800, "EUR": 0.93},
		LastUpdate: ts,
	}))

	snap, err := c.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.93, snap.Rates["EUR"])
	assert.True(t, snap.LastUpdate.Equal(ts))
}

func TestSnapshotWireFormat(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	c := New(store, DefaultKeys())

	require.NoError(t, c.SaveSnapshot(ctx, entities.RateSnapshot{
		Rates:      map[string]float64{"MXN": 17},
		LastUpdate: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}))

	raw, err := store.Get(ctx, "exchangeRates")
	require.NoError(t, err)
	assert.JSONEq(t, `{"rates":{"MXN":17},"lastUpdate":"2025-01-02T03:04:05Z"}`, string(raw))
}

func TestCorruptSnapshot(t *testing.T) {
	ctx := context.Background()

	for name, body := range map[string]string{
		"not json":   `{"rates":`,
		"no rates":   `{"lastUpdate":"2025-01-02T03:04:05Z"}`,
		"bad stamp":  `{"rates":{"EUR":1},"lastUpdate":"yesterday"}`,
		"wrong type": `{"rates":{"EUR":"a lot"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			store := memory.NewStorage()
			require.NoError(t, store.Set(ctx, "exchangeRates", []byte(body)))

			_, err := New(store, Keys{}).LoadSnapshot(ctx)
			assert.ErrorIs(t, err, entities.ErrPersistence)
		})
	}
}

func TestSelection(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	c := New(store, Keys{Selection: "sel"})

	_, err := c.LoadSelection(ctx)
	require.ErrorIs(t, err, entities.ErrNotFound)

	require.NoError(t, c.SaveSelection(ctx, entities.CurrencySelection{Code: "EUR"}))
	sel, err := c.LoadSelection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EUR", sel.Code)

	require.NoError(t, store.Set(ctx, "sel", []byte(`garbage`)))
	_, err = c.LoadSelection(ctx)
	assert.ErrorIs(t, err, entities.ErrPersistence)
}

func TestStoreFailuresArePersistenceErrors(t *testing.T) {
	ctx := context.Background()
	c := New(brokenStore{}, Keys{})

	_, err := c.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, entities.ErrPersistence)

	err = c.SaveSelection(ctx, entities.CurrencySelection{Code: "USD"})
	assert.ErrorIs(t, err, entities.ErrPersistence)
}
