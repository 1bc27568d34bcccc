package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/langowen/currency/internal/entities"
	"github.com/pkg/errors"
)

// Store is the key-value persistence surface. Get returns
// entities.ErrNotFound when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type Keys struct {
	Snapshot  string
	Selection string
}

func DefaultKeys() Keys {
	return Keys{Snapshot: "exchangeRates", Selection: "currency"}
}

// Cache persists the last known rate table and the display currency.
type Cache struct {
	store Store
	keys  Keys
}

func New(store Store, keys Keys) *Cache {
	def := DefaultKeys()
	if keys.Snapshot == "" {
		keys.Snapshot = def.Snapshot
	}
	if keys.Selection == "" {
		keys.Selection = def.Selection
	}

	return &Cache{store: store, keys: keys}
}

type snapshotRecord struct {
	Rates      map[string]float64 `json:"rates"`
	LastUpdate string             `json:"lastUpdate"`
}

// LoadSnapshot returns entities.ErrNotFound when nothing was saved yet and
// entities.ErrPersistence when the store failed or returned corrupt data.
func (c *Cache) LoadSnapshot(ctx context.Context) (entities.RateSnapshot, error) {
	const op = "cache.LoadSnapshot"

	raw, err := c.get(ctx, c.keys.Snapshot)
	if err != nil {
		return entities.RateSnapshot{}, errors.Wrap(err, op)
	}

	var rec snapshotRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return entities.RateSnapshot{}, errors.Wrapf(entities.ErrPersistence, "%s: decode snapshot: %v", op, err)
	}
	if rec.Rates == nil {
		return entities.RateSnapshot{}, errors.Wrapf(entities.ErrPersistence, "%s: snapshot has no rates", op)
	}

	snap := entities.RateSnapshot{Rates: rec.Rates}
	if rec.LastUpdate != "" {
		ts, err := time.Parse(time.RFC3339Nano, rec.LastUpdate)
		if err != nil {
			return entities.RateSnapshot{}, errors.Wrapf(entities.ErrPersistence, "%s: bad lastUpdate: %v", op, err)
		}
		snap.LastUpdate = ts
	}

	return snap, nil
}

func (c *Cache) SaveSnapshot(ctx context.Context, snap entities.RateSnapshot) error {
	const op = "cache.SaveSnapshot"

	raw, err := EncodeSnapshot(snap)
	if err != nil {
		return errors.Wrap(err, op)
	}

	return errors.Wrap(c.set(ctx, c.keys.Snapshot, raw), op)
}

// EncodeSnapshot renders the persisted form {"rates":{...},"lastUpdate":"..."}.
func EncodeSnapshot(snap entities.RateSnapshot) ([]byte, error) {
	rec := snapshotRecord{Rates: snap.Rates}
	if rec.Rates == nil {
		rec.Rates = map[string]float64{}
	}
	if !snap.LastUpdate.IsZero() {
		rec.LastUpdate = snap.LastUpdate.UTC().Format(time.RFC3339Nano)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrapf(entities.ErrPersistence, "encode snapshot: %v", err)
	}

	return raw, nil
}

func (c *Cache) LoadSelection(ctx context.Context) (entities.CurrencySelection, error) {
	const op = "cache.LoadSelection"

	raw, err := c.get(ctx, c.keys.Selection)
	if err != nil {
		return entities.CurrencySelection{}, errors.Wrap(err, op)
	}

	var sel entities.CurrencySelection
	if err := json.Unmarshal(raw, &sel); err != nil {
		return entities.CurrencySelection{}, errors.Wrapf(entities.ErrPersistence, "%s: decode selection: %v", op, err)
	}
	if sel.Code == "" {
		return entities.CurrencySelection{}, errors.Wrapf(entities.ErrPersistence, "%s: empty code", op)
	}

	return sel, nil
}

func (c *Cache) SaveSelection(ctx context.Context, sel entities.CurrencySelection) error {
	const op = "cache.SaveSelection"

	raw, err := json.Marshal(sel)
	if err != nil {
		return errors.Wrapf(entities.ErrPersistence, "%s: %v", op, err)
	}

	return errors.Wrap(c.set(ctx, c.keys.Selection, raw), op)
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, error) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, entities.ErrNotFound
		}
		return nil, errors.Wrapf(entities.ErrPersistence, "read %q: %v", key, err)
	}

	return raw, nil
}

func (c *Cache) set(ctx context.Context, key string, value []byte) error {
	if err := c.store.Set(ctx, key, value); err != nil {
		return errors.Wrapf(entities.ErrPersistence, "write %q: %v", key, err)
	}

	return nil
}
