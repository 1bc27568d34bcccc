package fetcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/langowen/currency/internal/currency_fetcher/metrics"
	"github.com/langowen/currency/internal/entities"
	"github.com/pkg/errors"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultStaleAfter = 24 * time.Hour
)

// Fetcher keeps the registry in sync with the remote sources. Only one
// refresh runs at a time; concurrent callers get false without any request.
type Fetcher struct {
	registry Registry
	cache    Cache
	sources  []Source
	notifier Notifier
	metrics  *metrics.Metrics

	timeout    time.Duration
	staleAfter time.Duration
	now        func() time.Time

	updating atomic.Bool

	mu         sync.RWMutex
	lastUpdate time.Time
}

type Option func(f *Fetcher)

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithStaleAfter(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.staleAfter = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

func WithNotifier(n Notifier) Option {
	return func(f *Fetcher) {
		f.notifier = n
	}
}

// NewFetcher tries sources in the given order on every refresh.
func NewFetcher(registry Registry, cache Cache, sources []Source, opts ...Option) *Fetcher {
	f := &Fetcher{
		registry:   registry,
		cache:      cache,
		sources:    sources,
		timeout:    DefaultTimeout,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Refresh pulls a new rate table. It returns true when fresh rates were
// applied, or when every source failed but a cached snapshot was restored.
func (f *Fetcher) Refresh(ctx context.Context) bool {
	const op = "fetcher.Refresh"

	if !f.updating.CompareAndSwap(false, true) {
		slog.Debug("refresh already in progress", "op", op)
		f.metrics.Refresh(metrics.ResultSkipped)
		return false
	}
	defer f.updating.Store(false)

	rates, err := f.fetchRates(ctx)
	if err != nil {
		slog.Warn("all rate sources failed, falling back to cache", "op", op, "error", err)
		return f.restoreFromCache(ctx)
	}

	f.registry.Apply(rates)

	now := f.now()
	f.setLastUpdate(now)

	snap := entities.RateSnapshot{Rates: f.registry.Rates(), LastUpdate: now}

	if err := f.cache.SaveSnapshot(ctx, snap); err != nil {
		slog.Error("failed to persist rate snapshot", "op", op, "error", err)
	}

	f.notify(ctx, snap)

	f.metrics.Refresh(metrics.ResultSuccess)
	f.metrics.Rates(snap.Rates, now)
	slog.Info("exchange rates updated", "op", op, "rates", snap.Rates)

	return true
}

func (f *Fetcher) fetchRates(ctx context.Context) (map[string]float64, error) {
	const op = "fetcher.fetchRates"

	if len(f.sources) == 0 {
		return nil, errors.Wrapf(entities.ErrNetwork, "%s: no rate sources configured", op)
	}

	var lastErr error
	for _, src := range f.sources {
		rates, err := f.fetchOne(ctx, src)
		f.metrics.Fetch(src.Name(), err)
		if err == nil {
			slog.Debug("rates fetched", "op", op, "source", src.Name(), "count", len(rates))
			return rates, nil
		}

		slog.Warn("rate source failed", "op", op, "source", src.Name(), "error", err)
		lastErr = err
	}

	return nil, errors.Wrap(lastErr, op)
}

func (f *Fetcher) fetchOne(ctx context.Context, src Source) (map[string]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	rates, err := src.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, entities.ErrNetwork) {
			return nil, errors.Wrapf(entities.ErrNetwork, "%s: %v", src.Name(), err)
		}
		return nil, err
	}

	return rates, nil
}

func (f *Fetcher) restoreFromCache(ctx context.Context) bool {
	const op = "fetcher.restoreFromCache"

	snap, err := f.cache.LoadSnapshot(ctx)
	if err != nil {
		slog.Error("no usable cached rates", "op", op, "error", err)
		f.metrics.Refresh(metrics.ResultFailed)
		return false
	}

	f.apply(snap)
	f.metrics.Refresh(metrics.ResultCache)
	slog.Info("using cached exchange rates", "op", op, "last_update", snap.LastUpdate)

	return true
}

// Restore loads the persisted snapshot into the registry. Missing or corrupt
// data leaves the built-in rates in place.
func (f *Fetcher) Restore(ctx context.Context) bool {
	const op = "fetcher.Restore"

	snap, err := f.cache.LoadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			slog.Debug("no rate snapshot yet, using defaults", "op", op)
		} else {
			slog.Warn("failed to load rate snapshot, using defaults", "op", op, "error", err)
		}
		return false
	}

	f.apply(snap)

	return true
}

// Sync applies the persisted snapshot only when it is newer than the table
// in use. Other instances announce their refreshes this way. It does not wait
// for a local refresh in flight; whichever update completes last wins.
func (f *Fetcher) Sync(ctx context.Context) bool {
	const op = "fetcher.Sync"

	snap, err := f.cache.LoadSnapshot(ctx)
	if err != nil {
		slog.Warn("failed to load rate snapshot", "op", op, "error", err)
		return false
	}

	if last, ok := f.LastUpdate(); ok && !snap.LastUpdate.After(last) {
		return false
	}

	f.apply(snap)
	slog.Info("exchange rates synced from snapshot", "op", op, "last_update", snap.LastUpdate)

	return true
}

func (f *Fetcher) apply(snap entities.RateSnapshot) {
	f.registry.Apply(snap.Rates)
	if !snap.LastUpdate.IsZero() {
		f.setLastUpdate(snap.LastUpdate)
	}
	f.metrics.Rates(f.registry.Rates(), snap.LastUpdate)
}

func (f *Fetcher) notify(ctx context.Context, snap entities.RateSnapshot) {
	const op = "fetcher.notify"

	if f.notifier == nil {
		return
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		slog.Error(op, "error", err)
		return
	}

	if err := f.notifier.PublishUpd(ctx, string(payload)); err != nil {
		slog.Warn("failed to publish rate update", "op", op, "error", err)
	}
}

// ShouldRefresh reports whether the table is missing or at least staleAfter old.
func (f *Fetcher) ShouldRefresh() bool {
	last, ok := f.LastUpdate()
	if !ok {
		return true
	}

	return f.now().Sub(last) >= f.staleAfter
}

func (f *Fetcher) LastUpdate() (time.Time, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.lastUpdate, !f.lastUpdate.IsZero()
}

func (f *Fetcher) IsUpdating() bool {
	return f.updating.Load()
}

func (f *Fetcher) setLastUpdate(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastUpdate = t
}

// StartFetcher re-checks staleness every interval and refreshes stale rates
// until ctx is done.
func (f *Fetcher) StartFetcher(ctx context.Context, interval time.Duration) error {
	const op = "fetcher.StartFetcher"

	if interval <= 0 {
		return errors.Errorf("%s: interval must be positive, got %s", op, interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !f.ShouldRefresh() {
				continue
			}
			if !f.Refresh(ctx) {
				slog.Warn("scheduled rate refresh did not update rates", "op", op)
			}

		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), op)
		}
	}
}

// StartListener syncs the registry every time another instance announces
// an update, until ctx is done.
func (f *Fetcher) StartListener(ctx context.Context, listener Listener) error {
	const op = "fetcher.StartListener"

	for {
		_, err := listener.ListenUdp(ctx)
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), op)
		}

		if err != nil {
			if !errors.Is(err, entities.ErrRedisTimeout) {
				slog.Error("rate update listener failed", "op", op, "error", err)
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return errors.Wrap(ctx.Err(), op)
				}
			}
			continue
		}

		f.Sync(ctx)
	}
}
