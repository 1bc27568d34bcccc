package fetcherApp

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/langowen/currency/deploy/config"
	"github.com/langowen/currency/internal/currency/cache"
	"github.com/langowen/currency/internal/currency/registry"
	"github.com/langowen/currency/internal/currency_fetcher/adapter/api_client"
	"github.com/langowen/currency/internal/currency_fetcher/adapter/api_client/fawazahmed"
	"github.com/langowen/currency/internal/currency_fetcher/adapter/api_client/frankfurter"
	"github.com/langowen/currency/internal/currency_fetcher/adapter/storage"
	"github.com/langowen/currency/internal/currency_fetcher/fetcher"
	"github.com/langowen/currency/internal/currency_fetcher/metrics"
	"github.com/pkg/errors"
)

// defaultInterval is the staleness re-check period of the standalone
// fetcher when FETCHER_RECHECK_INTERVAL is not set.
const defaultInterval = time.Hour

// FetcherApp runs only the rate updater. It keeps the shared store fresh and
// announces updates to API instances over Redis.
type FetcherApp struct {
	cfg *config.Config
}

func NewFetcherApp(cfg *config.Config) *FetcherApp {
	return &FetcherApp{cfg: cfg}
}

func (a *FetcherApp) Start(ctx context.Context) error {
	const op = "fetcherApp.Start"

	InitLogger(a.cfg.Log)
	slog.Info("Logger initialized")

	slog.With("config", a.cfg.Fetcher, "persistence", a.cfg.Persistence.Backend).Info("starting fetcher")

	backend, err := storage.Open(ctx, a.cfg)
	if err != nil {
		log.Fatalln("Failed to initialize storage", "error", err)
	}
	defer backend.Close()
	slog.Info("Storage initialized")

	reg := registry.New()
	fetch := InitFetcher(a.cfg, reg, cache.New(backend.Store, Keys(a.cfg.Persistence)), backend, metrics.New(nil))

	fetch.Restore(ctx)
	if fetch.ShouldRefresh() {
		fetch.Refresh(ctx)
	}

	interval := a.cfg.Fetcher.RecheckInterval
	if interval <= 0 {
		interval = defaultInterval
	}

	slog.Info("starting fetcher loop", "interval", interval)
	if err := fetch.StartFetcher(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, op)
	}

	return nil
}

func InitLogger(cfg config.Log) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.SlogLevel(),
		AddSource: false,
	}))
	slog.SetDefault(logger)
}

func Keys(cfg config.Persistence) cache.Keys {
	return cache.Keys{Snapshot: cfg.SnapshotKey, Selection: cfg.SelectionKey}
}

// InitFetcher wires the configured sources, primary first, behind one
// rate-limited HTTP client.
func InitFetcher(cfg *config.Config, reg *registry.Registry, c *cache.Cache, backend *storage.Backend, m *metrics.Metrics) *fetcher.Fetcher {
	fc := cfg.Fetcher
	client := api_client.NewHTTPClient(fc.Timeout, fc.RateLimit, fc.RateBurst)

	var sources []fetcher.Source
	if fc.PrimaryURL != "" {
		sources = append(sources, frankfurter.NewSource(client, fc.PrimaryURL))
	}
	if fc.BackupURL != "" {
		sources = append(sources, fawazahmed.NewSource(client, fc.BackupURL))
	}
	for i, src := range sources {
		sources[i] = fetcher.WithBreaker(src, fc.BreakerThreshold, fc.BreakerTimeout)
	}

	opts := []fetcher.Option{
		fetcher.WithTimeout(fc.Timeout),
		fetcher.WithStaleAfter(fc.StaleAfter),
		fetcher.WithMetrics(m),
	}
	if backend.Redis != nil {
		opts = append(opts, fetcher.WithNotifier(backend.Redis))
	}

	return fetcher.NewFetcher(reg, c, sources, opts...)
}
