package apiApp

import (
	"context"
	"log"
	"log/slog"

	"github.com/langowen/currency/deploy/config"
	"github.com/langowen/currency/internal/api_service/ports/http/public"
	"github.com/langowen/currency/internal/currency/cache"
	"github.com/langowen/currency/internal/currency/registry"
	"github.com/langowen/currency/internal/currency/selector"
	"github.com/langowen/currency/internal/currency/service"
	fetcherApp "github.com/langowen/currency/internal/currency_fetcher/app"
	"github.com/langowen/currency/internal/currency_fetcher/adapter/storage"
	"github.com/langowen/currency/internal/currency_fetcher/fetcher"
	"github.com/langowen/currency/internal/currency_fetcher/metrics"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type ApiApp struct {
	cfg *config.Config
}

func NewApiApp(cfg *config.Config) *ApiApp {
	return &ApiApp{cfg: cfg}
}

// Start boots the currency service and the HTTP server. The returned channel
// is closed once the server and every background loop have stopped.
func (a *ApiApp) Start(ctx context.Context) <-chan struct{} {
	fetcherApp.InitLogger(a.cfg.Log)
	slog.Info("Logger initialized")

	slog.With("config", a.cfg.Fetcher, "persistence", a.cfg.Persistence.Backend).Info("starting server")

	backend := a.initStorage(ctx)
	slog.Info("Storage initialized")

	fetch, svc := a.initService(ctx, backend)
	slog.Info("Service initialized")

	group, groupCtx := errgroup.WithContext(ctx)
	a.startLoops(groupCtx, group, fetch, backend)

	serverDone := public.StartServer(ctx, svc, a.cfg)
	slog.Info("server started")

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-serverDone

		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Background loop stopped", "error", err)
		}

		svc.Wait()
		backend.Close()
	}()

	return done
}

func (a *ApiApp) initStorage(ctx context.Context) *storage.Backend {
	backend, err := storage.Open(ctx, a.cfg)
	if err != nil {
		log.Fatalln("Failed to initialize storage", "error", err)
	}

	return backend
}

func (a *ApiApp) initService(ctx context.Context, backend *storage.Backend) (*fetcher.Fetcher, *service.Service) {
	reg := registry.New()
	c := cache.New(backend.Store, fetcherApp.Keys(a.cfg.Persistence))

	fetch := fetcherApp.InitFetcher(a.cfg, reg, c, backend, metrics.New(nil))
	svc := service.New(reg, selector.New(reg, c, a.cfg.Currency.Default), fetch)

	svc.Bootstrap(ctx)

	return fetch, svc
}

func (a *ApiApp) startLoops(ctx context.Context, group *errgroup.Group, fetch *fetcher.Fetcher, backend *storage.Backend) {
	if interval := a.cfg.Fetcher.RecheckInterval; interval > 0 {
		group.Go(func() error {
			return fetch.StartFetcher(ctx, interval)
		})
		slog.Info("periodic staleness check enabled", "interval", interval)
	}

	if backend.Redis != nil {
		if err := backend.Redis.Subscribe(ctx); err != nil {
			slog.Error("Failed to subscribe to rate updates, listener will retry", "error", err)
		}
		group.Go(func() error {
			return fetch.StartListener(ctx, backend.Redis)
		})
		slog.Info("listening for rate updates", "channel", a.cfg.Redis.Channel)
	}
}
