package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/langowen/currency/deploy/config"
	fetcherApp "github.com/langowen/currency/internal/currency_fetcher/app"
)

func main() {
	cfg := config.NewConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := fetcherApp.NewFetcherApp(cfg).Start(ctx); err != nil {
		log.Fatalln("Fetcher stopped", "error", err)
	}

	slog.Info("fetcher stopped")
}
