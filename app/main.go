package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lysyi3m/spacetraveling/app/cfg"
	"github.com/lysyi3m/spacetraveling/app/prismic"
	"github.com/lysyi3m/spacetraveling/app/site"
)

func main() {
	appCfg, err := cfg.Load()
	if errors.Is(err, cfg.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	setupLogger(appCfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appCfg); err != nil {
		slog.Error("Command failed", "command", appCfg.Command, "error", err)
		stop()
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func run(ctx context.Context, appCfg *cfg.Cfg) error {
	client, err := prismic.NewClient(appCfg.PrismicEndpoint,
		prismic.WithAccessToken(appCfg.PrismicToken),
		prismic.WithUserAgent(appCfg.UserAgent),
		prismic.WithHTTPClient(newHTTPClient(appCfg.RequestTimeout())),
	)
	if err != nil {
		return err
	}

	store := site.NewStore(appCfg.SiteConfig)
	siteConfig, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load site configuration: %w", err)
	}

	slog.Debug("Configuration loaded",
		"command", appCfg.Command,
		"endpoint", client.Endpoint().Redacted(),
		"site_config", store.Path(),
		"locale", siteConfig.Locale,
		"version", appCfg.Version)

	switch appCfg.Command {
	case cfg.CommandBuild:
		return runBuild(ctx, appCfg, client, siteConfig)
	case cfg.CommandBrowse:
		return runBrowse(ctx, appCfg, client, siteConfig)
	default:
		return runServe(ctx, appCfg, client, store)
	}
}
