package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lysyi3m/spacetraveling/app/api"
	"github.com/lysyi3m/spacetraveling/app/cfg"
	"github.com/lysyi3m/spacetraveling/app/generator"
	"github.com/lysyi3m/spacetraveling/app/prismic"
	"github.com/lysyi3m/spacetraveling/app/site"
	"github.com/lysyi3m/spacetraveling/app/tasks"
)

const watchDebounce = 500 * time.Millisecond

func runServe(ctx context.Context, appCfg *cfg.Cfg, client *prismic.Client, store *site.Store) error {
	slog.Info("Starting spacetraveling server", "version", appCfg.Version)

	siteConfig := store.Get()

	gen, err := openGenerator(appCfg, client, siteConfig)
	if err != nil {
		return err
	}
	defer gen.Close()

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "revalidate", siteConfig.RevalidateInterval())
	scheduler := tasks.NewScheduler(gen.builder, siteConfig.RevalidateInterval(), appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	if appCfg.Watch {
		if err := watchSiteConfig(ctx, store, gen.builder, scheduler); err != nil {
			return err
		}
	}

	handler := api.NewHandler(gen.builder, client, gen.buildRepo, gen.pageRepo, scheduler, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		slog.Info("Endpoints available",
			"site", fmt.Sprintf("http://localhost:%s/", appCfg.Port),
			"health", fmt.Sprintf("http://localhost:%s/health", appCfg.Port),
			"admin_api", appCfg.APIAccessKey != "")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serveErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}

// watchSiteConfig regenerates the site whenever the site configuration file changes.
// The parent directory is watched so editors that replace the file are noticed.
func watchSiteConfig(ctx context.Context, store *site.Store, builder *generator.Builder, scheduler tasks.TaskSchedulerInterface) error {
	path, err := filepath.Abs(store.Path())
	if err != nil {
		return fmt.Errorf("failed to resolve site config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	slog.Info("Watching site configuration", "path", path)

	go func() {
		defer watcher.Close()

		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				debounce = time.After(watchDebounce)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Config watcher error", "error", err)
			case <-debounce:
				debounce = nil
				reloadSiteConfig(store, builder, scheduler)
			}
		}
	}()

	return nil
}

func reloadSiteConfig(store *site.Store, builder *generator.Builder, scheduler tasks.TaskSchedulerInterface) {
	config, err := store.Load()
	if err != nil {
		slog.Error("Site configuration rejected, keeping previous", "path", store.Path(), "error", err)
		return
	}

	if err := builder.Reconfigure(config); err != nil {
		slog.Error("Failed to apply site configuration", "path", store.Path(), "error", err)
		return
	}
	scheduler.SetInterval(config.RevalidateInterval())

	if err := scheduler.EnqueueTask(tasks.NewBuildSiteTask(generator.ReasonWatch, builder)); err != nil {
		slog.Error("Error enqueueing build task", "reason", generator.ReasonWatch, "error", err)
		return
	}
	slog.Info("Site configuration reloaded", "path", store.Path(), "title", config.Title)
}
