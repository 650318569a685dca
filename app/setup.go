package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/spacetraveling/app/cfg"
	"github.com/lysyi3m/spacetraveling/app/database"
	"github.com/lysyi3m/spacetraveling/app/generator"
	"github.com/lysyi3m/spacetraveling/app/prismic"
	"github.com/lysyi3m/spacetraveling/app/site"
)

type siteGenerator struct {
	db        *database.DB
	buildRepo database.BuildRepository
	pageRepo  database.PageRepository
	builder   *generator.Builder
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// openGenerator connects the build history database and creates the site builder.
func openGenerator(appCfg *cfg.Cfg, client *prismic.Client, siteConfig *site.Config) (*siteGenerator, error) {
	slog.Debug("Connecting to database", "path", appCfg.DBPath)
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Database ready", "schema_version", version, "dirty", dirty)

	buildRepo := database.NewBuildRepository(db)
	pageRepo := database.NewPageRepository(db)

	builder, err := generator.NewBuilder(client, buildRepo, pageRepo, siteConfig, generator.Config{
		OutputDir: appCfg.OutputDir,
		BaseURL:   appCfg.BaseUrl,
		Workers:   appCfg.WorkerCount,
		Location:  time.Local,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create site builder: %w", err)
	}

	return &siteGenerator{
		db:        db,
		buildRepo: buildRepo,
		pageRepo:  pageRepo,
		builder:   builder,
	}, nil
}

func (g *siteGenerator) Close() error {
	return g.db.Close()
}
