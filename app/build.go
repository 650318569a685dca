package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/spacetraveling/app/cfg"
	"github.com/lysyi3m/spacetraveling/app/generator"
	"github.com/lysyi3m/spacetraveling/app/prismic"
	"github.com/lysyi3m/spacetraveling/app/site"
)

func runBuild(ctx context.Context, appCfg *cfg.Cfg, client *prismic.Client, siteConfig *site.Config) error {
	gen, err := openGenerator(appCfg, client, siteConfig)
	if err != nil {
		return err
	}
	defer gen.Close()

	slog.Info("Generating site", "output_dir", appCfg.OutputDir, "workers", appCfg.WorkerCount)

	report, err := gen.builder.Run(ctx, generator.ReasonManual)
	if err != nil {
		return err
	}

	slog.Info("Site generated",
		"build_id", report.BuildID,
		"ref", report.Ref,
		"generated", report.Generated,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.Duration)

	if report.Failed > 0 {
		for uid, cause := range report.Failures {
			slog.Error("Post generation failed", "uid", uid, "error", cause)
		}
		return fmt.Errorf("%d posts failed to generate", report.Failed)
	}
	return nil
}
