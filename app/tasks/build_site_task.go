package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type BuildSiteTask struct {
	Task
	Reason  string
	builder SiteBuilder
}

func NewBuildSiteTask(reason string, builder SiteBuilder) *BuildSiteTask {
	return &BuildSiteTask{
		Task:    NewTask(TaskTypeBuildSite, "site"),
		Reason:  reason,
		builder: builder,
	}
}

func (t *BuildSiteTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report, err := t.builder.Run(ctx, t.Reason)
	if err != nil {
		return fmt.Errorf("failed to build site: %w", err)
	}

	slog.Info("Task completed",
		"type", "BuildSite",
		"reason", t.Reason,
		"build_id", report.BuildID,
		"generated", report.Generated,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", t.GetDuration())

	return nil
}
