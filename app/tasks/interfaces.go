package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/spacetraveling/app/generator"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to regenerate the site in the background.
// Example usage:
//
//	scheduler := NewScheduler(builder, siteConfig.RevalidateInterval(), cfg.WorkerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewBuildPostTask("my-post", generator.ReasonManual, builder))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	SetInterval(interval time.Duration)
}

// SiteBuilder is the part of the generator the tasks drive.
type SiteBuilder interface {
	Run(ctx context.Context, reason string) (*generator.Report, error)
	BuildPost(ctx context.Context, uid, reason string) error
}

var _ SiteBuilder = (*generator.Builder)(nil)
