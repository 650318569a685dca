package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/spacetraveling/app/blog"
)

type BuildPostTask struct {
	Task
	UID     string
	Reason  string
	builder SiteBuilder
}

func NewBuildPostTask(uid, reason string, builder SiteBuilder) *BuildPostTask {
	return &BuildPostTask{
		Task:    NewTask(TaskTypeBuildPost, uid),
		UID:     uid,
		Reason:  reason,
		builder: builder,
	}
}

func (t *BuildPostTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := t.builder.BuildPost(ctx, t.UID, t.Reason)
	if errors.Is(err, blog.ErrPostNotFound) {
		// Retrying cannot make an unpublished post appear
		slog.Warn("Post not found, nothing to build", "uid", t.UID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to build post %s: %w", t.UID, err)
	}

	slog.Info("Task completed",
		"type", "BuildPost",
		"uid", t.UID,
		"reason", t.Reason,
		"duration", t.GetDuration())

	return nil
}
