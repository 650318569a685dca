package database

import (
	"time"
)

type BuildRepository interface {
	CreateBuild(id, reason string, startedAt time.Time) error
	FinishBuild(id string, result BuildResult, finishedAt time.Time) error
	GetBuild(id string) (*Build, error)
	GetRecentBuilds(limit int) ([]Build, error)
}

type PageRepository interface {
	GetPage(path string) (*Page, error)
	GetPageByUID(uid string) (*Page, error)
	UpsertPage(page Page) error
	MarkMissing(keep []string, buildID string) (int, error)
	GetPageStats() (PageStats, error)
}
