package database

import (
	"time"
)

const (
	BuildStatusRunning   = "running"
	BuildStatusSucceeded = "succeeded"
	BuildStatusPartial   = "partial" // some pages failed
	BuildStatusFailed    = "failed"

	PageStatusGenerated = "generated"
	PageStatusFailed    = "failed"
	PageStatusMissing   = "missing" // UID no longer published
)

type Build struct {
	ID             string     `json:"id"`
	Reason         string     `json:"reason"` // startup, schedule, manual, watch, fallback
	Ref            string     `json:"ref"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	PagesGenerated int        `json:"pages_generated"`
	PagesSkipped   int        `json:"pages_skipped"`
	PagesFailed    int        `json:"pages_failed"`
	Error          string     `json:"error,omitempty"`
}

type BuildResult struct {
	Status         string
	Ref            string
	PagesGenerated int
	PagesSkipped   int
	PagesFailed    int
	Error          string
}

type Page struct {
	Path                string     `json:"path"`
	UID                 string     `json:"uid,omitempty"`
	LastPublicationDate *time.Time `json:"last_publication_date,omitempty"`
	Fingerprint         string     `json:"fingerprint,omitempty"` // inputs the page was rendered from
	GeneratedAt         time.Time  `json:"generated_at"`
	BuildID             string     `json:"build_id"`
	Status              string     `json:"status"`
	Error               string     `json:"error,omitempty"`
}

type PageStats struct {
	Total     int `json:"total"`
	Generated int `json:"generated"`
	Failed    int `json:"failed"`
	Missing   int `json:"missing"`
}
