package generator

import (
	"sync"
	"time"
)

const (
	ReasonStartup  = "startup"
	ReasonSchedule = "schedule"
	ReasonManual   = "manual"
	ReasonWatch    = "watch"
	ReasonFallback = "fallback"
)

type Config struct {
	OutputDir string
	BaseURL   string
	Workers   int
	Location  *time.Location
}

// Report summarises one generation run.
type Report struct {
	BuildID   string
	Ref       string
	Generated int
	Skipped   int
	Failed    int
	Failures  map[string]string // UID to error text
	Duration  time.Duration

	mu sync.Mutex
}

type postOutcome int

const (
	postGenerated postOutcome = iota
	postSkipped
	postFailed
)

func (r *Report) record(uid string, outcome postOutcome, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch outcome {
	case postGenerated:
		r.Generated++
	case postSkipped:
		r.Skipped++
	case postFailed:
		r.Failed++
		if r.Failures == nil {
			r.Failures = make(map[string]string)
		}
		r.Failures[uid] = err.Error()
	}
}
