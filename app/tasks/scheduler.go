package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/spacetraveling/app/generator"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	taskTimeout   = 15 * time.Minute
	queueCapacity = 100
)

var (
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
)

type Scheduler struct {
	builder     SiteBuilder
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
	intervals   chan time.Duration
}

// NewScheduler regenerates the site every interval. A zero interval
// disables periodic builds; the startup build and queued tasks still run.
func NewScheduler(builder SiteBuilder, interval time.Duration, workerCount int) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		builder:     builder,
		interval:    interval,
		workerCount: max(workerCount, 1),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueCapacity),
		intervals:   make(chan time.Duration, 1),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(tickerInterval(s.interval))
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case interval := <-s.intervals:
				s.interval = interval
				ticker.Reset(tickerInterval(interval))
				slog.Debug("Revalidation interval changed", "interval", interval)
			case <-ticker.C:
				if s.interval > 0 {
					s.enqueueTasks()
				}
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// SetInterval changes the revalidation period of a running scheduler.
func (s *Scheduler) SetInterval(interval time.Duration) {
	select {
	case <-s.intervals:
	default:
	}
	s.intervals <- interval
}

func (s *Scheduler) enqueueStartupTasks() {
	if err := s.EnqueueTask(NewBuildSiteTask(generator.ReasonStartup, s.builder)); err != nil {
		slog.Warn("Failed to enqueue BuildSiteTask", "reason", generator.ReasonStartup, "error", err)
	}
}

func (s *Scheduler) enqueueTasks() {
	slog.Debug("Revalidating site", "interval", s.interval)

	if err := s.EnqueueTask(NewBuildSiteTask(generator.ReasonSchedule, s.builder)); err != nil {
		slog.Warn("Failed to enqueue BuildSiteTask", "reason", generator.ReasonSchedule, "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := retryBaseDelay * time.Duration(1<<uint(task.GetRetryCount()-1))
			if retryDelay > retryMaxDelay {
				retryDelay = retryMaxDelay
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "target", task.GetTarget(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()

				timer := time.NewTimer(retryDelay)
				defer timer.Stop()

				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-timer.C:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}

// tickerInterval keeps the ticker valid when periodic builds are disabled.
func tickerInterval(interval time.Duration) time.Duration {
	if interval <= 0 {
		return time.Hour
	}
	return interval
}
