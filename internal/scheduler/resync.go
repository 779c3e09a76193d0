// Package scheduler runs the periodic background jobs of the server.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"salesjournal/internal/logger"
)

// Resyncer re-mirrors in-memory state after a failed background write.
type Resyncer interface {
	Resync() bool
}

// ResyncJob periodically asks the store to re-persist its state when a
// background write has failed since the previous run.
type ResyncJob struct {
	scheduler *gocron.Scheduler
	target    Resyncer
	interval  time.Duration
	log       *logger.Logger

	mu        sync.Mutex
	runs      int
	resynced  int
	lastRunAt time.Time
}

func NewResyncJob(target Resyncer, interval time.Duration, log *logger.Logger) *ResyncJob {
	if log == nil {
		log = logger.NewNop()
	}
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	return &ResyncJob{
		scheduler: scheduler,
		target:    target,
		interval:  interval,
		log:       log.WithComponent("scheduler"),
	}
}

// Start schedules the job and stops it when ctx is cancelled. A non-positive
// interval disables the job.
func (j *ResyncJob) Start(ctx context.Context) error {
	if j.interval <= 0 {
		j.log.Infow("persistence resync disabled")
		return nil
	}
	if j.target == nil {
		return errors.New("resync job has no target")
	}

	if _, err := j.scheduler.Every(j.interval).WaitForSchedule().Do(j.RunOnce); err != nil {
		return fmt.Errorf("schedule persistence resync: %w", err)
	}
	j.scheduler.StartAsync()
	j.log.Infow("persistence resync scheduled", "interval", j.interval)

	go func() {
		<-ctx.Done()
		j.Stop()
	}()
	return nil
}

func (j *ResyncJob) Stop() {
	if j.scheduler.IsRunning() {
		j.scheduler.Stop()
		j.log.Infow("persistence resync stopped")
	}
}

// RunOnce performs a single resync check.
func (j *ResyncJob) RunOnce() {
	resynced := j.target.Resync()

	j.mu.Lock()
	j.runs++
	j.lastRunAt = time.Now()
	if resynced {
		j.resynced++
	}
	j.mu.Unlock()

	if resynced {
		j.log.Warnw("re-mirrored state after failed background write")
	}
}

// Stats reports how many times the job ran and how many runs re-mirrored state.
func (j *ResyncJob) Stats() (runs int, resynced int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs, j.resynced
}
