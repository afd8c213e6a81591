package background

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"montoit/internal/jobs"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// jobTimeout bounds a single run of any job
const jobTimeout = 10 * time.Minute

// JobScheduler runs the maintenance tasks on their schedules
type JobScheduler struct {
	scheduler gocron.Scheduler
	tasks     *jobs.MaintenanceTasks
	logger    *zap.Logger
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler creates a scheduler in UTC (Abidjan time) with every job registered
func NewJobScheduler(tasks *jobs.MaintenanceTasks, logger *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		tasks:     tasks,
		logger:    logger,
		jobs:      make(map[string]gocron.Job),
	}

	if err := js.registerJobs(); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.logger.Info("Starting background job scheduler", zap.Int("jobs", len(js.jobs)))
	js.scheduler.Start()
}

// Stop waits for running jobs and stops the scheduler
func (js *JobScheduler) Stop() error {
	js.logger.Info("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func daily(hour uint) gocron.JobDefinition {
	return gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, 0, 0)))
}

// schedules of each job; the daily ones run at night
func schedules() map[string]gocron.JobDefinition {
	return map[string]gocron.JobDefinition{
		jobs.JobLeaseExpiry:       gocron.DurationJob(time.Hour),
		jobs.JobRentOverdue:       daily(6),
		jobs.JobMandateExpiry:     daily(1),
		jobs.JobMFAGraceReminders: daily(8),
		jobs.JobRateLimitPurge:    daily(3),
	}
}

func (js *JobScheduler) registerJobs() error {
	tasks := js.tasks.Tasks()
	for name, definition := range schedules() {
		task, ok := tasks[name]
		if !ok {
			return fmt.Errorf("no task for job %q", name)
		}

		job, err := js.scheduler.NewJob(
			definition,
			gocron.NewTask(js.wrap(name, task)),
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to create job %s: %w", name, err)
		}
		js.jobs[name] = job
	}

	js.logger.Info("Registered background jobs", zap.Int("count", len(js.jobs)))
	return nil
}

// wrap adds a timeout and outcome logging around a task
func (js *JobScheduler) wrap(name string, task func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := task(ctx); err != nil {
			js.logger.Error("Background job failed", zap.String("job", name), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
			return
		}
		js.logger.Info("Background job completed", zap.String("job", name), zap.Duration("elapsed", time.Since(start)))
	}
}

// GetJobStatus returns the registered jobs with their next run
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	next := make(map[string]string, len(js.jobs))
	for name, job := range js.jobs {
		names = append(names, name)
		if at, err := job.NextRun(); err == nil && !at.IsZero() {
			next[name] = at.UTC().Format(time.RFC3339)
		}
	}
	sort.Strings(names)

	return map[string]interface{}{
		"total_jobs": len(names),
		"jobs":       names,
		"next_runs":  next,
	}
}
