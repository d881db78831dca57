package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JustinTDCT/GuessTheMovie/internal/jobs"
	"github.com/JustinTDCT/GuessTheMovie/internal/logging"
)

// Job is one periodic task.
type Job struct {
	Spec     string // cron spec, e.g. "@every 5m"
	TaskType string
	Payload  any
}

// DefaultJobs are the maintenance tasks the service always schedules.
func DefaultJobs() []Job {
	return []Job{
		{Spec: "@every 6h", TaskType: jobs.TaskWarmGenres, Payload: jobs.WarmGenresPayload{}},
		{Spec: "@every 5m", TaskType: jobs.TaskSweepSessions, Payload: jobs.SweepSessionsPayload{}},
	}
}

// Scheduler fires jobs on their cron schedule through a dispatcher.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher jobs.Dispatcher
	timeout    time.Duration
	log        *slog.Logger
}

func New(dispatcher jobs.Dispatcher, list []Job) (*Scheduler, error) {
	s := &Scheduler{
		cron:       cron.New(),
		dispatcher: dispatcher,
		timeout:    2 * time.Minute,
		log:        logging.Component("scheduler"),
	}
	for _, j := range list {
		if _, err := s.cron.AddFunc(j.Spec, func() { s.fire(j) }); err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", j.TaskType, j.Spec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) fire(j Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.dispatcher.Dispatch(ctx, j.TaskType, j.Payload); err != nil {
		s.log.Error("scheduled task failed", "task", j.TaskType, "error", err)
		return
	}
	s.log.Debug("scheduled task dispatched", "task", j.TaskType)
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running jobs, up to ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}
