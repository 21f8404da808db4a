// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/robfig/cron/v3"
)

// Job is a named unit of periodic work.
type Job interface {
	Name() string
	// Schedule is a cron spec, e.g. "@every 30m". Empty means on-demand only.
	Schedule() string
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	jobs []Job

	mu  sync.Mutex
	ctx context.Context
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		ctx:  context.Background(),
	}
}

// Register adds job and schedules it when it has a schedule. Overlapping
// runs of the same job are skipped.
func (s *Scheduler) Register(job Job) error {
	spec := job.Schedule()
	if spec == "" {
		s.jobs = append(s.jobs, job)
		logging.Info().Str("job", job.Name()).Msg("registered on-demand job")
		return nil
	}

	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		_ = s.execute(s.runContext(), job)
	}))
	if _, err := s.cron.AddJob(spec, wrapped); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.Name(), err)
	}
	s.jobs = append(s.jobs, job)
	logging.Info().Str("job", job.Name()).Str("schedule", spec).Msg("scheduled job")
	return nil
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	start := time.Now()
	log := logging.With().Str("job", job.Name()).Logger()

	if err := job.Run(ctx); err != nil {
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("job failed")
		return err
	}
	log.Debug().Dur("took", time.Since(start)).Msg("job completed")
	return nil
}

// Start runs the cron loop until ctx is cancelled. Jobs receive ctx, so a
// shutdown also interrupts a run in progress.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	logging.Info().Int("jobs", len(s.jobs)).Msg("job scheduler started")

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		logging.Info().Msg("job scheduler stopped")
	}()
}

// RunByName runs a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return s.execute(ctx, job)
		}
	}
	return fmt.Errorf("job %q not registered", name)
}

func (s *Scheduler) Names() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
