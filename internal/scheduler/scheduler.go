// Package scheduler triggers the menu pipeline on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"canteen-menu/internal/common/logger"
	"canteen-menu/internal/pipeline"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule = "0 6 * * 1-5"
	DefaultTimezone = "Europe/Berlin"
)

// Job is one pipeline execution.
type Job interface {
	Run(ctx context.Context, trigger string) (pipeline.Result, error)
}

type Config struct {
	Schedule     string
	Location     *time.Location
	RunOnStartup bool
}

type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	location *time.Location
	job      Job
	startup  bool
	logger   logger.Logger
	base     context.Context
	startups sync.WaitGroup
}

func New(job Job, cfg Config, log logger.Logger) (*Scheduler, error) {
	spec := cfg.Schedule
	if spec == "" {
		spec = DefaultSchedule
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	log = log.WithFields(map[string]interface{}{"component": "scheduler"})
	cl := cronLogger{log: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		schedule: schedule,
		location: loc,
		job:      job,
		startup:  cfg.RunOnStartup,
		logger:   log,
		base:     context.Background(),
	}
	s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(pipeline.TriggerScheduler) }))
	return s, nil
}

// Start begins ticking. Runs use a context detached from ctx's cancellation
// so a shutdown never aborts an acquisition halfway.
func (s *Scheduler) Start(ctx context.Context) {
	s.base = context.WithoutCancel(ctx)
	s.cron.Start()
	s.logger.Info("scheduler started", map[string]interface{}{
		"nextRun":  s.NextAfter(time.Now()).Format(time.RFC3339),
		"location": s.location.String(),
	})
	if s.startup {
		s.startups.Add(1)
		go func() {
			defer s.startups.Done()
			s.run(pipeline.TriggerStartup)
		}()
	}
}

// Stop prevents new ticks and waits for running jobs, the startup run
// included, until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.startups.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped", nil)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// NextAfter reports the first scheduled run after t.
func (s *Scheduler) NextAfter(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

func (s *Scheduler) run(trigger string) {
	res, err := s.job.Run(s.base, trigger)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		s.logger.Info("tick skipped, previous run still active", map[string]interface{}{"trigger": trigger})
	case err != nil:
		// The runner has already logged and reported the diagnostic.
		s.logger.Debug("scheduled run failed", map[string]interface{}{"runId": res.RunID})
	default:
		s.logger.Info("scheduled run finished", map[string]interface{}{"runId": res.RunID, "dates": res.Dates})
	}
}

// cronLogger adapts the service logger to cron's logr-style interface.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := kvFields(keysAndValues)
	fields["error"] = err
	l.log.Error("cron: "+msg, fields)
}

func kvFields(kv []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
