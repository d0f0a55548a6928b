// Package scheduler runs the periodic background jobs: the expiry reaper
// and the annual membership reset.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/service"
)

const (
	JobReaper          = "expiry-reaper"
	JobMembershipReset = "membership-reset"
)

// Sweeper cancels Pending bookings older than the hold timeout.
type Sweeper interface {
	SweepExpired(ctx context.Context, timeout time.Duration) (service.SweepResult, error)
}

// CycleResetter starts a new membership year.
type CycleResetter interface {
	ResetCycle(ctx context.Context) (int64, error)
}

type Config struct {
	ReaperInterval time.Duration
	HoldTimeout    time.Duration
	ResetCron      string // five-field crontab
	Location       *time.Location
	Locker         gocron.Locker // nil runs every job locally
}

type Scheduler struct {
	s   gocron.Scheduler
	log logrus.FieldLogger
}

// New registers both jobs. Neither job overlaps with its own previous run.
func New(cfg Config, reaper Sweeper, membership CycleResetter, log logrus.FieldLogger) (*Scheduler, error) {
	if cfg.ReaperInterval <= 0 {
		return nil, fmt.Errorf("scheduler: reaper interval must be positive, got %s", cfg.ReaperInterval)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	opts := []gocron.SchedulerOption{
		gocron.WithLocation(loc),
		gocron.WithLogger(logAdapter{log}),
	}
	if cfg.Locker != nil {
		opts = append(opts, gocron.WithDistributedLocker(cfg.Locker))
	}
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}
	sch := &Scheduler{s: s, log: log}

	_, err = s.NewJob(
		gocron.DurationJob(cfg.ReaperInterval),
		gocron.NewTask(sch.sweep, reaper, cfg.HoldTimeout),
		gocron.WithName(JobReaper),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: register %s: %w", JobReaper, err)
	}

	if cfg.ResetCron != "" {
		_, err = s.NewJob(
			gocron.CronJob(cfg.ResetCron, false),
			gocron.NewTask(sch.reset, membership),
			gocron.WithName(JobMembershipReset),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, fmt.Errorf("scheduler: register %s: %w", JobMembershipReset, err)
		}
	}
	return sch, nil
}

func (s *Scheduler) Start() { s.s.Start() }

// Shutdown waits for running jobs to finish.
func (s *Scheduler) Shutdown() error { return s.s.Shutdown() }

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	jobs := s.s.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) sweep(reaper Sweeper, timeout time.Duration) {
	res, err := reaper.SweepExpired(context.Background(), timeout)
	if err != nil {
		s.log.WithError(err).Error("reaper sweep failed")
		return
	}
	if res.Cancelled > 0 || res.Failed > 0 {
		s.log.WithFields(logrus.Fields{"cancelled": res.Cancelled, "failed": res.Failed}).Info("reaper sweep")
	}
}

func (s *Scheduler) reset(membership CycleResetter) {
	n, err := membership.ResetCycle(context.Background())
	if err != nil {
		s.log.WithError(err).Error("membership reset failed")
		return
	}
	s.log.WithField("customers", n).Info("membership cycle reset")
}

// logAdapter satisfies gocron.Logger.
type logAdapter struct{ l logrus.FieldLogger }

func (a logAdapter) Debug(msg string, args ...any) { a.l.WithField("args", args).Debug(msg) }
func (a logAdapter) Info(msg string, args ...any)  { a.l.WithField("args", args).Info(msg) }
func (a logAdapter) Warn(msg string, args ...any)  { a.l.WithField("args", args).Warn(msg) }
func (a logAdapter) Error(msg string, args ...any) { a.l.WithField("args", args).Error(msg) }
