package scheduler

import (
	"context"
	"fmt"
	"time"

	"UD_referral_bot/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one run of a recurring task.
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron specs in a fixed time zone. A job that is still running
// when its next tick fires is skipped for that tick.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}

	cl := cronLogger{log: logger.Named("scheduler").Sugar()}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job under name. Each run gets at most timeout, or no limit when
// timeout is zero.
func (s *Scheduler) Add(name, spec string, timeout time.Duration, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		_ = RunOnce(s.ctx, name, timeout, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s with %q: %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops new runs and waits for running jobs until ctx is done, after which
// their contexts are cancelled.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Named("scheduler").Warn("jobs still running at shutdown, cancelling")
	}
	s.cancel()
}

// RunOnce runs job a single time and logs how it ended.
func RunOnce(ctx context.Context, name string, timeout time.Duration, job Job) error {
	log := logger.Named("scheduler").With(zap.String("job", name))

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now()
	if err := job(ctx); err != nil {
		log.Error("job failed",
			zap.Duration("duration", time.Since(started)),
			zap.Error(err))
		return err
	}

	log.Info("job finished", zap.Duration("duration", time.Since(started)))
	return nil
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
