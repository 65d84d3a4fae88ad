package announcer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FP2003/discord-birthday-bot/internal/config"
)

// Scheduler triggers a job on a cron expression in a fixed timezone.
// A tick is skipped while the previous run is still in progress.
type Scheduler struct {
	cron *cron.Cron
	spec string
	loc  *time.Location
	job  func(ctx context.Context)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler validates spec (standard five-field syntax or a descriptor such as @daily).
func NewScheduler(spec string, loc *time.Location, job func(ctx context.Context)) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		spec: spec,
		loc:  loc,
		job:  job,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(spec, func() { s.job(s.ctx) }); err != nil {
		s.cancel()
		return nil, fmt.Errorf("%s %q: %w", config.ErrAnnounceSchedule, spec, err)
	}
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()

	var next time.Time
	if entries := s.cron.Entries(); len(entries) > 0 {
		next = entries[0].Next
	}
	slog.Info(config.MsgSchedulerStart,
		config.LogKeyComponent, config.CompScheduler,
		config.LogKeySchedule, s.spec,
		config.LogKeyTimezone, s.loc.String(),
		config.LogKeyNext, next,
	)
}

// Stop prevents further ticks, cancels the running job's context and waits
// for it to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		slog.Info(config.MsgSchedulerStop, config.LogKeyComponent, config.CompScheduler)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// cronLogger routes robfig/cron's internal logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug(msg, append([]any{config.LogKeyComponent, config.CompScheduler}, keysAndValues...)...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error(msg, append([]any{config.LogKeyComponent, config.CompScheduler, config.LogKeyError, err}, keysAndValues...)...)
}
