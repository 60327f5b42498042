package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Expirer marks cards past their expiration date as EXPIRED.
// service.CardService satisfies it.
type Expirer interface {
	ExpireDue(ctx context.Context) (int64, error)
}

// ExpirySweeper runs Expirer.ExpireDue on a cron schedule.
type ExpirySweeper struct {
	cron       *cron.Cron
	expirer    Expirer
	schedule   string
	ctx        context.Context
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewExpirySweeper creates a sweeper for schedule, a standard five-field
// cron spec or a descriptor such as "@daily" or "@every 1h".
func NewExpirySweeper(schedule string, expirer Expirer, logger *slog.Logger) (*ExpirySweeper, error) {
	if expirer == nil {
		return nil, fmt.Errorf("expirer cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "expiry_sweeper"))

	cronLog := &slogCronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &ExpirySweeper{
		cron:       c,
		expirer:    expirer,
		schedule:   schedule,
		ctx:        ctx,
		cancelFunc: cancel,
		logger:     logger,
	}

	if _, err := c.AddFunc(schedule, s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid expiry sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running the sweep in the background.
func (s *ExpirySweeper) Start() {
	s.logger.Info("expiry sweeper started", slog.String("schedule", s.schedule))
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish or for
// ctx to be done, whichever comes first.
func (s *ExpirySweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	defer s.cancelFunc()

	select {
	case <-done.Done():
		s.logger.Info("expiry sweeper stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for expiry sweep to finish: %w", ctx.Err())
	}
}

// RunOnce performs one sweep and returns the number of cards expired.
func (s *ExpirySweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.expirer.ExpireDue(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", slog.String("error", err.Error()))
		return 0, err
	}
	s.logger.Info("expiry sweep finished", slog.Int64("expired", n))
	return n, nil
}

func (s *ExpirySweeper) run() {
	_, _ = s.RunOnce(s.ctx)
}

// slogCronLogger adapts cron.Logger to slog.
type slogCronLogger struct {
	logger *slog.Logger
}

var _ cron.Logger = (*slogCronLogger)(nil)

func (l *slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err.Error()}, keysAndValues...)...)
}
