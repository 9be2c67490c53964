// Package scheduler runs the periodic expiry sweep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hominio/cups/internal/service"
	"github.com/robfig/cron/v3"
)

type Sweeper interface {
	SweepAll(ctx context.Context) (service.SweepResult, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
}

// New registers the sweep under a standard five-field cron expression or a
// descriptor such as "@every 1m".
func New(schedule string, sweeper Sweeper) (*Scheduler, error) {
	s := &Scheduler{sweeper: sweeper, timeout: time.Minute}

	logger := slogLogger{}
	s.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid expiry sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		slog.Warn("expiry sweep still running at shutdown")
	}
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.sweeper.SweepAll(ctx)
	if err != nil {
		slog.Error("expiry sweep failed", "error", err)
		return
	}
	if result.MatchesClosed > 0 || result.CupsClosed > 0 {
		slog.Info("expiry sweep closed items", "matches", result.MatchesClosed, "cups", result.CupsClosed)
	}
}

type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
