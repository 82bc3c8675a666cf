package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger routes scheduler messages to zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

// StartAutoSync runs CheckForUpdates every Interval until StopAutoSync or
// until ctx is cancelled. Calling it while running does nothing. Ticks that
// fire while a check is still running are dropped.
func (s *Store) StartAutoSync(ctx context.Context) error {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()

	if s.scheduler != nil {
		return nil
	}

	logger := cronLogger{log: s.logger.Sugar()}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
	id, err := c.AddFunc(fmt.Sprintf("@every %s", s.cfg.Interval), func() {
		if ctx.Err() != nil {
			return
		}
		out := s.CheckForUpdates(ctx)
		s.logger.Debug("auto-sync check", zap.Stringer("outcome", out))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule auto-sync: %w", err)
	}
	c.Start()

	s.scheduler = c
	s.entry = id
	s.logger.Info("auto-sync started", zap.Duration("interval", s.cfg.Interval))
	return nil
}

// StopAutoSync removes the recurring check and waits for a running one to
// finish. Calling it when stopped does nothing.
func (s *Store) StopAutoSync() {
	s.cronMu.Lock()
	c := s.scheduler
	s.scheduler = nil
	s.entry = 0
	s.cronMu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("auto-sync stopped")
}

// AutoSyncRunning reports whether the recurring check is installed.
func (s *Store) AutoSyncRunning() bool {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	return s.scheduler != nil
}

// NextAutoSync returns the time of the next scheduled check, zero when
// stopped.
func (s *Store) NextAutoSync() (next time.Time) {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.scheduler == nil {
		return next
	}
	return s.scheduler.Entry(s.entry).Next
}

// SetAutoSyncInterval changes the interval and reschedules a running
// auto-sync with ctx.
func (s *Store) SetAutoSyncInterval(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("auto-sync interval must be positive, got %s", d)
	}

	s.cronMu.Lock()
	if s.cfg.Interval == d {
		s.cronMu.Unlock()
		return nil
	}
	s.cfg.Interval = d
	running := s.scheduler != nil
	s.cronMu.Unlock()

	if !running {
		return nil
	}
	s.StopAutoSync()
	return s.StartAutoSync(ctx)
}
