package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

type CacheResyncer interface {
	ResyncCache(ctx context.Context) (int, error)
}

type LeaderboardSyncer interface {
	SyncLeaderboard(ctx context.Context) (string, error)
}

// Scheduler runs the periodic housekeeping jobs: reloading the balance
// cache from the database and pushing the leaderboard to Google Sheets.
type Scheduler struct {
	ledger      CacheResyncer
	leaderboard LeaderboardSyncer
	interval    time.Duration
	logger      Logger

	sched    gocron.Scheduler
	done     chan struct{}
	stopOnce sync.Once
}

// NewScheduler builds the job runner. leaderboard may be nil when Sheets is
// not configured.
func NewScheduler(ledger CacheResyncer, leaderboard LeaderboardSyncer, interval time.Duration, logger Logger) *Scheduler {
	return &Scheduler{
		ledger:      ledger,
		leaderboard: leaderboard,
		interval:    interval,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

func (s *Scheduler) Init() error {
	if s.interval <= 0 {
		return fmt.Errorf("invalid autosave interval %s", s.interval)
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	s.sched = sched
	return nil
}

// Run registers the jobs against ctx and blocks until ctx is cancelled or
// Stop is called.
func (s *Scheduler) Run(ctx context.Context) error {
	jobs := map[string]func(){
		"balance-cache-resync": func() { s.resyncBalances(ctx) },
	}
	if s.leaderboard != nil {
		jobs["leaderboard-sync"] = func() { s.syncLeaderboard(ctx) }
	}

	for name, task := range jobs {
		_, err := s.sched.NewJob(
			gocron.DurationJob(s.interval),
			gocron.NewTask(task),
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", name, err)
		}
	}

	s.sched.Start()
	s.logger.Info("scheduler started with %d jobs every %s", len(jobs), s.interval)

	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.sched == nil {
			return
		}
		if err := s.sched.Shutdown(); err != nil {
			s.logger.Warn("scheduler shutdown: %v", err)
		}
	})
}

func (s *Scheduler) resyncBalances(ctx context.Context) {
	n, err := s.ledger.ResyncCache(ctx)
	if err != nil {
		s.logger.Error("balance cache resync failed: %v", err)
		return
	}
	s.logger.Debug("balance cache reloaded: %d entries", n)
}

func (s *Scheduler) syncLeaderboard(ctx context.Context) {
	url, err := s.leaderboard.SyncLeaderboard(ctx)
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		s.logger.Error("leaderboard sync failed: %v", err)
		return
	}
	s.logger.Debug("leaderboard synced to %s", url)
}
