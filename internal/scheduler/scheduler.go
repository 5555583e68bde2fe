// Package scheduler owns background loops: an optional Poller, the
// enrichment cache warm-refresh, and cron-scheduled maintenance jobs. A stopCh/WaitGroup pair gates every goroutine so
// Stop never returns before the last one has exited.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/netweather/weathermap/internal/scanloop"
)

// Poller is the subset of snmp.Poller the scheduler drives.
type Poller interface {
	Start()
	Stop()
}

// WarmRefresher is the subset of enrichment.Engine the scheduler uses to
// pre-populate the link/remote TTL caches before the first inbound
// request pays discovery latency.
type WarmRefresher interface {
	WarmRefresh(ctx context.Context) error
}

// Config configures a Scheduler.
type Config struct {
	Poller              Poller // optional; nil when no poll loop is scheduler-driven
	WarmRefresher       WarmRefresher
	WarmRefreshInterval time.Duration
	CronSchedule        string // robfig/cron expression for VerificationErrorFlush
	VerificationErrorFlush func()
	Logger              *zap.SugaredLogger
}

// Scheduler owns its configured background loops: a Poller when one is
// set, a jittered warm-refresh loop over
// the enrichment caches, and a robfig/cron schedule for maintenance
// jobs.
type Scheduler struct {
	cfg    Config
	stopCh chan struct{}
	wg     sync.WaitGroup
	cron   *cron.Cron
}

// New builds a Scheduler. It does not start any loop until Start is
// called.
func New(cfg Config) *Scheduler {
	if cfg.WarmRefreshInterval <= 0 {
		cfg.WarmRefreshInterval = 5 * time.Minute
	}
	return &Scheduler{cfg: cfg, stopCh: make(chan struct{})}
}

// Start launches every configured background loop. Safe to call once;
// a second call after Stop requires building a new Scheduler.
func (s *Scheduler) Start() {
	if s.cfg.Poller != nil {
		s.cfg.Poller.Start()
	}

	if s.cfg.WarmRefresher != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			scanloop.Run(s.stopCh, s.cfg.WarmRefreshInterval, s.cfg.WarmRefreshInterval/10, func() {
				ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WarmRefreshInterval)
				defer cancel()
				if err := s.cfg.WarmRefresher.WarmRefresh(ctx); err != nil && s.cfg.Logger != nil {
					s.cfg.Logger.Warnw("scheduler: warm refresh failed", "error", err)
				}
			})
		}()
	}

	if s.cfg.CronSchedule != "" && s.cfg.VerificationErrorFlush != nil {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.cfg.VerificationErrorFlush); err != nil && s.cfg.Logger != nil {
			s.cfg.Logger.Errorw("scheduler: invalid cron schedule, maintenance job disabled", "schedule", s.cfg.CronSchedule, "error", err)
			s.cron = nil
			return
		}
		s.cron.Start()
	}
}

// Stop signals every loop to exit and waits for all of them, including
// the Poller, to finish. Safe to call even if Start launched no loop at
// all.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	close(s.stopCh)
	s.wg.Wait()
	if s.cfg.Poller != nil {
		s.cfg.Poller.Stop()
	}
}
