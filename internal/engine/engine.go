// Package engine owns the process's top-level wiring: the merged
// datasource registry, the topology matcher, the enrichment engine, and
// the background scheduler, constructed once from Config and passed
// explicitly to the HTTP layer. Grounded on
// internal/topology/pool.go's GlobalNodePool: one owned-state struct,
// built once, handed to every consumer rather than reached through a
// package global.
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/netweather/weathermap/internal/config"
	"github.com/netweather/weathermap/internal/datasource"
	"github.com/netweather/weathermap/internal/enrichment"
	"github.com/netweather/weathermap/internal/maps"
	"github.com/netweather/weathermap/internal/merge"
	"github.com/netweather/weathermap/internal/scheduler"
	"github.com/netweather/weathermap/internal/snmp"
	"github.com/netweather/weathermap/internal/topology"
	"github.com/netweather/weathermap/internal/tsdb"
	"github.com/netweather/weathermap/internal/wmerrors"
)

// Engine is the process's single owned-state object.
type Engine struct {
	Config     *config.Config
	Logger     *zap.SugaredLogger
	DataSource datasource.DataSource
	Matcher    *topology.Matcher
	Enrichment *enrichment.Engine
	Maps       *maps.Reader
	Scheduler  *scheduler.Scheduler

	closers []func()
}

// New builds the full Engine from cfg. At least one of cfg.TSDB/cfg.SNMP
// must be enabled (LoadEnvConfig already enforces this); New returns
// ErrConfigurationMissing if both end up disabled anyway, as a defense
// against a hand-built Config bypassing that check.
func New(cfg *config.Config, logger *zap.SugaredLogger) (*Engine, error) {
	var backends []datasource.DataSource
	var closers []func()

	if cfg.TSDB.Enabled {
		client := tsdb.NewClient(cfg.TSDB, cfg.TSDB.Org, cfg.TSDB.AuthToken, logger)
		backends = append(backends, client)
		closers = append(closers, client.Close)
	}
	if cfg.SNMP.Enabled {
		client := snmp.NewClient(cfg.SNMP, logger)
		backends = append(backends, client)
		closers = append(closers, client.Close)
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("engine: no datasource backend enabled: %w", wmerrors.ErrConfigurationMissing)
	}

	merged := merge.New(backends, logger)
	matcher := topology.New(cfg.Topology)

	enrich, err := enrichment.New(merged, matcher, logger)
	if err != nil {
		return nil, fmt.Errorf("engine: building enrichment engine: %w", err)
	}

	catalog, err := maps.NewReader(cfg.MapsCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("engine: loading maps catalog: %w", err)
	}

	sched := scheduler.New(scheduler.Config{
		WarmRefresher:          enrich,
		WarmRefreshInterval:    cfg.SchedulerWarmRefreshInterval,
		CronSchedule: cfg.VerificationErrorCronSchedule,
		VerificationErrorFlush: func() {
			if csv, err := matcher.ErrorsCSV(); err == nil && logger != nil {
				logger.Infow("scheduler: flushing verification error log", "csv_bytes", len(csv))
			}
			matcher.ResetDiscoverErrors()
		},
		Logger: logger,
	})

	return &Engine{
		Config:     cfg,
		Logger:     logger,
		DataSource: merged,
		Matcher:    matcher,
		Enrichment: enrich,
		Maps:       catalog,
		Scheduler:  sched,
		closers:    closers,
	}, nil
}

// Start launches the background scheduler. The SNMP poll loop isn't
// scheduler-owned: snmp.NewClient already starts it at construction
// time, since the backend has no useful existence without live data.
// The Scheduler here only owns the warm-refresh loop and cron jobs.
func (e *Engine) Start() {
	e.Scheduler.Start()
}

// Stop drains the scheduler and closes every backend.
func (e *Engine) Stop() {
	e.Scheduler.Stop()
	for _, closeFn := range e.closers {
		closeFn()
	}
}
