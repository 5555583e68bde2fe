// Package merge fans a DataSource call out to every registered backend in
// parallel and combines their results, first-registered-backend-wins.
package merge

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/netweather/weathermap/internal/datasource"
	"github.com/netweather/weathermap/internal/sample"
)

const (
	pointQueryTimeout    = 15 * time.Second
	historicQueryTimeout = 60 * time.Second
	slowBackendThreshold = 100 * time.Millisecond
)

// Merged is a DataSource that combines every backend passed to New, in the
// order given. Backend order determines merge precedence: the first
// backend to produce a value for a given key wins.
type Merged struct {
	backends []datasource.DataSource
	logger   *zap.SugaredLogger
}

// New builds a Merged facade over backends, preserving their order.
func New(backends []datasource.DataSource, logger *zap.SugaredLogger) *Merged {
	return &Merged{backends: backends, logger: logger}
}

func (m *Merged) Tag() string { return "merged" }

// Backends returns the ordered backend list, exposed so the Engine can hand
// it to the Matcher and Enrichment layers without re-threading config.
func (m *Merged) Backends() []datasource.DataSource { return m.backends }

// fanoutResult is one backend's outcome, captured for deterministic,
// order-preserving merge after every goroutine has finished.
type fanoutResult[T any] struct {
	value    T
	err      error
	duration time.Duration
}

// fanout runs call against every backend concurrently, each under its own
// timeout, and returns every backend's result in backend-registration
// order once all have completed (or timed out).
func fanout[T any](ctx context.Context, backends []datasource.DataSource, timeout time.Duration, call func(context.Context, datasource.DataSource) (T, error)) []fanoutResult[T] {
	results := make([]fanoutResult[T], len(backends))
	g, gctx := errgroup.WithContext(ctx)
	for i, backend := range backends {
		i, backend := i, backend
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			start := time.Now()
			v, err := call(taskCtx, backend)
			results[i] = fanoutResult[T]{value: v, err: err, duration: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (m *Merged) logSlowBackends(op string, backends []datasource.DataSource, durations []time.Duration) {
	if m.logger == nil {
		return
	}
	for i := 1; i < len(durations); i++ {
		if durations[i] >= durations[i-1]+slowBackendThreshold {
			m.logger.Warnw("merge: backend slower than predecessor",
				"op", op,
				"backend", backends[i].Tag(),
				"duration", durations[i],
				"predecessor", backends[i-1].Tag(),
				"predecessor_duration", durations[i-1],
			)
		}
	}
}

func durationsOf[T any](results []fanoutResult[T]) []time.Duration {
	out := make([]time.Duration, len(results))
	for i, r := range results {
		out[i] = r.duration
	}
	return out
}

func (m *Merged) GetNodes(ctx context.Context) (map[string]sample.Node, error) {
	results := fanout(ctx, m.backends, pointQueryTimeout, func(c context.Context, b datasource.DataSource) (map[string]sample.Node, error) {
		return b.GetNodes(c)
	})
	m.logSlowBackends("GetNodes", m.backends, durationsOf(results))

	out := make(map[string]sample.Node)
	for _, r := range results {
		if r.err != nil || r.value == nil {
			continue
		}
		for name, node := range r.value {
			if _, exists := out[name]; !exists {
				out[name] = node
			}
		}
	}
	return out, nil
}

// mergeNested combines a slice of per-backend node->key->value maps,
// first-backend-wins at the (node, key) granularity.
func mergeNested[V any](results []fanoutResult[map[string]map[string]V]) map[string]map[string]V {
	out := make(map[string]map[string]V)
	for _, r := range results {
		if r.err != nil || r.value == nil {
			continue
		}
		for node, perIface := range r.value {
			dst, ok := out[node]
			if !ok {
				dst = make(map[string]V)
				out[node] = dst
			}
			for iface, v := range perIface {
				if _, exists := dst[iface]; !exists {
					dst[iface] = v
				}
			}
		}
	}
	return out
}

func (m *Merged) GetDescriptions(ctx context.Context, nodes []string) (map[string]map[string]string, error) {
	results := fanout(ctx, m.backends, pointQueryTimeout, func(c context.Context, b datasource.DataSource) (map[string]map[string]string, error) {
		return b.GetDescriptions(c, nodes)
	})
	m.logSlowBackends("GetDescriptions", m.backends, durationsOf(results))
	return mergeNested(results), nil
}

func (m *Merged) GetStates(ctx context.Context, nodes []string) (map[string]map[string]sample.StateSample, error) {
	results := fanout(ctx, m.backends, pointQueryTimeout, func(c context.Context, b datasource.DataSource) (map[string]map[string]sample.StateSample, error) {
		return b.GetStates(c, nodes)
	})
	m.logSlowBackends("GetStates", m.backends, durationsOf(results))
	return mergeNested(results), nil
}

func (m *Merged) GetRates(ctx context.Context, nodes []string) (map[string]map[string]sample.Rate, error) {
	results := fanout(ctx, m.backends, pointQueryTimeout, func(c context.Context, b datasource.DataSource) (map[string]map[string]sample.Rate, error) {
		return b.GetRates(c, nodes)
	})
	m.logSlowBackends("GetRates", m.backends, durationsOf(results))
	return mergeNested(results), nil
}

func (m *Merged) GetOptics(ctx context.Context, nodes []string) (map[string]map[string]sample.Optic, error) {
	results := fanout(ctx, m.backends, pointQueryTimeout, func(c context.Context, b datasource.DataSource) (map[string]map[string]sample.Optic, error) {
		return b.GetOptics(c, nodes)
	})
	m.logSlowBackends("GetOptics", m.backends, durationsOf(results))
	return mergeNested(results), nil
}

func (m *Merged) GetCounters(ctx context.Context, nodes []string) (map[string]map[string]sample.Counter, error) {
	results := fanout(ctx, m.backends, pointQueryTimeout, func(c context.Context, b datasource.DataSource) (map[string]map[string]sample.Counter, error) {
		return b.GetCounters(c, nodes)
	})
	m.logSlowBackends("GetCounters", m.backends, durationsOf(results))
	return mergeNested(results), nil
}

// mergeNestedSeries combines per-backend node->key->[]value historic
// results the same way mergeNested does for point results.
func mergeNestedSeries[V any](results []fanoutResult[map[string]map[string][]V]) map[string]map[string][]V {
	out := make(map[string]map[string][]V)
	for _, r := range results {
		if r.err != nil || r.value == nil {
			continue
		}
		for node, perIface := range r.value {
			dst, ok := out[node]
			if !ok {
				dst = make(map[string][]V)
				out[node] = dst
			}
			for iface, v := range perIface {
				if _, exists := dst[iface]; !exists {
					dst[iface] = v
				}
			}
		}
	}
	return out
}

func (m *Merged) GetHistoricStates(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.StateSample, error) {
	results := fanout(ctx, m.backends, historicQueryTimeout, func(c context.Context, b datasource.DataSource) (map[string]map[string][]sample.StateSample, error) {
		return b.GetHistoricStates(c, nodes, start, end, shortInterval)
	})
	m.logSlowBackends("GetHistoricStates", m.backends, durationsOf(results))
	return mergeNestedSeries(results), nil
}

func (m *Merged) GetHistoricRates(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.HistoricRate, error) {
	results := fanout(ctx, m.backends, historicQueryTimeout, func(c context.Context, b datasource.DataSource) (map[string]map[string][]sample.HistoricRate, error) {
		return b.GetHistoricRates(c, nodes, start, end, shortInterval)
	})
	m.logSlowBackends("GetHistoricRates", m.backends, durationsOf(results))
	return mergeNestedSeries(results), nil
}

func (m *Merged) GetHistoricOptics(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.HistoricOptic, error) {
	results := fanout(ctx, m.backends, historicQueryTimeout, func(c context.Context, b datasource.DataSource) (map[string]map[string][]sample.HistoricOptic, error) {
		return b.GetHistoricOptics(c, nodes, start, end, shortInterval)
	})
	m.logSlowBackends("GetHistoricOptics", m.backends, durationsOf(results))
	return mergeNestedSeries(results), nil
}

func (m *Merged) GetHistoricCounters(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.Counter, error) {
	results := fanout(ctx, m.backends, historicQueryTimeout, func(c context.Context, b datasource.DataSource) (map[string]map[string][]sample.Counter, error) {
		return b.GetHistoricCounters(c, nodes, start, end, shortInterval)
	})
	m.logSlowBackends("GetHistoricCounters", m.backends, durationsOf(results))
	return mergeNestedSeries(results), nil
}

var _ datasource.DataSource = (*Merged)(nil)
