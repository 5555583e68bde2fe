package enrichment

import (
	"context"
	"strings"
	"time"

	"github.com/netweather/weathermap/internal/sample"
)

// LinkSnapshot is one timestamped slice of a Link's timeline: the
// measurements present at that point, with Has* flags distinguishing "no
// sample at this step" from "the zero value".
type LinkSnapshot struct {
	Timestamp time.Time

	HasState bool
	State    sample.State

	HasRate      bool
	InBps        float64
	OutBps       float64
	BandwidthBps float64

	HasSourceOptic bool
	SourceOptic    sample.Optic
	HasTargetOptic bool
	TargetOptic    sample.Optic
}

// LinkTimeline is a time-ordered sequence of snapshots for one link.
type LinkTimeline struct {
	Source sample.Interface
	Target sample.Interface

	Snapshots []LinkSnapshot
}

func historicBatch[V any](fetch func(ctx context.Context, node string) (map[string][]V, error)) *batch[[]V] {
	return newBatch(func(ctx context.Context, node string) (map[string][]V, error) {
		return fetch(ctx, node)
	})
}

func (e *Engine) historicRateBatch(start, end time.Time, shortInterval bool) *batch[[]sample.HistoricRate] {
	return historicBatch(func(ctx context.Context, node string) (map[string][]sample.HistoricRate, error) {
		res, err := e.ds.GetHistoricRates(ctx, []string{node}, start, end, shortInterval)
		if err != nil {
			return nil, err
		}
		return res[node], nil
	})
}

func (e *Engine) historicStateBatch(start, end time.Time, shortInterval bool) *batch[[]sample.StateSample] {
	return historicBatch(func(ctx context.Context, node string) (map[string][]sample.StateSample, error) {
		res, err := e.ds.GetHistoricStates(ctx, []string{node}, start, end, shortInterval)
		if err != nil {
			return nil, err
		}
		return res[node], nil
	})
}

func (e *Engine) historicOpticBatch(start, end time.Time, shortInterval bool) *batch[[]sample.HistoricOptic] {
	return historicBatch(func(ctx context.Context, node string) (map[string][]sample.HistoricOptic, error) {
		res, err := e.ds.GetHistoricOptics(ctx, []string{node}, start, end, shortInterval)
		if err != nil {
			return nil, err
		}
		return res[node], nil
	})
}

func reverseAll(rates []sample.HistoricRate) []sample.HistoricRate {
	out := make([]sample.HistoricRate, len(rates))
	for i, r := range rates {
		out[i] = r.Reverse()
	}
	return out
}

func opticSeriesForSuffix[V any](series map[string][]V, interfaceID string) []V {
	for key, s := range series {
		if strings.HasSuffix(interfaceID, key) {
			return s
		}
	}
	return nil
}

// GetRatesTimeline zips each link's historic rate and state sequences
// into a sequence of snapshots. A missing source-side rate series falls
// back to the reversed target-side series, same as GetRates, unless
// remotes is set.
func (e *Engine) GetRatesTimeline(ctx context.Context, nodes, remotes []string, skipSelf bool, start, end time.Time, shortInterval bool) ([]LinkTimeline, error) {
	links, err := e.linksFor(ctx, nodes, remotes, skipSelf)
	if err != nil {
		return nil, err
	}
	rates := e.historicRateBatch(start, end, shortInterval)
	states := e.historicStateBatch(start, end, shortInterval)

	out := make([]LinkTimeline, 0, len(links))
	for _, link := range links {
		srcRates, _ := rates.get(ctx, link.Source.Node)
		series := srcRates[link.Source.InterfaceID]
		if len(series) == 0 && len(remotes) == 0 {
			if tgtRates, _ := rates.get(ctx, link.Target.Node); tgtRates != nil {
				series = reverseAll(tgtRates[link.Target.InterfaceID])
			}
		}
		srcStates, _ := states.get(ctx, link.Source.Node)
		stateSeries := srcStates[link.Source.InterfaceID]

		n := len(series)
		if len(stateSeries) > n {
			n = len(stateSeries)
		}
		if n == 0 {
			continue
		}

		snapshots := make([]LinkSnapshot, n)
		for i := 0; i < n; i++ {
			var snap LinkSnapshot
			if i < len(series) {
				r := series[i]
				if r.OK {
					snap.HasRate = true
					snap.InBps, snap.OutBps, snap.BandwidthBps = r.InBps, r.OutBps, r.BandwidthBps
				}
				snap.Timestamp = r.Timestamp
			}
			if i < len(stateSeries) {
				s := stateSeries[i]
				snap.HasState = true
				snap.State = s.Value
				if snap.Timestamp.IsZero() {
					snap.Timestamp = s.Timestamp
				}
			}
			snapshots[i] = snap
		}
		out = append(out, LinkTimeline{Source: link.Source, Target: link.Target, Snapshots: snapshots})
	}
	return out, nil
}

// GetOpticsTimeline zips each link's historic source-optic,
// target-optic, and source-state sequences, joining the optics series by
// the "ends-with" numeric-suffix rule GetOptics uses for point samples.
func (e *Engine) GetOpticsTimeline(ctx context.Context, nodes, remotes []string, skipSelf bool, start, end time.Time, shortInterval bool) ([]LinkTimeline, error) {
	links, err := e.linksFor(ctx, nodes, remotes, skipSelf)
	if err != nil {
		return nil, err
	}
	optics := e.historicOpticBatch(start, end, shortInterval)
	states := e.historicStateBatch(start, end, shortInterval)

	out := make([]LinkTimeline, 0, len(links))
	for _, link := range links {
		srcOpticsByKey, _ := optics.get(ctx, link.Source.Node)
		srcSeries := opticSeriesForSuffix(srcOpticsByKey, link.Source.InterfaceID)

		var tgtSeries []sample.HistoricOptic
		if len(remotes) == 0 {
			tgtOpticsByKey, _ := optics.get(ctx, link.Target.Node)
			tgtSeries = opticSeriesForSuffix(tgtOpticsByKey, link.Target.InterfaceID)
		}

		srcStates, _ := states.get(ctx, link.Source.Node)
		stateSeries := srcStates[link.Source.InterfaceID]

		n := len(srcSeries)
		if len(tgtSeries) > n {
			n = len(tgtSeries)
		}
		if len(stateSeries) > n {
			n = len(stateSeries)
		}
		if n == 0 {
			continue
		}

		snapshots := make([]LinkSnapshot, n)
		for i := 0; i < n; i++ {
			var snap LinkSnapshot
			if i < len(srcSeries) {
				if srcSeries[i].OK {
					snap.HasSourceOptic = true
					snap.SourceOptic = srcSeries[i].Optic
				}
				snap.Timestamp = srcSeries[i].Timestamp
			}
			if i < len(tgtSeries) {
				if tgtSeries[i].OK {
					snap.HasTargetOptic = true
					snap.TargetOptic = tgtSeries[i].Optic
				}
				if snap.Timestamp.IsZero() {
					snap.Timestamp = tgtSeries[i].Timestamp
				}
			}
			if i < len(stateSeries) {
				snap.HasState = true
				snap.State = stateSeries[i].Value
				if snap.Timestamp.IsZero() {
					snap.Timestamp = stateSeries[i].Timestamp
				}
			}
			snapshots[i] = snap
		}
		out = append(out, LinkTimeline{Source: link.Source, Target: link.Target, Snapshots: snapshots})
	}
	return out, nil
}
