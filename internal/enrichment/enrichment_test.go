package enrichment

import (
	"context"
	"testing"
	"time"

	"github.com/netweather/weathermap/internal/config"
	"github.com/netweather/weathermap/internal/datasource"
	"github.com/netweather/weathermap/internal/sample"
	"github.com/netweather/weathermap/internal/topology"
)

var _ datasource.DataSource = (*fakeDS)(nil)

// fakeDS is a minimal, fully in-memory datasource.DataSource used to
// drive the enrichment engine without a live backend.
type fakeDS struct {
	nodes        map[string]sample.Node
	descriptions map[string]map[string]string
	rates        map[string]map[string]sample.Rate
	counters     map[string]map[string]sample.Counter
	optics       map[string]map[string]sample.Optic
	states       map[string]map[string]sample.StateSample

	historicRates  map[string]map[string][]sample.HistoricRate
	historicStates map[string]map[string][]sample.StateSample
}

func newFakeDS() *fakeDS {
	return &fakeDS{
		nodes:          map[string]sample.Node{},
		descriptions:   map[string]map[string]string{},
		rates:          map[string]map[string]sample.Rate{},
		counters:       map[string]map[string]sample.Counter{},
		optics:         map[string]map[string]sample.Optic{},
		states:         map[string]map[string]sample.StateSample{},
		historicRates:  map[string]map[string][]sample.HistoricRate{},
		historicStates: map[string]map[string][]sample.StateSample{},
	}
}

func (f *fakeDS) Tag() string { return "fake" }
func (f *fakeDS) GetNodes(ctx context.Context) (map[string]sample.Node, error) { return f.nodes, nil }
func (f *fakeDS) GetDescriptions(ctx context.Context, nodes []string) (map[string]map[string]string, error) {
	return f.descriptions, nil
}
func (f *fakeDS) GetStates(ctx context.Context, nodes []string) (map[string]map[string]sample.StateSample, error) {
	return f.states, nil
}
func (f *fakeDS) GetRates(ctx context.Context, nodes []string) (map[string]map[string]sample.Rate, error) {
	return f.rates, nil
}
func (f *fakeDS) GetOptics(ctx context.Context, nodes []string) (map[string]map[string]sample.Optic, error) {
	return f.optics, nil
}
func (f *fakeDS) GetCounters(ctx context.Context, nodes []string) (map[string]map[string]sample.Counter, error) {
	return f.counters, nil
}
func (f *fakeDS) GetHistoricStates(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.StateSample, error) {
	return f.historicStates, nil
}
func (f *fakeDS) GetHistoricRates(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.HistoricRate, error) {
	out := map[string]map[string][]sample.HistoricRate{}
	for node, perIface := range f.historicRates {
		out[node] = map[string][]sample.HistoricRate{}
		for iface, series := range perIface {
			var kept []sample.HistoricRate
			for _, r := range series {
				if !r.Timestamp.Before(start) && !r.Timestamp.After(end) {
					kept = append(kept, r)
				}
			}
			out[node][iface] = kept
		}
	}
	return out, nil
}
func (f *fakeDS) GetHistoricOptics(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.HistoricOptic, error) {
	return map[string]map[string][]sample.HistoricOptic{}, nil
}
func (f *fakeDS) GetHistoricCounters(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.Counter, error) {
	return map[string]map[string][]sample.Counter{}, nil
}

func testMatcher() *topology.Matcher {
	return topology.New(config.TopologyConfig{NodeSeparator: "-", NodeNumSegments: 1})
}

func setupLinkedPair(ds *fakeDS) {
	ds.nodes["node-a"] = sample.Node{Name: "node-a", SourceTag: "fake"}
	ds.nodes["node-b"] = sample.Node{Name: "node-b", SourceTag: "fake"}
	ds.descriptions["node-a"] = map[string]string{"Te1/1": "DC_node-b_Te1/1"}
	ds.descriptions["node-b"] = map[string]string{"Te1/1": "DC_node-a_Te1/1"}
}

func TestGetRatesFallsBackToReversedTargetSide(t *testing.T) {
	ds := newFakeDS()
	setupLinkedPair(ds)
	ds.rates["node-b"] = map[string]sample.Rate{"Te1/1": {InBps: 10, OutBps: 20, BandwidthBps: 1000, SourceTag: "fake"}}

	e, err := New(ds, testMatcher(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	links, err := e.GetRates(context.Background(), []string{"node"}, nil, false)
	if err != nil {
		t.Fatalf("GetRates: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected one link, got %d", len(links))
	}
	if links[0].InRateBps != 20 || links[0].OutRateBps != 10 {
		t.Fatalf("expected reversed target rate, got in=%v out=%v", links[0].InRateBps, links[0].OutRateBps)
	}
}

func TestGetRatesDropsLinkWithNoRateEitherSide(t *testing.T) {
	ds := newFakeDS()
	setupLinkedPair(ds)

	e, err := New(ds, testMatcher(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	links, err := e.GetRates(context.Background(), []string{"node"}, nil, false)
	if err != nil {
		t.Fatalf("GetRates: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected link dropped when no rate data exists, got %d", len(links))
	}
}

func TestGetRatesTimelineBisectingShortensSeries(t *testing.T) {
	ds := newFakeDS()
	setupLinkedPair(ds)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var series []sample.HistoricRate
	for i := 0; i < 12; i++ {
		series = append(series, sample.HistoricRate{
			Rate: sample.Rate{InBps: float64(i), Timestamp: now.Add(time.Duration(i-11) * time.Minute)},
			OK:   true,
		})
	}
	ds.historicRates["node-a"] = map[string][]sample.HistoricRate{"Te1/1": series}

	e, err := New(ds, testMatcher(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	full, err := e.GetRatesTimeline(context.Background(), []string{"node"}, nil, false, now.Add(-time.Hour), now, true)
	if err != nil {
		t.Fatalf("GetRatesTimeline: %v", err)
	}
	if len(full) != 1 || len(full[0].Snapshots) != 12 {
		t.Fatalf("expected one timeline of 12 snapshots, got %+v", full)
	}

	bisected, err := e.GetRatesTimeline(context.Background(), []string{"node"}, nil, false, now.Add(-5*time.Minute), now, true)
	if err != nil {
		t.Fatalf("GetRatesTimeline bisected: %v", err)
	}
	if len(bisected) != 1 || len(bisected[0].Snapshots) != 6 {
		t.Fatalf("expected a shorter bisected timeline, got %+v", bisected)
	}
}

func TestGetRatesTimelineNullPadsMissingState(t *testing.T) {
	ds := newFakeDS()
	setupLinkedPair(ds)

	now := time.Now()
	ds.historicRates["node-a"] = map[string][]sample.HistoricRate{"Te1/1": {
		{Rate: sample.Rate{InBps: 1, Timestamp: now.Add(-2 * time.Minute)}, OK: true},
		{Rate: sample.Rate{InBps: 2, Timestamp: now.Add(-time.Minute)}, OK: true},
	}}

	e, err := New(ds, testMatcher(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	timelines, err := e.GetRatesTimeline(context.Background(), []string{"node"}, nil, false, now.Add(-time.Hour), now, true)
	if err != nil {
		t.Fatalf("GetRatesTimeline: %v", err)
	}
	if len(timelines) != 1 || len(timelines[0].Snapshots) != 2 {
		t.Fatalf("expected sequence length to equal rate sample count, got %+v", timelines)
	}
	for _, snap := range timelines[0].Snapshots {
		if snap.HasState {
			t.Fatalf("expected no state data, got %+v", snap)
		}
		if !snap.HasRate {
			t.Fatalf("expected rate data present, got %+v", snap)
		}
	}
}

// TestGetRatesTimelineRetainsNullBucketAsPlaceholder verifies a bucket
// with no bandwidth sample still occupies its slot in the snapshot
// sequence rather than shifting every later index out of alignment.
func TestGetRatesTimelineRetainsNullBucketAsPlaceholder(t *testing.T) {
	ds := newFakeDS()
	setupLinkedPair(ds)

	now := time.Now()
	t0, t1, t2 := now.Add(-3*time.Minute), now.Add(-2*time.Minute), now.Add(-time.Minute)
	ds.historicRates["node-a"] = map[string][]sample.HistoricRate{"Te1/1": {
		{Rate: sample.Rate{InBps: 1, Timestamp: t0}, OK: true},
		{Rate: sample.Rate{Timestamp: t1}},
		{Rate: sample.Rate{InBps: 3, Timestamp: t2}, OK: true},
	}}

	e, err := New(ds, testMatcher(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	timelines, err := e.GetRatesTimeline(context.Background(), []string{"node"}, nil, false, now.Add(-time.Hour), now, true)
	if err != nil {
		t.Fatalf("GetRatesTimeline: %v", err)
	}
	if len(timelines) != 1 || len(timelines[0].Snapshots) != 3 {
		t.Fatalf("expected three snapshots (null bucket retained), got %+v", timelines)
	}
	snaps := timelines[0].Snapshots
	if !snaps[0].HasRate || snaps[0].InBps != 1 {
		t.Fatalf("expected first bucket to carry its rate, got %+v", snaps[0])
	}
	if snaps[1].HasRate {
		t.Fatalf("expected null bucket to have no rate, got %+v", snaps[1])
	}
	if !snaps[1].Timestamp.Equal(t1) {
		t.Fatalf("expected null bucket to keep its timestamp for alignment, got %v", snaps[1].Timestamp)
	}
	if !snaps[2].HasRate || snaps[2].InBps != 3 {
		t.Fatalf("expected third bucket to carry its rate at the unshifted index, got %+v", snaps[2])
	}
}
