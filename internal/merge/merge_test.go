package merge

import (
	"context"
	"testing"
	"time"

	"github.com/netweather/weathermap/internal/datasource"
	"github.com/netweather/weathermap/internal/sample"
)

// fakeBackend is a minimal DataSource stub: only the methods under test
// return interesting data, the rest return empty results.
type fakeBackend struct {
	tagName string
	nodes   map[string]sample.Node
	delay   time.Duration
}

func (f *fakeBackend) Tag() string { return f.tagName }

func (f *fakeBackend) GetNodes(ctx context.Context) (map[string]sample.Node, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.nodes, nil
}

func (f *fakeBackend) GetDescriptions(ctx context.Context, nodes []string) (map[string]map[string]string, error) {
	return map[string]map[string]string{}, nil
}
func (f *fakeBackend) GetStates(ctx context.Context, nodes []string) (map[string]map[string]sample.StateSample, error) {
	return map[string]map[string]sample.StateSample{}, nil
}
func (f *fakeBackend) GetRates(ctx context.Context, nodes []string) (map[string]map[string]sample.Rate, error) {
	return map[string]map[string]sample.Rate{}, nil
}
func (f *fakeBackend) GetOptics(ctx context.Context, nodes []string) (map[string]map[string]sample.Optic, error) {
	return map[string]map[string]sample.Optic{}, nil
}
func (f *fakeBackend) GetCounters(ctx context.Context, nodes []string) (map[string]map[string]sample.Counter, error) {
	return map[string]map[string]sample.Counter{}, nil
}
func (f *fakeBackend) GetHistoricStates(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.StateSample, error) {
	return map[string]map[string][]sample.StateSample{}, nil
}
func (f *fakeBackend) GetHistoricRates(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.HistoricRate, error) {
	return map[string]map[string][]sample.HistoricRate{}, nil
}
func (f *fakeBackend) GetHistoricOptics(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.HistoricOptic, error) {
	return map[string]map[string][]sample.HistoricOptic{}, nil
}
func (f *fakeBackend) GetHistoricCounters(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.Counter, error) {
	return map[string]map[string][]sample.Counter{}, nil
}

var _ datasource.DataSource = (*fakeBackend)(nil)

func TestGetNodesFirstBackendWins(t *testing.T) {
	a := &fakeBackend{tagName: "tsdb", nodes: map[string]sample.Node{
		"core-rtr-01": {Name: "core-rtr-01", SourceTag: "tsdb"},
	}}
	b := &fakeBackend{tagName: "snmp", nodes: map[string]sample.Node{
		"core-rtr-01": {Name: "core-rtr-01", SourceTag: "snmp"},
		"core-rtr-02": {Name: "core-rtr-02", SourceTag: "snmp"},
	}}
	m := New([]datasource.DataSource{a, b}, nil)

	nodes, err := m.GetNodes(context.Background())
	if err != nil {
		t.Fatalf("GetNodes: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 merged nodes, got %d", len(nodes))
	}
	if nodes["core-rtr-01"].SourceTag != "tsdb" {
		t.Fatalf("expected tsdb (first-registered) to win, got %+v", nodes["core-rtr-01"])
	}
	if nodes["core-rtr-02"].SourceTag != "snmp" {
		t.Fatalf("expected snmp-only node to survive, got %+v", nodes["core-rtr-02"])
	}
}

func TestGetNodesIncludesSlowBackendWithinDeadline(t *testing.T) {
	fast := &fakeBackend{tagName: "fast", nodes: map[string]sample.Node{"a": {Name: "a", SourceTag: "fast"}}}
	slow := &fakeBackend{tagName: "slow", delay: 50 * time.Millisecond, nodes: map[string]sample.Node{"b": {Name: "b", SourceTag: "slow"}}}
	m := New([]datasource.DataSource{fast, slow}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	nodes, err := m.GetNodes(ctx)
	if err != nil {
		t.Fatalf("GetNodes: %v", err)
	}
	if _, ok := nodes["a"]; !ok {
		t.Fatalf("expected fast backend's node present: %v", nodes)
	}
	if _, ok := nodes["b"]; !ok {
		t.Fatalf("expected slow backend's node present once it completes within timeout: %v", nodes)
	}
}

func TestBackendsReturnsOriginalOrder(t *testing.T) {
	a := &fakeBackend{tagName: "tsdb"}
	b := &fakeBackend{tagName: "snmp"}
	m := New([]datasource.DataSource{a, b}, nil)
	backends := m.Backends()
	if backends[0].Tag() != "tsdb" || backends[1].Tag() != "snmp" {
		t.Fatalf("got %v", backends)
	}
}

func TestTagIsMerged(t *testing.T) {
	m := New(nil, nil)
	if m.Tag() != "merged" {
		t.Fatalf("got %q", m.Tag())
	}
}
