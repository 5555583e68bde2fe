package snmp

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/netweather/weathermap/internal/config"
	"github.com/netweather/weathermap/internal/datasource"
	"github.com/netweather/weathermap/internal/sample"
)

// Client is the DataSource backend that polls routers directly over
// SNMP rather than reading a time-series database. It has no history:
// every GetHistoricX method returns an empty result, matching a device
// that only ever reports its current counters.
type Client struct {
	poller *Poller
}

// NewClient starts a Poller against cfg.Hosts and wraps it as a
// DataSource. The caller owns the Client's lifetime and must call
// Close to stop the background poll loop.
func NewClient(cfg config.SNMPConfig, logger *zap.SugaredLogger) *Client {
	poller := NewPoller(cfg, logger)
	poller.Start()
	return &Client{poller: poller}
}

func (c *Client) Tag() string { return tag }

// Close stops the background poll loop and closes every session.
func (c *Client) Close() { c.poller.Stop() }

func (c *Client) GetNodes(ctx context.Context) (map[string]sample.Node, error) {
	out := make(map[string]sample.Node)
	for _, host := range c.poller.Hostnames() {
		out[host] = sample.Node{Name: host, SourceTag: tag}
	}
	return out, nil
}

// resolveNodes expands requested against the hosts this poller actually
// has configured, via datasource.ResolveNodes, the same substring/prefix
// resolution rule every backend applies uniformly.
func (c *Client) resolveNodes(requested []string) []string {
	known := make(map[string]sample.Node, len(c.poller.Hostnames()))
	for _, host := range c.poller.Hostnames() {
		known[host] = sample.Node{Name: host, SourceTag: tag}
	}
	return datasource.ResolveNodes(requested, known)
}

func (c *Client) GetDescriptions(ctx context.Context, nodes []string) (map[string]map[string]string, error) {
	resolved := c.resolveNodes(nodes)
	out := make(map[string]map[string]string, len(resolved))
	for _, n := range resolved {
		out[n] = c.poller.snapshotDescriptions(n)
	}
	return out, nil
}

func (c *Client) GetStates(ctx context.Context, nodes []string) (map[string]map[string]sample.StateSample, error) {
	resolved := c.resolveNodes(nodes)
	out := make(map[string]map[string]sample.StateSample, len(resolved))
	for _, n := range resolved {
		out[n] = c.poller.snapshotStates(n)
	}
	return out, nil
}

func (c *Client) GetRates(ctx context.Context, nodes []string) (map[string]map[string]sample.Rate, error) {
	resolved := c.resolveNodes(nodes)
	out := make(map[string]map[string]sample.Rate, len(resolved))
	for _, n := range resolved {
		out[n] = c.poller.snapshotRates(n)
	}
	return out, nil
}

func (c *Client) GetOptics(ctx context.Context, nodes []string) (map[string]map[string]sample.Optic, error) {
	resolved := c.resolveNodes(nodes)
	out := make(map[string]map[string]sample.Optic, len(resolved))
	for _, n := range resolved {
		out[n] = c.poller.snapshotOptics(n)
	}
	return out, nil
}

func (c *Client) GetCounters(ctx context.Context, nodes []string) (map[string]map[string]sample.Counter, error) {
	resolved := c.resolveNodes(nodes)
	out := make(map[string]map[string]sample.Counter, len(resolved))
	for _, n := range resolved {
		out[n] = map[string]sample.Counter{}
	}
	return out, nil
}

// GetHistoricStates, GetHistoricRates, GetHistoricOptics and
// GetHistoricCounters all report empty results: a device polled live
// over SNMP has no stored history to query.

func (c *Client) GetHistoricStates(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.StateSample, error) {
	return map[string]map[string][]sample.StateSample{}, nil
}

func (c *Client) GetHistoricRates(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.HistoricRate, error) {
	return map[string]map[string][]sample.HistoricRate{}, nil
}

func (c *Client) GetHistoricOptics(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.HistoricOptic, error) {
	return map[string]map[string][]sample.HistoricOptic{}, nil
}

func (c *Client) GetHistoricCounters(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.Counter, error) {
	return map[string]map[string][]sample.Counter{}, nil
}
