// Package enrichment attaches live and historic measurements to the
// links and remotes the topology matcher discovers, applying the
// one-sided rate/health fallback and the optics "ends-with" key join.
package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/netweather/weathermap/internal/cache"
	"github.com/netweather/weathermap/internal/datasource"
	"github.com/netweather/weathermap/internal/sample"
	"github.com/netweather/weathermap/internal/topology"
)

const (
	linkCacheTTL     = time.Hour
	linkCacheMaxKeys = 256
)

// linksKey identifies one (nodes, skipSelf) between-link query for the
// cache; remoteKey identifies one (nodes, remotes) remote-link query.
type linksKey struct {
	nodes    string
	skipSelf bool
}

type remoteKey struct {
	nodes   string
	remotes string
}

// Engine fetches interface snapshots from the merged datasource, asks
// the Matcher to pair them into Links/Endpoints (cached for an hour),
// and attaches the requested measurement kind to each.
type Engine struct {
	ds      datasource.DataSource
	matcher *topology.Matcher
	logger  *zap.SugaredLogger

	between *cache.Cache[linksKey, []sample.Link]
	remote  *cache.Cache[remoteKey, []sample.Endpoint]
}

// New builds an Engine over ds and matcher.
func New(ds datasource.DataSource, matcher *topology.Matcher, logger *zap.SugaredLogger) (*Engine, error) {
	e := &Engine{ds: ds, matcher: matcher, logger: logger}

	between, err := cache.New("enrichment.between", linkCacheTTL, linkCacheMaxKeys, e.produceBetween, logger)
	if err != nil {
		return nil, fmt.Errorf("enrichment: building between-link cache: %w", err)
	}
	remote, err := cache.New("enrichment.remote", linkCacheTTL, linkCacheMaxKeys, e.produceRemote, logger)
	if err != nil {
		return nil, fmt.Errorf("enrichment: building remote-link cache: %w", err)
	}
	e.between = between
	e.remote = remote
	return e, nil
}

func joinKey(nodes []string) string { return strings.Join(nodes, ",") }

// snapshot pulls every node's roster and descriptions and flattens them
// into the Interface slice the matcher expects.
func (e *Engine) snapshot(ctx context.Context) ([]sample.Interface, error) {
	nodes, err := e.ds.GetNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("enrichment: refreshing node roster: %w", err)
	}
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	descs, err := e.ds.GetDescriptions(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("enrichment: fetching descriptions: %w", err)
	}

	var ifaces []sample.Interface
	for node, perIface := range descs {
		for id, desc := range perIface {
			ifaces = append(ifaces, sample.Interface{Node: node, InterfaceID: id, Description: desc})
		}
	}
	return ifaces, nil
}

// Nodes returns every node name known to the merged datasource.
func (e *Engine) Nodes(ctx context.Context) ([]string, error) {
	nodes, err := e.ds.GetNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("enrichment: fetching node roster: %w", err)
	}
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	return names, nil
}

// Discover runs the matcher's node/link discovery over a fresh
// snapshot of the merged datasource.
func (e *Engine) Discover(ctx context.Context, filter string, includeOrphans bool) (topology.Discovery, error) {
	ifaces, err := e.snapshot(ctx)
	if err != nil {
		return topology.Discovery{}, err
	}
	return e.matcher.DiscoverNodes(ifaces, filter, includeOrphans), nil
}

// DiscoverOrphans runs the matcher's orphan-node discovery over a
// fresh snapshot of the merged datasource.
func (e *Engine) DiscoverOrphans(ctx context.Context, filter string) ([]topology.DiscoveredNode, error) {
	ifaces, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return e.matcher.DiscoverOrphanNodes(ifaces, filter), nil
}

// Links returns the matched link identities between nodes (or, when
// remotes is set, the matched remote endpoints) with no measurement
// attached. Unlike GetRates/GetHealth/GetOptics, a link missing
// measurement data is still returned, since callers only need to know
// the two interfaces were paired.
func (e *Engine) Links(ctx context.Context, nodes, remotes []string, skipSelf bool) ([]sample.Link, error) {
	return e.linksFor(ctx, nodes, remotes, skipSelf)
}

// WarmRefresh pre-populates the between-link cache for the "all nodes"
// query the scheduler keeps warm, so the first inbound discover/link
// request after a restart or TTL expiry doesn't pay full matcher
// latency inline.
func (e *Engine) WarmRefresh(ctx context.Context) error {
	_, err := e.between.Get(ctx, linksKey{nodes: "", skipSelf: false})
	return err
}

func (e *Engine) produceBetween(ctx context.Context, key linksKey) ([]sample.Link, error) {
	ifaces, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	filters := strings.Split(key.nodes, ",")
	return e.matcher.GetLinksBetween(ifaces, filters, key.skipSelf), nil
}

func (e *Engine) produceRemote(ctx context.Context, key remoteKey) ([]sample.Endpoint, error) {
	ifaces, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	nodes := strings.Split(key.nodes, ",")
	remotes := strings.Split(key.remotes, ",")
	return e.matcher.GetLinksRemote(ifaces, nodes, remotes), nil
}

// linksFor returns the cached link set for nodes, or (when remotes is
// non-empty) converts the cached remote-endpoint set into Links whose
// Target carries only the matched label as its InterfaceID — giving
// callers a uniform Link shape regardless of which collection served
// the request. skipSelf only applies to the between-link path.
func (e *Engine) linksFor(ctx context.Context, nodes, remotes []string, skipSelf bool) ([]sample.Link, error) {
	if len(remotes) > 0 {
		endpoints, err := e.remote.Get(ctx, remoteKey{nodes: joinKey(nodes), remotes: joinKey(remotes)})
		if err != nil {
			return nil, err
		}
		links := make([]sample.Link, 0, len(endpoints))
		for _, ep := range endpoints {
			links = append(links, sample.Link{
				Source: ep.Local,
				Target: sample.Interface{Node: ep.Label, InterfaceID: ep.Label},
			})
		}
		return links, nil
	}
	return e.between.Get(ctx, linksKey{nodes: joinKey(nodes), skipSelf: skipSelf})
}

// batch lazily fetches and memoizes a per-node sample map within one
// enrichment call, so links sharing a node don't re-issue the same
// datasource call.
type batch[V any] struct {
	fetch func(ctx context.Context, node string) (map[string]V, error)
	cache map[string]map[string]V
}

func newBatch[V any](fetch func(ctx context.Context, node string) (map[string]V, error)) *batch[V] {
	return &batch[V]{fetch: fetch, cache: make(map[string]map[string]V)}
}

func (b *batch[V]) get(ctx context.Context, node string) (map[string]V, error) {
	if m, ok := b.cache[node]; ok {
		return m, nil
	}
	m, err := b.fetch(ctx, node)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]V{}
	}
	b.cache[node] = m
	return m, nil
}

func (e *Engine) rateBatch() *batch[sample.Rate] {
	return newBatch(func(ctx context.Context, node string) (map[string]sample.Rate, error) {
		res, err := e.ds.GetRates(ctx, []string{node})
		if err != nil {
			return nil, err
		}
		return res[node], nil
	})
}

func (e *Engine) counterBatch() *batch[sample.Counter] {
	return newBatch(func(ctx context.Context, node string) (map[string]sample.Counter, error) {
		res, err := e.ds.GetCounters(ctx, []string{node})
		if err != nil {
			return nil, err
		}
		return res[node], nil
	})
}

func (e *Engine) opticBatch() *batch[sample.Optic] {
	return newBatch(func(ctx context.Context, node string) (map[string]sample.Optic, error) {
		res, err := e.ds.GetOptics(ctx, []string{node})
		if err != nil {
			return nil, err
		}
		return res[node], nil
	})
}

func (e *Engine) stateBatch() *batch[sample.StateSample] {
	return newBatch(func(ctx context.Context, node string) (map[string]sample.StateSample, error) {
		res, err := e.ds.GetStates(ctx, []string{node})
		if err != nil {
			return nil, err
		}
		return res[node], nil
	})
}

func (e *Engine) attachState(ctx context.Context, states *batch[sample.StateSample], link *sample.Link) {
	m, err := states.get(ctx, link.Source.Node)
	if err != nil {
		return
	}
	if s, ok := m[link.Source.InterfaceID]; ok {
		link.ApplyState(sample.Measurement{State: s})
	}
}

// GetRates attaches rate measurements to every link between nodes (or,
// when remotes is set, every matched remote endpoint — with fallback
// disabled in that case). Links with no rate data from either direction
// are dropped.
func (e *Engine) GetRates(ctx context.Context, nodes, remotes []string, skipSelf bool) ([]sample.Link, error) {
	links, err := e.linksFor(ctx, nodes, remotes, skipSelf)
	if err != nil {
		return nil, err
	}
	rates := e.rateBatch()
	states := e.stateBatch()

	out := links[:0:0]
	for _, link := range links {
		e.attachState(ctx, states, &link)

		srcRates, _ := rates.get(ctx, link.Source.Node)
		if r, ok := srcRates[link.Source.InterfaceID]; ok {
			link.ApplyRate(sample.SideSource, sample.Measurement{Rate: r})
			out = append(out, link)
			continue
		}
		if len(remotes) == 0 {
			if tgtRates, _ := rates.get(ctx, link.Target.Node); tgtRates != nil {
				if r, ok := tgtRates[link.Target.InterfaceID]; ok {
					link.ApplyRate(sample.SideTarget, sample.Measurement{Rate: r})
					out = append(out, link)
					continue
				}
			}
		}
	}
	return out, nil
}

// GetHealth attaches per-endpoint counter-derived health to every link.
// Fallback mirrors GetRates: a missing source-side counter falls back to
// the target side's own counter values.
func (e *Engine) GetHealth(ctx context.Context, nodes, remotes []string, skipSelf bool) ([]sample.Link, error) {
	links, err := e.linksFor(ctx, nodes, remotes, skipSelf)
	if err != nil {
		return nil, err
	}
	counters := e.counterBatch()
	states := e.stateBatch()

	out := links[:0:0]
	for _, link := range links {
		e.attachState(ctx, states, &link)

		srcCounters, _ := counters.get(ctx, link.Source.Node)
		if c, ok := srcCounters[link.Source.InterfaceID]; ok {
			link.ApplyCounter(sample.SideSource, sample.Measurement{Counter: c})
			out = append(out, link)
			continue
		}
		if len(remotes) == 0 {
			if tgtCounters, _ := counters.get(ctx, link.Target.Node); tgtCounters != nil {
				if c, ok := tgtCounters[link.Target.InterfaceID]; ok {
					link.ApplyCounter(sample.SideSource, sample.Measurement{Counter: c})
					out = append(out, link)
					continue
				}
			}
		}
	}
	return out, nil
}

// opticKeyFor finds the optic-table entry whose key the interface ID
// ends with, since optics are keyed by numeric suffix while interfaces
// carry their full name.
func opticKeyFor(optics map[string]sample.Optic, interfaceID string) (sample.Optic, bool) {
	for key, o := range optics {
		if strings.HasSuffix(interfaceID, key) {
			return o, true
		}
	}
	return sample.Optic{}, false
}

// GetOptics attaches per-endpoint optical measurements to every link.
// Unlike rates/health, there is no cross-side fallback: each side's
// optics come only from that side's own sensors. A link survives only
// if at least one side produced a reading.
func (e *Engine) GetOptics(ctx context.Context, nodes, remotes []string, skipSelf bool) ([]sample.Link, error) {
	links, err := e.linksFor(ctx, nodes, remotes, skipSelf)
	if err != nil {
		return nil, err
	}
	optics := e.opticBatch()
	states := e.stateBatch()

	out := links[:0:0]
	for _, link := range links {
		e.attachState(ctx, states, &link)

		srcOptics, _ := optics.get(ctx, link.Source.Node)
		srcOptic, srcOK := opticKeyFor(srcOptics, link.Source.InterfaceID)
		if srcOK {
			link.ApplyOptic(sample.SideSource, sample.Measurement{Optic: srcOptic})
		}

		tgtOK := false
		if len(remotes) == 0 {
			tgtOptics, _ := optics.get(ctx, link.Target.Node)
			var tgtOptic sample.Optic
			tgtOptic, tgtOK = opticKeyFor(tgtOptics, link.Target.InterfaceID)
			if tgtOK {
				link.ApplyOptic(sample.SideTarget, sample.Measurement{Optic: tgtOptic})
			}
		}

		if srcOK || tgtOK {
			out = append(out, link)
		}
	}
	return out, nil
}
