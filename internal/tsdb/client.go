// Package tsdb implements the DataSource backend reading interface
// telemetry (descriptions, line state, rates, optics, counters) out of
// an InfluxDB time-series database.
package tsdb

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"

	"github.com/netweather/weathermap/internal/cache"
	"github.com/netweather/weathermap/internal/config"
	"github.com/netweather/weathermap/internal/datasource"
	"github.com/netweather/weathermap/internal/sample"
)

const tag = "telemetry"

// allNodesKey is the cache key used by every point (non-historic) query:
// each query class fetches every node's latest value in one round trip
// and the result is filtered client-side by the caller, mirroring the
// source system's own lookup_node behavior.
const allNodesKey = "all"

// Client is the InfluxDB-backed DataSource. Point queries (current
// state/rate/optic/counter/description) are wrapped in a per-query-class
// Cache so repeated API calls within a refresh window don't re-issue the
// same Flux query; historic queries carry their own time range in the
// query text and are not cached, since two historic requests are rarely
// for the identical window.
type Client struct {
	cfg    config.TSDBConfig
	influx influxdb2.Client
	query  api.QueryAPI
	logger *zap.SugaredLogger

	nodeCache  *cache.Cache[string, map[string]sample.Node]
	descCache  *cache.Cache[string, map[string]map[string]string]
	stateCache *cache.Cache[string, map[string]map[string]sample.StateSample]
	rateCache  *cache.Cache[string, map[string]map[string]sample.Rate]
	opticCache *cache.Cache[string, map[string]map[string]sample.Optic]
	ctrCache   *cache.Cache[string, map[string]map[string]sample.Counter]
}

// NewClient connects to InfluxDB and builds the query caches. org is the
// InfluxDB organization; cfg.Database names the bucket.
func NewClient(cfg config.TSDBConfig, org, authToken string, logger *zap.SugaredLogger) *Client {
	url := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	influx := influxdb2.NewClient(url, authToken)
	c := &Client{
		cfg:    cfg,
		influx: influx,
		query:  influx.QueryAPI(org),
		logger: logger,
	}

	rateTimeout := time.Duration(cfg.HistoricShortIntervalSeconds) * 5 * time.Second
	descTimeout := time.Duration(cfg.HistoricShortIntervalSeconds) * time.Second

	c.nodeCache, _ = cache.New("tsdb-nodes", rateTimeout, 1, c.fetchNodes, logger)
	c.descCache, _ = cache.New("tsdb-descriptions", descTimeout, 1, c.fetchDescriptionsAndStates, logger)
	c.stateCache, _ = cache.New("tsdb-states", descTimeout, 1, c.fetchStates, logger)
	c.rateCache, _ = cache.New("tsdb-rates", rateTimeout, 1, c.fetchRates, logger)
	c.opticCache, _ = cache.New("tsdb-optics", rateTimeout, 1, c.fetchOptics, logger)
	c.ctrCache, _ = cache.New("tsdb-counters", rateTimeout, 1, c.fetchCounters, logger)
	return c
}

func (c *Client) Tag() string { return tag }

func (c *Client) Close() {
	c.influx.Close()
}

func (c *Client) GetNodes(ctx context.Context) (map[string]sample.Node, error) {
	return c.nodeCache.Get(ctx, allNodesKey)
}

func (c *Client) fetchNodes(ctx context.Context, _ string) (map[string]sample.Node, error) {
	flux := fmt.Sprintf(`import "influxdata/influxdb/schema"
schema.tagValues(bucket: %q, tag: %q, predicate: (r) => r._measurement == %q)`,
		c.cfg.Database, c.cfg.FieldNode, c.cfg.DescMeasurement)
	rows, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("tsdb: query nodes: %w", err)
	}
	defer rows.Close()

	nodes := make(map[string]sample.Node)
	for rows.Next() {
		name, _ := rows.Record().ValueByKey("_value").(string)
		if name == "" {
			continue
		}
		nodes[name] = sample.Node{Name: name, SourceTag: tag}
	}
	return nodes, rows.Err()
}

func (c *Client) GetDescriptions(ctx context.Context, nodes []string) (map[string]map[string]string, error) {
	all, err := c.descCache.Get(ctx, allNodesKey)
	if err != nil {
		return nil, err
	}
	return filterByNode(all, nodes), nil
}

func (c *Client) GetStates(ctx context.Context, nodes []string) (map[string]map[string]sample.StateSample, error) {
	all, err := c.stateCache.Get(ctx, allNodesKey)
	if err != nil {
		return nil, err
	}
	return filterByNode(all, nodes), nil
}

// fetchDescriptionsAndStates and fetchStates both read the "interfaces"
// measurement; descriptions and states are distinct consumer views over
// the same rows so they use independent Cache instances with independent
// TTLs but share the fetch helper below via two thin wrappers, matching
// how the source system exposes desc/state as two calls over the same
// underlying query.
func (c *Client) fetchDescriptionsAndStates(ctx context.Context, _ string) (map[string]map[string]string, error) {
	rows, err := c.queryDescriptionRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]string)
	for _, row := range rows {
		perNode, ok := out[row.node]
		if !ok {
			perNode = make(map[string]string)
			out[row.node] = perNode
		}
		perNode[row.iface] = row.description
	}
	return out, nil
}

func (c *Client) fetchStates(ctx context.Context, _ string) (map[string]map[string]sample.StateSample, error) {
	rows, err := c.queryDescriptionRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]sample.StateSample)
	for _, row := range rows {
		perNode, ok := out[row.node]
		if !ok {
			perNode = make(map[string]sample.StateSample)
			out[row.node] = perNode
		}
		perNode[row.iface] = sample.StateSample{
			Value:     sample.ParseVendorState(row.state),
			SourceTag: tag,
			Timestamp: row.timestamp,
		}
	}
	return out, nil
}

type descriptionRow struct {
	node        string
	iface       string
	description string
	state       string
	timestamp   time.Time
}

func (c *Client) queryDescriptionRows(ctx context.Context) ([]descriptionRow, error) {
	flux := fluxLastQuery(c.cfg.Database, c.cfg.DescMeasurement,
		[]string{c.cfg.FieldDescription, c.cfg.FieldLineState},
		fmt.Sprintf("%ds", c.cfg.HistoricShortIntervalSeconds*3))
	result, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("tsdb: query descriptions: %w", err)
	}
	defer result.Close()

	var rows []descriptionRow
	for result.Next() {
		rec := result.Record()
		node, _ := rec.ValueByKey(c.cfg.FieldNode).(string)
		iface, _ := rec.ValueByKey(c.cfg.FieldInterface).(string)
		desc, _ := rec.ValueByKey(c.cfg.FieldDescription).(string)
		state, _ := rec.ValueByKey(c.cfg.FieldLineState).(string)
		if node == "" || iface == "" {
			continue
		}
		rows = append(rows, descriptionRow{node: node, iface: iface, description: desc, state: state, timestamp: rec.Time()})
	}
	return rows, result.Err()
}

func (c *Client) GetRates(ctx context.Context, nodes []string) (map[string]map[string]sample.Rate, error) {
	all, err := c.rateCache.Get(ctx, allNodesKey)
	if err != nil {
		return nil, err
	}
	return filterByNode(all, nodes), nil
}

func (c *Client) fetchRates(ctx context.Context, _ string) (map[string]map[string]sample.Rate, error) {
	flux := fluxLastQuery(c.cfg.Database, c.cfg.MetricMeasurement,
		[]string{c.cfg.FieldInputRate, c.cfg.FieldOutputRate, c.cfg.FieldBandwidth},
		fmt.Sprintf("%ds", c.cfg.HistoricShortIntervalSeconds*5))
	result, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("tsdb: query rates: %w", err)
	}
	defer result.Close()

	out := make(map[string]map[string]sample.Rate)
	for result.Next() {
		rec := result.Record()
		node, _ := rec.ValueByKey(c.cfg.FieldNode).(string)
		iface, _ := rec.ValueByKey(c.cfg.FieldInterface).(string)
		bw, bwOK := asFloat(rec.ValueByKey(c.cfg.FieldBandwidth))
		if node == "" || iface == "" || !bwOK {
			continue // no bandwidth field means no usable datapoint for this row
		}
		in, _ := asFloat(rec.ValueByKey(c.cfg.FieldInputRate))
		outv, _ := asFloat(rec.ValueByKey(c.cfg.FieldOutputRate))
		in, outv, bw = normalizeRate(in, outv, bw)

		perNode, ok := out[node]
		if !ok {
			perNode = make(map[string]sample.Rate)
			out[node] = perNode
		}
		perNode[iface] = sample.Rate{InBps: in, OutBps: outv, BandwidthBps: bw, SourceTag: tag, Timestamp: rec.Time()}
	}
	return out, result.Err()
}

func (c *Client) GetOptics(ctx context.Context, nodes []string) (map[string]map[string]sample.Optic, error) {
	all, err := c.opticCache.Get(ctx, allNodesKey)
	if err != nil {
		return nil, err
	}
	return filterByNode(all, nodes), nil
}

func (c *Client) fetchOptics(ctx context.Context, _ string) (map[string]map[string]sample.Optic, error) {
	flux := fluxLastQuery(c.cfg.Database, c.cfg.OpticMeasurement,
		[]string{c.cfg.FieldOpticRx, c.cfg.FieldOpticTx, c.cfg.FieldOpticLbc},
		fmt.Sprintf("%ds", c.cfg.HistoricShortIntervalSeconds*5))
	result, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("tsdb: query optics: %w", err)
	}
	defer result.Close()

	out := make(map[string]map[string]sample.Optic)
	for result.Next() {
		rec := result.Record()
		node, _ := rec.ValueByKey(c.cfg.FieldNode).(string)
		sensorName, _ := rec.ValueByKey("name").(string)
		lbcRaw, lbcOK := asFloat(rec.ValueByKey(c.cfg.FieldOpticLbc))
		if node == "" || sensorName == "" || !lbcOK {
			continue
		}
		iface := opticInterfaceName(sensorName)
		rxRaw, _ := asFloat(rec.ValueByKey(c.cfg.FieldOpticRx))
		txRaw, _ := asFloat(rec.ValueByKey(c.cfg.FieldOpticTx))
		rx, txv, lbc := normalizeOptic(rxRaw, txRaw, lbcRaw)

		perNode, ok := out[node]
		if !ok {
			perNode = make(map[string]sample.Optic)
			out[node] = perNode
		}
		perNode[iface] = sample.Optic{RxDBm: rx, TxDBm: txv, LbcMA: lbc, SourceTag: tag, Timestamp: rec.Time()}
	}
	return out, result.Err()
}

func (c *Client) GetCounters(ctx context.Context, nodes []string) (map[string]map[string]sample.Counter, error) {
	all, err := c.ctrCache.Get(ctx, allNodesKey)
	if err != nil {
		return nil, err
	}
	return filterByNode(all, nodes), nil
}

func (c *Client) fetchCounters(ctx context.Context, _ string) (map[string]map[string]sample.Counter, error) {
	flux := fluxLastQuery(c.cfg.Database, c.cfg.CounterMeasurement,
		[]string{c.cfg.FieldCRC, c.cfg.FieldInputError, c.cfg.FieldPacketsRx, c.cfg.FieldOutputDrop},
		fmt.Sprintf("%ds", c.cfg.HistoricShortIntervalSeconds*5))
	result, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("tsdb: query counters: %w", err)
	}
	defer result.Close()

	out := make(map[string]map[string]sample.Counter)
	for result.Next() {
		rec := result.Record()
		node, _ := rec.ValueByKey(c.cfg.FieldNode).(string)
		iface, _ := rec.ValueByKey(c.cfg.FieldInterface).(string)
		if node == "" || iface == "" {
			continue
		}
		crc, _ := asUint(rec.ValueByKey(c.cfg.FieldCRC))
		inerr, _ := asUint(rec.ValueByKey(c.cfg.FieldInputError))
		inrx, _ := asUint(rec.ValueByKey(c.cfg.FieldPacketsRx))
		outdrop, _ := asUint(rec.ValueByKey(c.cfg.FieldOutputDrop))

		perNode, ok := out[node]
		if !ok {
			perNode = make(map[string]sample.Counter)
			out[node] = perNode
		}
		perNode[iface] = sample.Counter{
			CRCErrors: crc, InputErrors: inerr, PacketsReceived: inrx, OutputDrops: outdrop,
			SourceTag: tag, Timestamp: rec.Time(),
		}
	}
	return out, result.Err()
}

// filterByNode narrows an all-nodes result down to the requested nodes,
// resolving each requested name against the roster actually present in
// all (an exact match is kept as-is, otherwise every node name containing
// it as a substring is included) via datasource.ResolveNodes, the same
// resolution rule every backend applies uniformly.
func filterByNode[V any](all map[string]map[string]V, nodes []string) map[string]map[string]V {
	known := make(map[string]sample.Node, len(all))
	for name := range all {
		known[name] = sample.Node{Name: name, SourceTag: tag}
	}
	resolved := datasource.ResolveNodes(nodes, known)

	out := make(map[string]map[string]V, len(resolved))
	for _, n := range resolved {
		if v, ok := all[n]; ok {
			out[n] = v
		} else {
			out[n] = map[string]V{}
		}
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}
