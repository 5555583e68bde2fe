package tsdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/netweather/weathermap/internal/sample"
)

// historicInterval picks the short or long downsampling window from
// config depending on the caller's shortInterval flag.
func (c *Client) historicInterval(shortInterval bool) int {
	if shortInterval {
		return c.cfg.HistoricShortIntervalSeconds
	}
	return c.cfg.HistoricLongIntervalSeconds
}

func nodeRegex(nodes []string) string {
	sorted := append([]string(nil), nodes...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

func (c *Client) GetHistoricStates(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.StateSample, error) {
	flux := fluxHistoricQuery(c.cfg.Database, c.cfg.DescMeasurement,
		[]string{c.cfg.FieldDescription, c.cfg.FieldLineState},
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339),
		c.historicInterval(shortInterval), c.cfg.FieldNode, nodeRegex(nodes))
	result, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("tsdb: query historic states: %w", err)
	}
	defer result.Close()

	out := make(map[string]map[string][]sample.StateSample)
	for result.Next() {
		rec := result.Record()
		node, _ := rec.ValueByKey(c.cfg.FieldNode).(string)
		iface, _ := rec.ValueByKey(c.cfg.FieldInterface).(string)
		state, ok := rec.ValueByKey(c.cfg.FieldLineState).(string)
		if node == "" || iface == "" || !ok {
			continue
		}
		perNode, exists := out[node]
		if !exists {
			perNode = make(map[string][]sample.StateSample)
			out[node] = perNode
		}
		perNode[iface] = append(perNode[iface], sample.StateSample{
			Value: sample.ParseVendorState(state), SourceTag: tag, Timestamp: rec.Time(),
		})
	}
	return out, result.Err()
}

// GetHistoricRates reports one []sample.HistoricRate bucket per interval
// in the window, in query order. A bucket with no bandwidth sample is
// still appended, with OK=false and only its timestamp set, so its index
// keeps pace with sibling series the enrichment engine zips alongside it.
func (c *Client) GetHistoricRates(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.HistoricRate, error) {
	flux := fluxHistoricQuery(c.cfg.Database, c.cfg.MetricMeasurement,
		[]string{c.cfg.FieldInputRate, c.cfg.FieldOutputRate, c.cfg.FieldBandwidth},
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339),
		c.historicInterval(shortInterval), c.cfg.FieldNode, nodeRegex(nodes))
	result, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("tsdb: query historic rates: %w", err)
	}
	defer result.Close()

	out := make(map[string]map[string][]sample.HistoricRate)
	for result.Next() {
		rec := result.Record()
		node, _ := rec.ValueByKey(c.cfg.FieldNode).(string)
		iface, _ := rec.ValueByKey(c.cfg.FieldInterface).(string)
		if node == "" || iface == "" {
			continue
		}
		perNode, exists := out[node]
		if !exists {
			perNode = make(map[string][]sample.HistoricRate)
			out[node] = perNode
		}

		bw, bwOK := asFloat(rec.ValueByKey(c.cfg.FieldBandwidth))
		if !bwOK {
			perNode[iface] = append(perNode[iface], sample.HistoricRate{
				Rate: sample.Rate{SourceTag: tag, Timestamp: rec.Time()},
			})
			continue
		}
		in, _ := asFloat(rec.ValueByKey(c.cfg.FieldInputRate))
		outv, _ := asFloat(rec.ValueByKey(c.cfg.FieldOutputRate))
		in, outv, bw = normalizeRate(in, outv, bw)

		perNode[iface] = append(perNode[iface], sample.HistoricRate{
			Rate: sample.Rate{InBps: in, OutBps: outv, BandwidthBps: bw, SourceTag: tag, Timestamp: rec.Time()},
			OK:   true,
		})
	}
	return out, result.Err()
}

// GetHistoricOptics reports one []sample.HistoricOptic bucket per interval
// in the window. A bucket with no LBC sample is still appended, with
// OK=false and only its timestamp set; see GetHistoricRates.
func (c *Client) GetHistoricOptics(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.HistoricOptic, error) {
	flux := fluxHistoricQuery(c.cfg.Database, c.cfg.OpticMeasurement,
		[]string{c.cfg.FieldOpticRx, c.cfg.FieldOpticTx, c.cfg.FieldOpticLbc},
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339),
		c.historicInterval(shortInterval), c.cfg.FieldNode, nodeRegex(nodes))
	result, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("tsdb: query historic optics: %w", err)
	}
	defer result.Close()

	out := make(map[string]map[string][]sample.HistoricOptic)
	for result.Next() {
		rec := result.Record()
		node, _ := rec.ValueByKey(c.cfg.FieldNode).(string)
		sensorName, _ := rec.ValueByKey("name").(string)
		if node == "" || sensorName == "" {
			continue
		}
		iface := opticInterfaceName(sensorName)
		perNode, exists := out[node]
		if !exists {
			perNode = make(map[string][]sample.HistoricOptic)
			out[node] = perNode
		}

		lbcRaw, lbcOK := asFloat(rec.ValueByKey(c.cfg.FieldOpticLbc))
		if !lbcOK {
			perNode[iface] = append(perNode[iface], sample.HistoricOptic{
				Optic: sample.Optic{SourceTag: tag, Timestamp: rec.Time()},
			})
			continue
		}
		rxRaw, _ := asFloat(rec.ValueByKey(c.cfg.FieldOpticRx))
		txRaw, _ := asFloat(rec.ValueByKey(c.cfg.FieldOpticTx))
		rx, txv, lbc := normalizeOptic(rxRaw, txRaw, lbcRaw)

		perNode[iface] = append(perNode[iface], sample.HistoricOptic{
			Optic: sample.Optic{RxDBm: rx, TxDBm: txv, LbcMA: lbc, SourceTag: tag, Timestamp: rec.Time()},
			OK:    true,
		})
	}
	return out, result.Err()
}

func (c *Client) GetHistoricCounters(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.Counter, error) {
	flux := fluxHistoricQuery(c.cfg.Database, c.cfg.CounterMeasurement,
		[]string{c.cfg.FieldCRC, c.cfg.FieldInputError, c.cfg.FieldPacketsRx, c.cfg.FieldOutputDrop},
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339),
		c.historicInterval(shortInterval), c.cfg.FieldNode, nodeRegex(nodes))
	result, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("tsdb: query historic counters: %w", err)
	}
	defer result.Close()

	out := make(map[string]map[string][]sample.Counter)
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

		perNode, exists := out[node]
		if !exists {
			perNode = make(map[string][]sample.Counter)
			out[node] = perNode
		}
		perNode[iface] = append(perNode[iface], sample.Counter{
			CRCErrors: crc, InputErrors: inerr, PacketsReceived: inrx, OutputDrops: outdrop,
			SourceTag: tag, Timestamp: rec.Time(),
		})
	}
	return out, result.Err()
}
