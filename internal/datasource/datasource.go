// Package datasource defines the capability contract every telemetry
// backend (TSDB, SNMP, ...) must satisfy, plus the node-name resolution
// wrapper shared by all of them.
package datasource

import (
	"context"
	"strings"
	"time"

	"github.com/netweather/weathermap/internal/sample"
)

// DataSource is the capability set a backend exposes. All methods key
// their result by node name, then by interface ID. A backend unable to
// serve historic queries (e.g. SNMP) returns empty maps for those calls
// rather than an error — this is expected, not exceptional.
type DataSource interface {
	// Tag identifies this backend in Link.DataSource and in merge-order
	// logging.
	Tag() string

	GetNodes(ctx context.Context) (map[string]sample.Node, error)
	GetDescriptions(ctx context.Context, nodes []string) (map[string]map[string]string, error)
	GetStates(ctx context.Context, nodes []string) (map[string]map[string]sample.StateSample, error)
	GetRates(ctx context.Context, nodes []string) (map[string]map[string]sample.Rate, error)
	GetOptics(ctx context.Context, nodes []string) (map[string]map[string]sample.Optic, error)
	GetCounters(ctx context.Context, nodes []string) (map[string]map[string]sample.Counter, error)

	GetHistoricStates(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.StateSample, error)
	GetHistoricRates(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.HistoricRate, error)
	GetHistoricOptics(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.HistoricOptic, error)
	GetHistoricCounters(ctx context.Context, nodes []string, start, end time.Time, shortInterval bool) (map[string]map[string][]sample.Counter, error)
}

// ResolveNodes expands a list of requested names/substrings against a
// backend's known node roster: an exact match is kept as-is; otherwise
// every known name containing the request as a substring is included.
// If known is empty, the caller should populate it (via GetNodes) before
// calling this — ResolveNodes itself never fetches.
func ResolveNodes(requested []string, known map[string]sample.Node) []string {
	seen := make(map[string]bool, len(requested))
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	for _, req := range requested {
		if _, ok := known[req]; ok {
			add(req)
			continue
		}
		for name := range known {
			if strings.Contains(name, req) {
				add(name)
			}
		}
	}
	return out
}
