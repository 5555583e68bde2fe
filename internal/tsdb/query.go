package tsdb

import "fmt"

// fluxLastQuery builds a Flux query returning the most recent value of
// each field in fields for the given measurement, grouped by node and
// interface tag so a single query result covers every known interface.
func fluxLastQuery(bucket, measurement string, fields []string, lookback string) string {
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: -%s)
  |> filter(fn: (r) => r._measurement == %q)
  |> filter(fn: (r) => %s)
  |> last()
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")`,
		bucket, lookback, measurement, fieldFilter(fields))
}

// fluxHistoricQuery builds a Flux query over an explicit [start, end)
// window, downsampled to interval-wide windows via aggregateWindow, for
// the given set of node names. nodeRegex is a pipe-joined alternation
// matched against the node tag.
func fluxHistoricQuery(bucket, measurement string, fields []string, startRFC3339, endRFC3339 string, intervalSeconds int, nodeTag, nodeRegex string) string {
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q)
  |> filter(fn: (r) => %s)
  |> filter(fn: (r) => r.%s =~ /%s/)
  |> aggregateWindow(every: %ds, fn: last, createEmpty: true)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")`,
		bucket, startRFC3339, endRFC3339, measurement, fieldFilter(fields), nodeTag, nodeRegex, intervalSeconds)
}

func fieldFilter(fields []string) string {
	clause := ""
	for i, f := range fields {
		if i > 0 {
			clause += " or "
		}
		clause += fmt.Sprintf("r._field == %q", f)
	}
	return clause
}
