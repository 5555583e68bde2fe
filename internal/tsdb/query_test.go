package tsdb

import (
	"strings"
	"testing"
)

func TestFluxLastQueryIncludesMeasurementAndFields(t *testing.T) {
	q := fluxLastQuery("telemetry", "interface_counters", []string{"input_data_rate", "output_data_rate"}, "300s")
	for _, want := range []string{`r._measurement == "interface_counters"`, `r._field == "input_data_rate"`, `r._field == "output_data_rate"`, "-300s"} {
		if !strings.Contains(q, want) {
			t.Fatalf("query missing %q:\n%s", want, q)
		}
	}
}

func TestFluxHistoricQueryIncludesRangeAndNodeFilter(t *testing.T) {
	q := fluxHistoricQuery("telemetry", "interfaces", []string{"description"}, "2026-01-01T00:00:00Z", "2026-01-02T00:00:00Z", 60, "source", "node-a|node-b")
	for _, want := range []string{
		"range(start: 2026-01-01T00:00:00Z, stop: 2026-01-02T00:00:00Z)",
		`r.source =~ /node-a|node-b/`,
		"aggregateWindow(every: 60s",
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("query missing %q:\n%s", want, q)
		}
	}
}

func TestFieldFilterJoinsWithOr(t *testing.T) {
	got := fieldFilter([]string{"a", "b", "c"})
	want := `r._field == "a" or r._field == "b" or r._field == "c"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFilterByNodeFillsMissingWithEmptyMap(t *testing.T) {
	all := map[string]map[string]int{"node-a": {"eth0": 1}}
	got := filterByNode(all, []string{"node-a", "node-b"})
	if len(got["node-a"]) != 1 || got["node-a"]["eth0"] != 1 {
		t.Fatalf("node-a not preserved: %v", got)
	}
	if got["node-b"] == nil || len(got["node-b"]) != 0 {
		t.Fatalf("node-b should be an empty, non-nil map: %v", got["node-b"])
	}
}

func TestAsFloatAndAsUint(t *testing.T) {
	if v, ok := asFloat(int64(5)); !ok || v != 5 {
		t.Fatalf("asFloat(int64): %v %v", v, ok)
	}
	if v, ok := asFloat("nope"); ok || v != 0 {
		t.Fatalf("asFloat(string) should fail: %v %v", v, ok)
	}
	if v, ok := asUint(int64(-1)); ok || v != 0 {
		t.Fatalf("asUint should reject negative: %v %v", v, ok)
	}
	if v, ok := asUint(float64(7)); !ok || v != 7 {
		t.Fatalf("asUint(float64): %v %v", v, ok)
	}
}
