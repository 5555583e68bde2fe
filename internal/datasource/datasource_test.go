package datasource

import (
	"sort"
	"testing"

	"github.com/netweather/weathermap/internal/sample"
)

func TestResolveNodesExactMatch(t *testing.T) {
	known := map[string]sample.Node{"node-a": {Name: "node-a"}, "node-b": {Name: "node-b"}}
	got := ResolveNodes([]string{"node-a"}, known)
	if len(got) != 1 || got[0] != "node-a" {
		t.Fatalf("got %v", got)
	}
}

func TestResolveNodesSubstringExpansion(t *testing.T) {
	known := map[string]sample.Node{
		"node-a":     {Name: "node-a"},
		"test-b-100": {Name: "test-b-100"},
		"test-c":     {Name: "test-c"},
	}
	got := ResolveNodes([]string{"node", "test"}, known)
	sort.Strings(got)
	want := []string{"node-a", "test-b-100", "test-c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestResolveNodesMonotoneUnderNewBackendNode(t *testing.T) {
	before := map[string]sample.Node{"node-a": {Name: "node-a"}}
	after := map[string]sample.Node{"node-a": {Name: "node-a"}, "node-b": {Name: "node-b"}}

	gotBefore := ResolveNodes([]string{"node"}, before)
	gotAfter := ResolveNodes([]string{"node"}, after)

	beforeSet := make(map[string]bool)
	for _, n := range gotBefore {
		beforeSet[n] = true
	}
	for n := range beforeSet {
		found := false
		for _, a := range gotAfter {
			if a == n {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("node %q present before new backend, missing after: monotonicity violated", n)
		}
	}
}
