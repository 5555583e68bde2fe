package topology

import (
	"strings"
	"testing"

	"github.com/netweather/weathermap/internal/config"
	"github.com/netweather/weathermap/internal/sample"
)

func testConfig() config.TopologyConfig {
	return config.TopologyConfig{
		NodeSeparator:     "-",
		NodeNumSegments:   1,
		RemoteIncludeList: []string{"fw", "ISP"},
	}
}

// fixture returns the interfaces for a small seeded test topology:
// node-a <-> node-b, test-c <-> test-b-100 (x2), plus an open remote on
// test-a and a locality-filtered remote on node-a.
func fixture() []sample.Interface {
	return []sample.Interface{
		{Node: "node-a", InterfaceID: "TenGigabitEth1/1", Description: "DC_node-b_Te1/1"},
		{Node: "node-b", InterfaceID: "TenGigabitEth1/1", Description: "DC_node-a_Te1/1"},

		{Node: "test-b-100", InterfaceID: "Eth5/1", Description: "DC_test-c_TenGig1/1"},
		{Node: "test-c", InterfaceID: "TenGig1/1", Description: "DC_test-b-100_Eth5/1"},
		{Node: "test-b-100", InterfaceID: "Eth5/10", Description: "DC_test-c_TenGig1/10"},
		{Node: "test-c", InterfaceID: "TenGig1/10", Description: "DC_test-b-100_Eth5/10"},

		{Node: "test-a", InterfaceID: "TenGigE2/1", Description: "to_fw_border"},
		{Node: "node-a", InterfaceID: "TenGigE3/1", Description: "ISP_I2-TR"},
	}
}

func TestVerifyLinkSucceedsBothDirections(t *testing.T) {
	m := New(testConfig())
	a := sample.Interface{Node: "node-a", InterfaceID: "TenGigabitEth1/1", Description: "DC_node-b_Te1/1"}
	b := sample.Interface{Node: "node-b", InterfaceID: "TenGigabitEth1/1", Description: "DC_node-a_Te1/1"}

	if err := m.VerifyLink(a, b); err != nil {
		t.Fatalf("VerifyLink(a,b): %v", err)
	}
	if err := m.VerifyLink(b, a); err != nil {
		t.Fatalf("VerifyLink(b,a): %v", err)
	}
}

func TestVerifyLinkDetectsLoop(t *testing.T) {
	m := New(testConfig())
	a := sample.Interface{Node: "node-a", InterfaceID: "TenGigabitEth1/1", Description: "DC_node-a_Ten1/1"}
	b := sample.Interface{Node: "node-a", InterfaceID: "TenGigabitEth2/1", Description: "DC_node-a_Ten1/1"}

	err := m.VerifyLink(a, b)
	if err == nil {
		t.Fatal("expected loop error")
	}
	verr, ok := err.(*sample.VerificationError)
	if !ok || verr.Class != sample.ClassLoop {
		t.Fatalf("expected ClassLoop, got %#v", err)
	}
}

func TestVerifyLinkDeduplicatesErrors(t *testing.T) {
	m := New(testConfig())
	a := sample.Interface{Node: "node-a", InterfaceID: "TenGigabitEth1/1", Description: "DC_node-a_Ten1/1"}
	b := sample.Interface{Node: "node-a", InterfaceID: "TenGigabitEth2/1", Description: "DC_node-a_Ten1/1"}

	_ = m.VerifyLink(a, b)
	_ = m.VerifyLink(a, b)
	if len(m.DiscoverErrors()) != 1 {
		t.Fatalf("expected one deduplicated error, got %d", len(m.DiscoverErrors()))
	}
}

func TestGetLinksBetweenSkipSelfDropsSingleNodeFilter(t *testing.T) {
	m := New(testConfig())
	ifaces := fixture()

	if links := m.GetLinksBetween(ifaces, []string{"node"}, true); len(links) != 0 {
		t.Fatalf("expected no links with skipSelf on a single shared filter, got %v", links)
	}
	links := m.GetLinksBetween(ifaces, []string{"node"}, false)
	if len(links) != 1 {
		t.Fatalf("expected exactly one link, got %d: %v", len(links), links)
	}
	if links[0].Source.Node != "node-a" && links[0].Target.Node != "node-a" {
		t.Fatalf("expected node-a in the link, got %+v", links[0])
	}
}

func TestGetLinksBetweenFindsBothTestLinks(t *testing.T) {
	m := New(testConfig())
	ifaces := fixture()

	links := m.GetLinksBetween(ifaces, []string{"test-b", "test-c"}, true)
	if len(links) != 2 {
		t.Fatalf("expected two links, got %d: %+v", len(links), links)
	}
}

func TestGetLinksRemoteFindsOpenEndpoint(t *testing.T) {
	m := New(testConfig())
	ifaces := fixture()

	remotes := m.GetLinksRemote(ifaces, []string{"test"}, []string{"fw"})
	if len(remotes) != 1 {
		t.Fatalf("expected exactly one remote, got %d: %+v", len(remotes), remotes)
	}
	if remotes[0].Local.Node != "test-a" || remotes[0].Label != "fw" {
		t.Fatalf("got %+v", remotes[0])
	}
}

func TestGetLinksRemoteLocalityFilter(t *testing.T) {
	m := New(testConfig())
	ifaces := fixture()

	remotes := m.GetLinksRemote(ifaces, []string{"test", "node"}, []string{"I2--node"})
	if len(remotes) != 1 {
		t.Fatalf("expected exactly one locality-filtered remote, got %d: %+v", len(remotes), remotes)
	}
	if remotes[0].Local.Node != "node-a" {
		t.Fatalf("expected node-a to match the locality filter, got %+v", remotes[0])
	}
}

func TestDiscoverNodesDropsOrphansByDefault(t *testing.T) {
	m := New(testConfig())
	ifaces := append(fixture(), sample.Interface{Node: "node-z", InterfaceID: "Te1/1", Description: "unused"})

	all := m.DiscoverNodes(ifaces, "node", true)
	linked := m.DiscoverNodes(ifaces, "node", false)
	if len(linked.Nodes) >= len(all.Nodes) {
		t.Fatalf("expected fewer nodes once orphans are excluded: all=%d linked=%d", len(all.Nodes), len(linked.Nodes))
	}
	for _, n := range linked.Nodes {
		if n.ID == "node-z" {
			t.Fatalf("orphan node-z should have been dropped")
		}
	}
}

func TestDiscoverOrphanNodesReturnsUntouchedNodes(t *testing.T) {
	m := New(testConfig())
	ifaces := append(fixture(), sample.Interface{Node: "node-z", InterfaceID: "Te1/1", Description: "unused"})

	orphans := m.DiscoverOrphanNodes(ifaces, "node")
	found := false
	for _, o := range orphans {
		if o.ID == "node-z" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected node-z among orphans, got %+v", orphans)
	}
}

func TestErrorsCSVHasHeaderAndFiveColumns(t *testing.T) {
	m := New(testConfig())
	loop1 := sample.Interface{Node: "node-a", InterfaceID: "Te1/1", Description: "DC_node-a_Ten1/1"}
	loop2 := sample.Interface{Node: "node-a", InterfaceID: "Te2/1", Description: "DC_node-a_Ten1/1"}
	_ = m.VerifyLink(loop1, loop2)

	mismatch1 := sample.Interface{Node: "node-c", InterfaceID: "Te1/1", Description: "DC_node-d_Ten9/9"}
	mismatch2 := sample.Interface{Node: "node-d", InterfaceID: "Te1/1", Description: "DC_node-c_Ten1/1"}
	_ = m.VerifyLink(mismatch1, mismatch2)

	out, err := m.ErrorsCSV()
	if err != nil {
		t.Fatalf("ErrorsCSV: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d: %q", len(lines), out)
	}
	for _, line := range lines {
		if got := strings.Count(line, ","); got < 4 {
			t.Fatalf("expected at least 5 columns in %q, got %d commas", line, got)
		}
	}
	if !strings.Contains(lines[1], "loop,") && !strings.Contains(lines[2], "loop,") {
		t.Fatalf("expected one row with errortype=loop, got %q", out)
	}
	if !strings.Contains(lines[1], "mismatch,") && !strings.Contains(lines[2], "mismatch,") {
		t.Fatalf("expected one row with errortype=mismatch, got %q", out)
	}
}
