// Package topology parses interface descriptions into candidate remote
// endpoints, verifies them bidirectionally, and enumerates links and
// nodes over a snapshot of interfaces pulled from the merged datasource.
package topology

import (
	"fmt"
	"sort"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/netweather/weathermap/internal/config"
	"github.com/netweather/weathermap/internal/parser"
	"github.com/netweather/weathermap/internal/sample"
)

// Matcher verifies link candidates and enumerates links/nodes from a
// snapshot of interfaces. It owns the process-wide deduplicated
// verification-error set; all other state is passed in per call, never
// cached here (caching lives one layer up, in the enrichment engine's
// TTL caches).
type Matcher struct {
	cfg    config.TopologyConfig
	errors *xsync.Map[string, *sample.VerificationError]
}

// New builds a Matcher over the given topology heuristics.
func New(cfg config.TopologyConfig) *Matcher {
	return &Matcher{
		cfg:    cfg,
		errors: xsync.NewMap[string, *sample.VerificationError](),
	}
}

// VerifyLink succeeds iff each side's description parses to a
// (remote_node, remote_interface) hint that is a substring match against
// the other side's actual node and interface ID, and the two sides are
// on different nodes. Every failure is recorded (deduplicated by message)
// in the Matcher's verification-error set before being returned.
func (m *Matcher) VerifyLink(local, remote sample.Interface) error {
	lp := parser.ParseDescription(local.Description, m.cfg.NodeExcludeList)
	rp := parser.ParseDescription(remote.Description, m.cfg.NodeExcludeList)

	if lp == nil || rp == nil {
		return m.record(&sample.VerificationError{
			Class:   sample.ClassUnparsable,
			Source:  local,
			Message: fmt.Sprintf("unparsable: %s (%q) <-> %s (%q)", local, local.Description, remote, remote.Description),
		})
	}
	if local.Node == remote.Node {
		return m.record(&sample.VerificationError{
			Class:        sample.ClassLoop,
			Source:       local,
			ParsedRemote: rp.Node,
			Expected:     local.Node,
			Message:      fmt.Sprintf("loop: %s and %s both on node %s", local, remote, local.Node),
		})
	}
	if !strings.Contains(local.InterfaceID, rp.InterfaceID) || !strings.Contains(remote.InterfaceID, lp.InterfaceID) {
		return m.record(&sample.VerificationError{
			Class:        sample.ClassMismatchInterface,
			Source:       local,
			ParsedRemote: rp.InterfaceID,
			Expected:     remote.InterfaceID,
			Message:      fmt.Sprintf("mismatch_interface: %s parsed remote interface %q not found in %s", local, rp.InterfaceID, remote),
		})
	}
	if !strings.Contains(local.Node, rp.Node) || !strings.Contains(remote.Node, lp.Node) {
		return m.record(&sample.VerificationError{
			Class:        sample.ClassMismatchNode,
			Source:       local,
			ParsedRemote: rp.Node,
			Expected:     remote.Node,
			Message:      fmt.Sprintf("mismatch_node: %s parsed remote node %q not found in %s", local, rp.Node, remote),
		})
	}
	return nil
}

func (m *Matcher) record(verr *sample.VerificationError) error {
	m.errors.LoadOrStore(verr.Message, verr)
	return verr
}

// ResetDiscoverErrors clears the accumulated verification-error set.
func (m *Matcher) ResetDiscoverErrors() {
	m.errors = xsync.NewMap[string, *sample.VerificationError]()
}

// filterOwnerAndDescription returns the subset of ifaces eligible for
// enumeration: owner node contains one of filters, description contains
// one of filters and none of the topology's description exclude-list.
func (m *Matcher) filterOwnerAndDescription(ifaces []sample.Interface, filters []string) []sample.Interface {
	var out []sample.Interface
	for _, iface := range ifaces {
		if !parser.CheckDescription(iface.Description, m.cfg.DescriptionPrefixExcludeList) {
			continue
		}
		if !parser.CheckInterfaceName(iface.InterfaceID, true) {
			continue
		}
		if !containsAny(iface.Node, filters) || !containsAny(iface.Description, filters) {
			continue
		}
		if containsAny(iface.Description, m.cfg.DescriptionExcludeList) {
			continue
		}
		out = append(out, iface)
	}
	return out
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// sharedFilterMatch reports whether some filter string matches both a and
// b, i.e. ∃ f ∈ filters: f∈a && f∈b. Matching each side against its own
// first filter independently is not equivalent: with overlapping
// multi-filter input, a's first match and b's first match can be
// different filters even when some single filter matches both.
func sharedFilterMatch(a, b string, filters []string) bool {
	for _, f := range filters {
		if strings.Contains(a, f) && strings.Contains(b, f) {
			return true
		}
	}
	return false
}

// GetLinksBetween enumerates verified links among interfaces whose owner
// node and description both contain one of the given filter strings.
// When skipSelf is true, a candidate whose owner node and description
// matched the *same* filter string is dropped (it would pair with itself
// under a broad filter like a single shared substring).
func (m *Matcher) GetLinksBetween(ifaces []sample.Interface, filters []string, skipSelf bool) []sample.Link {
	candidates := m.filterOwnerAndDescription(ifaces, filters)
	if skipSelf {
		filtered := candidates[:0:0]
		for _, c := range candidates {
			if sharedFilterMatch(c.Node, c.Description, filters) {
				continue
			}
			filtered = append(filtered, c)
		}
		candidates = filtered
	}

	paired := make(map[sample.Interface]bool)
	var links []sample.Link
	for i, local := range candidates {
		if paired[local] {
			continue
		}
		hint := parser.ParseDescription(local.Description, m.cfg.NodeExcludeList)
		if hint == nil {
			continue
		}
		for j, remote := range candidates {
			if i == j || paired[remote] {
				continue
			}
			if !strings.Contains(remote.Node, hint.Node) || !strings.Contains(remote.InterfaceID, hint.InterfaceID) {
				continue
			}
			if err := m.VerifyLink(local, remote); err != nil {
				continue
			}
			links = append(links, sample.Link{Source: local, Target: remote})
			paired[local] = true
			paired[remote] = true
			break
		}
	}
	sample.SortLinks(links)
	return links
}

// GetLinksRemote enumerates unverified Remote endpoints: candidates must
// contain at least one REMOTE_INCLUDELIST token, and match one of the
// given remote labels. A label of the form "X--Y" is a locality filter:
// the candidate's node must additionally contain Y, and the label
// returned is the full "X--Y" string.
func (m *Matcher) GetLinksRemote(ifaces []sample.Interface, nodes, remotes []string) []sample.Endpoint {
	var candidates []sample.Interface
	for _, iface := range ifaces {
		if !containsAny(iface.Node, nodes) {
			continue
		}
		if !parser.CheckInterfaceName(iface.InterfaceID, false) {
			continue
		}
		if !containsAny(iface.Description, m.cfg.RemoteIncludeList) {
			continue
		}
		candidates = append(candidates, iface)
	}

	var out []sample.Endpoint
	for _, c := range candidates {
		for _, remote := range remotes {
			label, locality, ok := splitLocality(remote)
			if ok {
				if !strings.Contains(c.Node, locality) {
					continue
				}
			} else {
				label = remote
			}
			if strings.Contains(c.Description, label) {
				out = append(out, sample.NewOpen(c, remote))
				break
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Local != out[j].Local {
			return out[i].Local.Less(out[j].Local)
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// splitLocality splits a remote label of the form "X--Y" into (X, Y,
// true); returns ("", "", false) when remote carries no locality filter.
func splitLocality(remote string) (label, locality string, ok bool) {
	idx := strings.Index(remote, "--")
	if idx < 0 {
		return "", "", false
	}
	return remote[:idx], remote[idx+2:], true
}

// DiscoveredNode is one node in a DiscoverNodes result.
type DiscoveredNode struct {
	ID    string
	Group string
}

// DiscoveredLink is one link in a DiscoverNodes result, by node name
// only (no interface detail, matching the original's discovery shape).
type DiscoveredLink struct {
	Source string
	Target string
}

// Discovery is the output of DiscoverNodes: every matched node plus
// every link found between them.
type Discovery struct {
	Nodes []DiscoveredNode
	Links []DiscoveredLink
}

// groupOf returns a node name's first NodeSeparator-split segment.
func groupOf(node, sep string) string {
	if sep == "" {
		return node
	}
	if idx := strings.Index(node, sep); idx >= 0 {
		return node[:idx]
	}
	return node
}

// nodePrefix returns the first NodeNumSegments separator-joined segments
// of a node name, used as an additional remote-match concession in
// DiscoverNodes.
func nodePrefix(node, sep string, segments int) string {
	if sep == "" || segments <= 0 {
		return node
	}
	parts := strings.Split(node, sep)
	if len(parts) > segments {
		parts = parts[:segments]
	}
	return strings.Join(parts, sep)
}

// DiscoverNodes enumerates nodes whose name contains filter, then runs
// the matcher over their interfaces with the added concession that a
// parsed remote node may match the local node's prefix segment (not just
// a plain substring) rather than the full name. When includeOrphans is
// false, nodes touched by no emitted link are dropped from the result.
func (m *Matcher) DiscoverNodes(ifaces []sample.Interface, filter string, includeOrphans bool) Discovery {
	nodeSet := make(map[string]bool)
	for _, iface := range ifaces {
		if filter == "" || strings.Contains(iface.Node, filter) {
			nodeSet[iface.Node] = true
		}
	}

	candidates := m.filterOwnerAndDescription(ifaces, []string{filter})

	paired := make(map[sample.Interface]bool)
	touched := make(map[string]bool)
	var links []sample.Link
	for i, local := range candidates {
		if paired[local] {
			continue
		}
		hint := parser.ParseDescription(local.Description, m.cfg.NodeExcludeList)
		if hint == nil {
			continue
		}
		for j, remote := range candidates {
			if i == j || paired[remote] {
				continue
			}
			prefix := nodePrefix(remote.Node, m.cfg.NodeSeparator, m.cfg.NodeNumSegments)
			if !strings.Contains(remote.Node, hint.Node) && !strings.Contains(prefix, hint.Node) {
				continue
			}
			if !strings.Contains(remote.InterfaceID, hint.InterfaceID) {
				continue
			}
			if err := m.VerifyLink(local, remote); err != nil {
				continue
			}
			links = append(links, sample.Link{Source: local, Target: remote})
			paired[local] = true
			paired[remote] = true
			touched[local.Node] = true
			touched[remote.Node] = true
			break
		}
	}
	sample.SortLinks(links)

	var nodes []DiscoveredNode
	for name := range nodeSet {
		if !includeOrphans && !touched[name] {
			continue
		}
		nodes = append(nodes, DiscoveredNode{ID: name, Group: groupOf(name, m.cfg.NodeSeparator)})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	discoveredLinks := make([]DiscoveredLink, 0, len(links))
	for _, l := range links {
		discoveredLinks = append(discoveredLinks, DiscoveredLink{Source: l.Source.Node, Target: l.Target.Node})
	}

	return Discovery{Nodes: nodes, Links: discoveredLinks}
}

// DiscoverOrphanNodes returns only the nodes DiscoverNodes would drop
// when includeOrphans=false: those touched by no emitted link.
func (m *Matcher) DiscoverOrphanNodes(ifaces []sample.Interface, filter string) []DiscoveredNode {
	all := m.DiscoverNodes(ifaces, filter, true)
	touched := make(map[string]bool, len(all.Links)*2)
	for _, l := range all.Links {
		touched[l.Source] = true
		touched[l.Target] = true
	}
	var orphans []DiscoveredNode
	for _, n := range all.Nodes {
		if !touched[n.ID] {
			orphans = append(orphans, n)
		}
	}
	return orphans
}
