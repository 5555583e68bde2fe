// Package sample defines the immutable value types produced by every
// datasource backend: interfaces, nodes, and the four measurement kinds.
package sample

import "time"

// Interface is a router port identified by its owning node, its human
// interface label, and the free-form description an operator attached to
// it. Two Interfaces are equal iff all three fields match.
type Interface struct {
	Node        string
	InterfaceID string
	Description string
}

// Less orders Interfaces for deterministic iteration: by node, then by
// interface ID.
func (i Interface) Less(other Interface) bool {
	if i.Node != other.Node {
		return i.Node < other.Node
	}
	return i.InterfaceID < other.InterfaceID
}

func (i Interface) String() string {
	return i.Node + ":" + i.InterfaceID
}

// Node is a device known to a backend. SourceTag identifies which backend
// produced it; names are unique within one backend's roster.
type Node struct {
	Name      string
	SourceTag string
}

// State is the administrative/operational state of an interface.
type State int

const (
	StateUnknown State = iota
	StateUp
	StateDown
	StateShut
	StateErrDisable
)

func (s State) String() string {
	switch s {
	case StateUp:
		return "up"
	case StateDown:
		return "down"
	case StateShut:
		return "shut"
	case StateErrDisable:
		return "errdisable"
	default:
		return "unknown"
	}
}

// ParseVendorState normalizes the TSDB's "im-state-*" vendor strings into
// State. Unrecognized strings map to StateUnknown, never an error: state
// normalization failure is not exceptional, it is the common case for a
// backend that doesn't emit line-state telemetry.
func ParseVendorState(raw string) State {
	switch raw {
	case "im-state-up":
		return StateUp
	case "im-state-down":
		return StateDown
	case "im-state-admin-down":
		return StateShut
	case "im-state-err-disable":
		return StateErrDisable
	default:
		return StateUnknown
	}
}

// StateSample carries a normalized State with its provenance.
type StateSample struct {
	Value     State
	SourceTag string
	Timestamp time.Time
}

// Rate carries input/output bitrate and the interface's negotiated
// bandwidth, all in bits per second.
type Rate struct {
	InBps        float64
	OutBps       float64
	BandwidthBps float64
	SourceTag    string
	Timestamp    time.Time
}

// Reverse swaps In/Out, preserving Bandwidth. Used by the enrichment engine
// to attach a target-side Rate to a link's source-side perspective.
func (r Rate) Reverse() Rate {
	r.InBps, r.OutBps = r.OutBps, r.InBps
	return r
}

// Optic carries optical receive/transmit power and laser bias current.
type Optic struct {
	RxDBm     float64
	TxDBm     float64
	LbcMA     float64
	SourceTag string
	Timestamp time.Time
}

// HistoricRate is one bucket of a historic rate series. OK is false when
// the backend had no bandwidth sample for this bucket; the bucket is
// still emitted, carrying only its timestamp, so its index stays aligned
// with the sibling series (state, optics) sampled at the same interval.
type HistoricRate struct {
	Rate
	OK bool
}

// Reverse swaps In/Out on the embedded Rate, preserving OK and Timestamp.
func (r HistoricRate) Reverse() HistoricRate {
	r.Rate = r.Rate.Reverse()
	return r
}

// HistoricOptic is one bucket of a historic optic series. See HistoricRate.
type HistoricOptic struct {
	Optic
	OK bool
}

// Counter carries cumulative interface error/drop counters and the
// derived packet-loss ratio.
type Counter struct {
	CRCErrors       uint64
	InputErrors     uint64
	PacketsReceived uint64
	OutputDrops     uint64
	SourceTag       string
	Timestamp       time.Time
}

// PacketLoss returns InputErrors/PacketsReceived, or 0 when no packets
// have been received (avoids a division by zero rather than reporting
// NaN up through the API).
func (c Counter) PacketLoss() float64 {
	if c.PacketsReceived == 0 {
		return 0
	}
	return float64(c.InputErrors) / float64(c.PacketsReceived)
}
