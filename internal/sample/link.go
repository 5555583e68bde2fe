package sample

import (
	"sort"
	"time"

	"github.com/zeebo/xxh3"
)

// Link is an unordered pair of verified interfaces plus the measurements
// attached to each side. Equality and Hash are orientation-independent:
// {A,B} == {B,A}.
type Link struct {
	Source Interface
	Target Interface

	State        State
	InRateBps    float64
	OutRateBps   float64
	BandwidthBps float64

	SourceHealth Health
	TargetHealth Health

	SourceOptic Optic
	TargetOptic Optic

	DataSource string
	Timestamp  time.Time
}

// Health is the per-endpoint error/drop view attached to a Link.
type Health struct {
	CRCErrors   uint64
	InputErrors uint64
	PacketLoss  float64
	OutputDrops uint64
}

// ends returns Source and Target in canonical (sorted) order, so Equal
// and Hash don't care which side a caller happened to populate first.
func (l Link) ends() (Interface, Interface) {
	if l.Source.Less(l.Target) {
		return l.Source, l.Target
	}
	return l.Target, l.Source
}

// Equal reports whether two Links share the same endpoint pair, ignoring
// orientation and measurement fields.
func (l Link) Equal(other Link) bool {
	a1, a2 := l.ends()
	b1, b2 := other.ends()
	return a1 == b1 && a2 == b2
}

// Hash returns an orientation-independent hash of the Link's endpoint
// pair, using the canonical-bytes-then-xxh3 technique.
func (l Link) Hash() uint64 {
	a, b := l.ends()
	buf := a.Node + "\x00" + a.InterfaceID + "\x00" + b.Node + "\x00" + b.InterfaceID
	return xxh3.HashString(buf)
}

// MeasurementKind tags which field of a Measurement is populated.
type MeasurementKind int

const (
	MeasurementState MeasurementKind = iota
	MeasurementRate
	MeasurementOptic
	MeasurementCounter
)

// Measurement is a tagged union of the four sample kinds a Link can
// absorb. Replaces the source's reflective per-attribute population: the
// caller populates the matching field and calls the per-kind method
// (ApplyState, ApplyRate, ApplyOptic or ApplyCounter); Kind is not read
// by those methods.
type Measurement struct {
	Kind    MeasurementKind
	State   StateSample
	Rate    Rate
	Optic   Optic
	Counter Counter
}

// Side selects which endpoint of a Link a measurement applies to.
type Side int

const (
	SideSource Side = iota
	SideTarget
)

// ApplyState sets a Link's administrative state. Mirrors the source's
// set_state: DataSource/Timestamp are only overwritten if not already
// set. This asymmetry with ApplyRate/ApplyOptic/ApplyCounter (which
// always overwrite) is preserved as observed upstream behavior rather
// than normalized away — see SPEC_FULL.md §9.
func (l *Link) ApplyState(m Measurement) {
	l.State = m.State.Value
	if l.DataSource == "" {
		l.DataSource = m.State.SourceTag
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = m.State.Timestamp
	}
}

// ApplyRate sets a Link's rate fields for the given side, always
// overwriting DataSource/Timestamp.
func (l *Link) ApplyRate(side Side, m Measurement) {
	r := m.Rate
	if side == SideTarget {
		r = r.Reverse()
	}
	l.InRateBps = r.InBps
	l.OutRateBps = r.OutBps
	l.BandwidthBps = r.BandwidthBps
	l.DataSource = m.Rate.SourceTag
	l.Timestamp = m.Rate.Timestamp
}

// ApplyOptic sets a Link's optical fields for the given side.
func (l *Link) ApplyOptic(side Side, m Measurement) {
	if side == SideSource {
		l.SourceOptic = m.Optic
	} else {
		l.TargetOptic = m.Optic
	}
	l.DataSource = m.Optic.SourceTag
	l.Timestamp = m.Optic.Timestamp
}

// ApplyCounter sets a Link's per-endpoint health fields for the given
// side.
func (l *Link) ApplyCounter(side Side, m Measurement) {
	h := Health{
		CRCErrors:   m.Counter.CRCErrors,
		InputErrors: m.Counter.InputErrors,
		PacketLoss:  m.Counter.PacketLoss(),
		OutputDrops: m.Counter.OutputDrops,
	}
	if side == SideSource {
		l.SourceHealth = h
	} else {
		l.TargetHealth = h
	}
	l.DataSource = m.Counter.SourceTag
	l.Timestamp = m.Counter.Timestamp
}

// SortLinks sorts a slice of Links by their canonical endpoint pair, for
// deterministic output ordering.
func SortLinks(links []Link) {
	sort.Slice(links, func(i, j int) bool {
		a1, a2 := links[i].ends()
		b1, b2 := links[j].ends()
		if a1 != b1 {
			return a1.Less(b1)
		}
		return a2.Less(b2)
	})
}

// Endpoint is a tagged variant distinguishing a verified link side (Pair)
// from an unverified remote label (Open). Replaces the source's Remote,
// which subclassed Link and deleted its target attribute — see
// SPEC_FULL.md §9.
type Endpoint struct {
	Local  Interface
	Remote Interface // populated only when Paired
	Label  string    // populated only when !Paired
	Paired bool
}

// NewPair builds a verified Pair endpoint.
func NewPair(local, remote Interface) Endpoint {
	return Endpoint{Local: local, Remote: remote, Paired: true}
}

// NewOpen builds an unverified Open endpoint carrying only a remote
// label.
func NewOpen(local Interface, label string) Endpoint {
	return Endpoint{Local: local, Label: label, Paired: false}
}

// Equal compares Local and, depending on variant, Remote or Label.
func (e Endpoint) Equal(other Endpoint) bool {
	if e.Local != other.Local || e.Paired != other.Paired {
		return false
	}
	if e.Paired {
		return e.Remote == other.Remote
	}
	return e.Label == other.Label
}
