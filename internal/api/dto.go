package api

import (
	"time"

	"github.com/netweather/weathermap/internal/enrichment"
	"github.com/netweather/weathermap/internal/sample"
)

// interfaceDTO is the wire shape of a sample.Interface.
type interfaceDTO struct {
	Node        string `json:"node"`
	InterfaceID string `json:"interface_id"`
	Description string `json:"description,omitempty"`
}

func newInterfaceDTO(i sample.Interface) interfaceDTO {
	return interfaceDTO{Node: i.Node, InterfaceID: i.InterfaceID, Description: i.Description}
}

type healthDTO struct {
	CRCErrors   uint64  `json:"crc_errors"`
	InputErrors uint64  `json:"input_errors"`
	PacketLoss  float64 `json:"packet_loss"`
	OutputDrops uint64  `json:"output_drops"`
}

func newHealthDTO(h sample.Health) healthDTO {
	return healthDTO{CRCErrors: h.CRCErrors, InputErrors: h.InputErrors, PacketLoss: h.PacketLoss, OutputDrops: h.OutputDrops}
}

type opticDTO struct {
	RxDBm float64 `json:"rx_dbm"`
	TxDBm float64 `json:"tx_dbm"`
	LbcMA float64 `json:"lbc_ma"`
}

func newOpticDTO(o sample.Optic) opticDTO {
	return opticDTO{RxDBm: o.RxDBm, TxDBm: o.TxDBm, LbcMA: o.LbcMA}
}

// linkDTO is the wire shape of a sample.Link, carrying every measurement
// kind at once; handlers populate whichever fields their enrichment call
// attached and leave the rest at zero value.
type linkDTO struct {
	Source interfaceDTO `json:"source"`
	Target interfaceDTO `json:"target"`
	State  string       `json:"state"`

	InRateBps    float64 `json:"in_rate_bps"`
	OutRateBps   float64 `json:"out_rate_bps"`
	BandwidthBps float64 `json:"bandwidth_bps"`

	SourceHealth healthDTO `json:"source_health"`
	TargetHealth healthDTO `json:"target_health"`

	SourceOptic opticDTO `json:"source_optic"`
	TargetOptic opticDTO `json:"target_optic"`

	DataSource string    `json:"data_source,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func newLinkDTO(l sample.Link) linkDTO {
	return linkDTO{
		Source:       newInterfaceDTO(l.Source),
		Target:       newInterfaceDTO(l.Target),
		State:        l.State.String(),
		InRateBps:    l.InRateBps,
		OutRateBps:   l.OutRateBps,
		BandwidthBps: l.BandwidthBps,
		SourceHealth: newHealthDTO(l.SourceHealth),
		TargetHealth: newHealthDTO(l.TargetHealth),
		SourceOptic:  newOpticDTO(l.SourceOptic),
		TargetOptic:  newOpticDTO(l.TargetOptic),
		DataSource:   l.DataSource,
		Timestamp:    l.Timestamp,
	}
}

func newLinkDTOs(links []sample.Link) []linkDTO {
	out := make([]linkDTO, len(links))
	for i, l := range links {
		out[i] = newLinkDTO(l)
	}
	return out
}

// endpointDTO is the wire shape of a sample.Endpoint.
type endpointDTO struct {
	Local  interfaceDTO  `json:"local"`
	Remote *interfaceDTO `json:"remote,omitempty"`
	Label  string        `json:"label,omitempty"`
}

func newEndpointDTO(e sample.Endpoint) endpointDTO {
	dto := endpointDTO{Local: newInterfaceDTO(e.Local)}
	if e.Paired {
		remote := newInterfaceDTO(e.Remote)
		dto.Remote = &remote
		return dto
	}
	dto.Label = e.Label
	return dto
}

func newEndpointDTOs(endpoints []sample.Endpoint) []endpointDTO {
	out := make([]endpointDTO, len(endpoints))
	for i, e := range endpoints {
		out[i] = newEndpointDTO(e)
	}
	return out
}

// snapshotDTO is the wire shape of a LinkSnapshot (one timeline step).
type snapshotDTO struct {
	Timestamp time.Time `json:"timestamp"`

	State string `json:"state,omitempty"`

	InBps        float64 `json:"in_bps,omitempty"`
	OutBps       float64 `json:"out_bps,omitempty"`
	BandwidthBps float64 `json:"bandwidth_bps,omitempty"`

	SourceOptic *opticDTO `json:"source_optic,omitempty"`
	TargetOptic *opticDTO `json:"target_optic,omitempty"`
}

// timelineDTO is the wire shape of a LinkTimeline.
type timelineDTO struct {
	Source    interfaceDTO  `json:"source"`
	Target    interfaceDTO  `json:"target"`
	Snapshots []snapshotDTO `json:"snapshots"`
}

func newSnapshotDTO(s enrichment.LinkSnapshot) snapshotDTO {
	dto := snapshotDTO{Timestamp: s.Timestamp}
	if s.HasState {
		dto.State = s.State.String()
	}
	if s.HasRate {
		dto.InBps, dto.OutBps, dto.BandwidthBps = s.InBps, s.OutBps, s.BandwidthBps
	}
	if s.HasSourceOptic {
		o := newOpticDTO(s.SourceOptic)
		dto.SourceOptic = &o
	}
	if s.HasTargetOptic {
		o := newOpticDTO(s.TargetOptic)
		dto.TargetOptic = &o
	}
	return dto
}

func newTimelineDTO(t enrichment.LinkTimeline) timelineDTO {
	dto := timelineDTO{
		Source:    newInterfaceDTO(t.Source),
		Target:    newInterfaceDTO(t.Target),
		Snapshots: make([]snapshotDTO, len(t.Snapshots)),
	}
	for i, s := range t.Snapshots {
		dto.Snapshots[i] = newSnapshotDTO(s)
	}
	return dto
}

func newTimelineDTOs(timelines []enrichment.LinkTimeline) []timelineDTO {
	out := make([]timelineDTO, len(timelines))
	for i, t := range timelines {
		out[i] = newTimelineDTO(t)
	}
	return out
}
