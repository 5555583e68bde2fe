package snmp

import (
	"strings"
	"time"

	"github.com/netweather/weathermap/internal/config"
	"github.com/netweather/weathermap/internal/sample"
)

const tag = "snmp"

// pollHost runs one poll cycle against a single host: refresh the
// interface and optic-sensor index if empty, walk operational state and
// octet counters, derive rates from the previous cycle's counters, and
// walk entity sensors for optic readings.
func pollHost(h *host, cfg config.SNMPConfig) error {
	now := time.Now()

	h.state.mu.Lock()
	needsIfaceMap := len(h.state.ifaceByIndex) == 0
	h.state.mu.Unlock()
	if needsIfaceMap {
		if err := mapInterfaces(h, cfg); err != nil {
			return err
		}
		if err := mapOpticSensors(h, cfg); err != nil {
			return err
		}
	}

	descByIdx := make(map[string]string)
	if err := h.session.BulkWalk(cfg.IfDescOID, func(index, value string) {
		descByIdx[index] = value
	}); err != nil {
		return err
	}

	statusByIdx := make(map[string]string)
	if err := h.session.BulkWalk(cfg.IfOperStatusOID, func(index, value string) {
		statusByIdx[index] = value
	}); err != nil {
		return err
	}

	inByIdx := make(map[string]uint64)
	if err := h.session.BulkWalk(cfg.IfInOctetsOID, func(index, value string) {
		if v, ok := parseUint64(value); ok {
			inByIdx[index] = v
		}
	}); err != nil {
		return err
	}

	outByIdx := make(map[string]uint64)
	if err := h.session.BulkWalk(cfg.IfOutOctetsOID, func(index, value string) {
		if v, ok := parseUint64(value); ok {
			outByIdx[index] = v
		}
	}); err != nil {
		return err
	}

	speedByIdx := make(map[string]uint64)
	if err := h.session.BulkWalk(cfg.IfHighSpeedOID, func(index, value string) {
		if v, ok := parseUint64(value); ok {
			speedByIdx[index] = v
		}
	}); err != nil {
		return err
	}

	sensorByIdx := make(map[string]float64)
	if err := h.session.BulkWalk(cfg.OpticSensorOID, func(index, value string) {
		if v, ok := parseInt64(value); ok {
			sensorByIdx[index] = float64(v)
		}
	}); err != nil {
		return err
	}

	h.state.mu.Lock()
	defer h.state.mu.Unlock()

	for idx, iface := range h.state.ifaceByIndex {
		if desc, ok := descByIdx[idx]; ok {
			h.state.descriptions[iface] = desc
		}
		if status, ok := statusByIdx[idx]; ok {
			h.state.states[iface] = sample.StateSample{
				Value:     operStatusToState(status),
				SourceTag: tag,
				Timestamp: now,
			}
		}
		if mbps, ok := speedByIdx[idx]; ok {
			h.state.bandwidthsBps[iface] = float64(mbps) * 1_000_000
		}

		inBytes, haveIn := inByIdx[idx]
		outBytes, haveOut := outByIdx[idx]
		if !haveIn || !haveOut {
			continue
		}
		curIn := counterSample{bytes: inBytes, at: now}
		curOut := counterSample{bytes: outBytes, at: now}
		rate := sample.Rate{BandwidthBps: h.state.bandwidthsBps[iface], SourceTag: tag, Timestamp: now}
		if prev, ok := h.state.prevInBytes[idx]; ok {
			if bps, ok := deltaRate(prev, curIn); ok {
				rate.InBps = bps
			}
		}
		if prev, ok := h.state.prevOutBytes[idx]; ok {
			if bps, ok := deltaRate(prev, curOut); ok {
				rate.OutBps = bps
			}
		}
		if _, seen := h.state.prevInBytes[idx]; seen {
			h.state.rates[iface] = rate // the first observation yields no rate
		}
		h.state.prevInBytes[idx] = curIn
		h.state.prevOutBytes[idx] = curOut
	}

	opticByIface := make(map[string]sample.Optic)
	for idx, label := range h.state.opticByIndex {
		v, ok := sensorByIdx[idx]
		if !ok {
			continue
		}
		iface, kind := splitOpticLabel(label)
		if iface == "" {
			continue
		}
		optic := opticByIface[iface]
		optic.SourceTag = tag
		optic.Timestamp = now
		switch kind {
		case "rx":
			optic.RxDBm = v / 10
		case "tx":
			optic.TxDBm = v / 10
		case "lbc":
			optic.LbcMA = v / 10
		}
		opticByIface[iface] = optic
	}
	for iface, optic := range opticByIface {
		h.state.optics[iface] = optic
	}

	return nil
}

func mapInterfaces(h *host, cfg config.SNMPConfig) error {
	m := make(map[string]string)
	if err := h.session.BulkWalk(cfg.IfNameOID, func(index, value string) {
		m[index] = value
	}); err != nil {
		return err
	}
	h.state.mu.Lock()
	h.state.ifaceByIndex = m
	h.state.mu.Unlock()
	return nil
}

// mapOpticSensors builds an index-to-label map where label is
// "<interface> <rx|tx|lbc>". The sensor kind is recognized by matching
// its entity name against the configured sensor-name tokens; the owning
// interface is recovered by matching the entity name's numeric key
// against the interfaces already discovered via mapInterfaces.
func mapOpticSensors(h *host, cfg config.SNMPConfig) error {
	h.state.mu.Lock()
	ifaces := make([]string, 0, len(h.state.ifaceByIndex))
	for _, name := range h.state.ifaceByIndex {
		ifaces = append(ifaces, name)
	}
	h.state.mu.Unlock()

	m := make(map[string]string)
	if err := h.session.BulkWalk(cfg.OpticNameOID, func(index, value string) {
		label := matchOpticLabel(value, ifaces, cfg)
		if label != "" {
			m[index] = label
		}
	}); err != nil {
		return err
	}
	h.state.mu.Lock()
	h.state.opticByIndex = m
	h.state.mu.Unlock()
	return nil
}

func matchOpticLabel(entityName string, ifaces []string, cfg config.SNMPConfig) string {
	var kind string
	switch {
	case strings.Contains(entityName, cfg.OpticRxSensorName):
		kind = "rx"
	case strings.Contains(entityName, cfg.OpticTxSensorName):
		kind = "tx"
	case strings.Contains(entityName, cfg.OpticLbcSensorName):
		kind = "lbc"
	default:
		return ""
	}
	entityKey := opticInterfaceKey(entityName)
	if entityKey == "" {
		return ""
	}
	for _, iface := range ifaces {
		if opticInterfaceKey(iface) == entityKey {
			return iface + " " + kind
		}
	}
	return ""
}

func splitOpticLabel(label string) (iface, kind string) {
	i := strings.LastIndexByte(label, ' ')
	if i < 0 {
		return "", ""
	}
	return label[:i], label[i+1:]
}

func operStatusToState(raw string) sample.State {
	switch strings.TrimSpace(raw) {
	case "1":
		return sample.StateUp
	case "2":
		return sample.StateDown
	default:
		return sample.StateUnknown
	}
}
