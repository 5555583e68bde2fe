package tsdb

// normalizeRate converts the kbps values InfluxDB stores into bps.
func normalizeRate(inKbps, outKbps, bwKbps float64) (in, out, bw float64) {
	return inKbps * 1000, outKbps * 1000, bwKbps * 1000
}

// normalizeOptic converts raw centi-dBm/centi-mA sensor readings into
// dBm/mA, then compensates for the IOS-XR 100G laser-bias-current bug
// where LBC reports 10x too high.
func normalizeOptic(rxRaw, txRaw, lbcRaw float64) (rx, tx, lbc float64) {
	rx, tx, lbc = rxRaw/100, txRaw/100, lbcRaw/100
	if lbc > 100 {
		rx, tx, lbc = rx/10, tx/10, lbc/10
	}
	return
}

// opticInterfaceName extracts the real interface name from the optic
// sensor's tag name, which InfluxDB stores suffixed with "Optics" (e.g.
// "TenGigE0/0/0/1Optics" -> "TenGigE0/0/0/1").
func opticInterfaceName(sensorName string) string {
	return trimOpticsSuffix(sensorName)
}

func trimOpticsSuffix(s string) string {
	const suffix = "Optics"
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)]
	}
	return s
}
