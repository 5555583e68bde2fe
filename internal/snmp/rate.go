package snmp

import (
	"strconv"
	"strings"
	"time"
)

// counterSample is a single byte-counter reading with the time it was
// taken, kept per interface so the next poll can derive a rate from the
// delta.
type counterSample struct {
	bytes uint64
	at    time.Time
}

// deltaRate computes bits-per-second from two byte-counter readings. It
// reports ok=false when the elapsed time is too small to trust (under a
// second) or the counter went backwards (a device reset or 32-bit
// counter wraparound neither side of this computes unwrap logic for).
func deltaRate(prev, cur counterSample) (bps float64, ok bool) {
	elapsed := cur.at.Sub(prev.at)
	if elapsed < time.Second {
		return 0, false
	}
	if cur.bytes < prev.bytes {
		return 0, false
	}
	deltaBytes := cur.bytes - prev.bytes
	return float64(deltaBytes) * 8 / elapsed.Seconds(), true
}

// opticInterfaceKey strips everything but digits and slashes from an
// interface name, turning "TenGigE0/0/0/1" into "0/0/0/1" so it can be
// joined back against the numeric suffix other backends key optics by.
func opticInterfaceKey(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= '0' && r <= '9') || r == '/' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseUint64 parses a counter value rendered as a decimal string,
// tolerating the occasional negative/garbage reading a flaky device
// sends by reporting ok=false rather than panicking.
func parseUint64(s string) (uint64, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseInt64 parses an optic sensor reading rendered as a decimal
// string. Unlike octet counters, rx/tx power and bias current are
// signed quantities (a negative dBm reading is normal, not garbage).
func parseInt64(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
