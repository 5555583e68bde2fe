package snmp

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/netweather/weathermap/internal/config"
	"github.com/netweather/weathermap/internal/sample"
	"github.com/netweather/weathermap/internal/scanloop"
)

// hostState is the latest polled snapshot for one host, guarded by its
// own mutex so a poll cycle for host A never blocks a GetX call reading
// host B's snapshot.
type hostState struct {
	mu sync.Mutex

	ifaceByIndex  map[string]string // interface OID index -> interface name
	opticByIndex  map[string]string // optic sensor OID index -> "<iface> <sensor>"
	prevInBytes   map[string]counterSample
	prevOutBytes  map[string]counterSample
	descriptions  map[string]string
	states        map[string]sample.StateSample
	rates         map[string]sample.Rate
	optics        map[string]sample.Optic
	bandwidthsBps map[string]float64
}

func newHostState() *hostState {
	return &hostState{
		ifaceByIndex:  make(map[string]string),
		opticByIndex:  make(map[string]string),
		prevInBytes:   make(map[string]counterSample),
		prevOutBytes:  make(map[string]counterSample),
		descriptions:  make(map[string]string),
		states:        make(map[string]sample.StateSample),
		rates:         make(map[string]sample.Rate),
		optics:        make(map[string]sample.Optic),
		bandwidthsBps: make(map[string]float64),
	}
}

type host struct {
	addr    string
	session Session
	state   *hostState
}

// Poller runs the background SNMP poll loop: one cycle per host every
// PollInterval, with a retry sweep over hosts that failed to connect
// every 10 cycles. Dial is overridable in tests so the loop can run
// against a fake Session.
type Poller struct {
	cfg    config.SNMPConfig
	logger *zap.SugaredLogger
	dial   func(host, community string) (Session, error)

	hosts   *xsync.Map[string, *host]
	failed  *xsync.Map[string, struct{}]
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewPoller builds a Poller and attempts an initial connection to every
// configured host. Hosts that fail to connect are queued for retry
// rather than failing startup — a single unreachable router must not
// block the rest of the fleet.
func NewPoller(cfg config.SNMPConfig, logger *zap.SugaredLogger) *Poller {
	p := &Poller{
		cfg:    cfg,
		logger: logger,
		dial:   Dial,
		hosts:  xsync.NewMap[string, *host](),
		failed: xsync.NewMap[string, struct{}](),
		stopCh: make(chan struct{}),
	}
	for _, addr := range cfg.Hosts {
		p.connectHost(addr)
	}
	return p
}

func (p *Poller) connectHost(addr string) {
	session, err := p.dial(addr, p.cfg.Community)
	if err != nil {
		if p.logger != nil {
			p.logger.Warnw("snmp: failed to connect, queued for retry", "host", addr, "error", err)
		}
		p.failed.Store(addr, struct{}{})
		return
	}
	p.hosts.Store(addr, &host{addr: addr, session: session, state: newHostState()})
	p.failed.Delete(addr)
}

// Start launches the background poll loop.
func (p *Poller) Start() {
	if p.started {
		return
	}
	p.started = true
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		cycle := 0
		scanloop.Run(p.stopCh, p.cfg.PollInterval, p.cfg.PollInterval/4, func() {
			cycle++
			if cycle >= 10 {
				cycle = 0
				p.retryFailedHosts()
			}
			p.pollAllHosts()
		})
	}()
}

// Stop signals the poll loop to exit and waits for it to finish, closing
// every open session.
func (p *Poller) Stop() {
	close(p.stopCh)
	p.wg.Wait()
	p.hosts.Range(func(_ string, h *host) bool {
		h.session.Close()
		return true
	})
}

func (p *Poller) retryFailedHosts() {
	p.failed.Range(func(addr string, _ struct{}) bool {
		if p.logger != nil {
			p.logger.Infow("snmp: retrying failed host", "host", addr)
		}
		p.connectHost(addr)
		return true
	})
}

func (p *Poller) pollAllHosts() {
	p.hosts.Range(func(addr string, h *host) bool {
		if err := pollHost(h, p.cfg); err != nil && p.logger != nil {
			p.logger.Warnw("snmp: poll cycle failed", "host", addr, "error", err)
		}
		return true
	})
}

// Hostnames returns the configured host addresses, successfully
// connected or not — GetNodes reports every configured host regardless
// of live connectivity, matching the source system's "host list is
// given in config" behavior.
func (p *Poller) Hostnames() []string {
	return append([]string(nil), p.cfg.Hosts...)
}

func (p *Poller) snapshot(addr string) (*hostState, bool) {
	h, ok := p.hosts.Load(addr)
	if !ok {
		return nil, false
	}
	return h.state, true
}

// snapshotDescriptions, snapshotStates, snapshotRates, snapshotOptics
// each return a defensive copy of the corresponding map so callers never
// observe a poll cycle's partial write.

func (p *Poller) snapshotDescriptions(addr string) map[string]string {
	st, ok := p.snapshot(addr)
	if !ok {
		return map[string]string{}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make(map[string]string, len(st.descriptions))
	for k, v := range st.descriptions {
		out[k] = v
	}
	return out
}

func (p *Poller) snapshotStates(addr string) map[string]sample.StateSample {
	st, ok := p.snapshot(addr)
	if !ok {
		return map[string]sample.StateSample{}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make(map[string]sample.StateSample, len(st.states))
	for k, v := range st.states {
		out[k] = v
	}
	return out
}

func (p *Poller) snapshotRates(addr string) map[string]sample.Rate {
	st, ok := p.snapshot(addr)
	if !ok {
		return map[string]sample.Rate{}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make(map[string]sample.Rate, len(st.rates))
	for k, v := range st.rates {
		out[k] = v
	}
	return out
}

func (p *Poller) snapshotOptics(addr string) map[string]sample.Optic {
	st, ok := p.snapshot(addr)
	if !ok {
		return map[string]sample.Optic{}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make(map[string]sample.Optic, len(st.optics))
	for k, v := range st.optics {
		out[k] = v
	}
	return out
}
