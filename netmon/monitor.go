/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package netmon

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/nabbar/wdproxy/logger"
	"github.com/nabbar/wdproxy/managedvec"
	"github.com/nabbar/wdproxy/metrics"
	"github.com/nabbar/wdproxy/port"
	"github.com/nabbar/wdproxy/target"
)

// maxDrainPerTick bounds how many queued telemetry messages Monitor applies
// before yielding back to its select loop, so one noisy port cannot starve
// audit ticks or shutdown checks.
const maxDrainPerTick = 256

// firstAuditDelay and auditPeriod implement the phase-offset audit clock:
// the first tick fires sooner than the steady-state cadence so a freshly
// started port gets an initial probe round without waiting a full period.
const (
	firstAuditDelay = 4 * time.Second
	auditPeriod     = 10 * time.Second
)

// probeKey identifies one in-flight health probe so AuditTick does not
// re-issue a HealthProbe for a target that already has one outstanding.
type probeKey struct {
	port uint16
	idx  uint16
}

// Monitor is the single-consumer mutator of Globals stats. Construct with
// New, feed it via ReportOK/ReportFail, and run its loop with Run.
type Monitor struct {
	globals   *port.Globals
	log       logger.Logger
	collector *metrics.Collector

	reqCh   chan Msg
	probeCh chan Msg

	mu          sync.Mutex
	probeFlight map[probeKey]struct{}
}

// WithCollector attaches a metrics.Collector so AuditTick publishes per-
// target health scores and per-port aggregate health as gauges. Optional:
// a Monitor with no collector simply skips the gauge updates.
func (m *Monitor) WithCollector(c *metrics.Collector) *Monitor {
	m.collector = c
	return m
}

// New builds a Monitor bound to globals. The telemetry channel is sized for
// awaited sends from the request path; the outbound HealthProbe channel is
// smaller since audit-originated probes tolerate drops.
func New(globals *port.Globals, log logger.Logger) *Monitor {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Monitor{
		globals:     globals,
		log:         log,
		reqCh:       make(chan Msg, 1024),
		probeCh:     make(chan Msg, 256),
		probeFlight: make(map[probeKey]struct{}),
	}
}

// Probes exposes the HealthProbe stream RequestWorker consumes.
func (m *Monitor) Probes() <-chan Msg {
	return m.probeCh
}

// ReportOK enqueues a successful forward/probe outcome. This is an awaited
// send (not try_send): request telemetry must not be silently dropped.
func (m *Monitor) ReportOK(ctx context.Context, portNumber uint16, serverIdx uint16, latencyMs uint16) error {
	msg := Msg{Kind: KindRequestOK, PortIdx: portNumber, ServerIdx: uint8(serverIdx), Timestamp: time.Now()}
	msg.Para16[0] = latencyMs
	return m.send(ctx, msg)
}

// ReportFail enqueues a failed forward/probe outcome with an opaque reason
// code (transport vs protocol failure) carried in Para16[0].
func (m *Monitor) ReportFail(ctx context.Context, portNumber uint16, serverIdx uint16, reasonCode uint16) error {
	msg := Msg{Kind: KindRequestFail, PortIdx: portNumber, ServerIdx: uint8(serverIdx), Timestamp: time.Now()}
	msg.Para16[0] = reasonCode
	return m.send(ctx, msg)
}

func (m *Monitor) send(ctx context.Context, msg Msg) error {
	select {
	case m.reqCh <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains telemetry and drives the audit clock until ctx is cancelled.
// It is the only goroutine that mutates InputPort/TargetServer stats.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("network monitor started", nil)

	firstTimer := time.NewTimer(firstAuditDelay)
	defer firstTimer.Stop()
	var ticker *time.Ticker

	for {
		select {
		case <-ctx.Done():
			if ticker != nil {
				ticker.Stop()
			}
			m.log.Info("network monitor shutting down", nil)
			return nil

		case msg := <-m.reqCh:
			m.apply(msg)
			m.drainBacklog()

		case <-firstTimer.C:
			m.auditTick()
			ticker = time.NewTicker(auditPeriod)

		case <-tickerC(ticker):
			m.auditTick()
		}
	}
}

// tickerC returns t.C, or nil when t is nil so the select case simply never
// fires (the standard Go idiom for an optional ticker in one select).
func tickerC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (m *Monitor) drainBacklog() {
	for i := 0; i < maxDrainPerTick; i++ {
		select {
		case msg := <-m.reqCh:
			m.apply(msg)
		default:
			return
		}
	}
}

func (m *Monitor) apply(msg Msg) {
	switch msg.Kind {
	case KindRequestOK:
		m.applyOK(msg)
	case KindRequestFail:
		m.applyFail(msg)
	}
}

func (m *Monitor) applyOK(msg Msg) {
	p := m.globals.Get(msg.PortIdx)
	if p == nil {
		return
	}
	if t := p.Target(msg.ServerIdx); t != nil {
		if msg.Para16[0] > 0 {
			t.Stats().ReportLatency(int32(msg.Para16[0]))
		} else {
			t.Stats().ReportOK()
		}
		m.clearInFlight(msg.PortIdx, msg.ServerIdx)
	}
	p.RecordOK(msg.Timestamp)
}

func (m *Monitor) applyFail(msg Msg) {
	p := m.globals.Get(msg.PortIdx)
	if p == nil {
		return
	}
	if t := p.Target(msg.ServerIdx); t != nil {
		t.Stats().ReportFailed()
		m.clearInFlight(msg.PortIdx, msg.ServerIdx)
	}
	p.RecordFailed(msg.Timestamp, anyTargetHealthy(p))
}

func anyTargetHealthy(p *port.InputPort) bool {
	for _, e := range p.Targets() {
		if e.Value.Stats().IsHealthy() {
			return true
		}
	}
	return false
}

// auditTick recomputes every port's aggregate health, decays stale target
// scores, and emits (at most one in-flight) HealthProbe per target.
func (m *Monitor) auditTick() {
	now := time.Now()
	for _, portNumber := range m.globals.Snapshot() {
		p := m.globals.Get(portNumber)
		if p == nil || p.IsDeactivated() {
			continue
		}

		entries := p.Targets()
		p.RecomputeHealthy(now, anyHealthyOf(entries))

		for _, e := range entries {
			if e.Value.Stats().StaleSince(now) {
				e.Value.Stats().DecayTowardNeutral()
			}
			m.maybeProbe(portNumber, uint16(e.Index), now)
			m.publishTargetScore(portNumber, e.Index, e.Value.RelativeHealthScore())
		}
		m.publishPortHealthy(portNumber, p.IsHealthy())
	}
}

func (m *Monitor) publishTargetScore(portNumber uint16, idx managedvec.Idx, score int32) {
	if m.collector == nil {
		return
	}
	m.collector.TargetHealthScore.
		WithLabelValues(strconv.Itoa(int(portNumber)), strconv.Itoa(int(idx))).
		Set(float64(score))
}

func (m *Monitor) publishPortHealthy(portNumber uint16, healthy bool) {
	if m.collector == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.collector.PortHealthy.WithLabelValues(strconv.Itoa(int(portNumber))).Set(v)
}

func anyHealthyOf(entries []managedvec.Entry[target.TargetServer]) bool {
	for _, e := range entries {
		if e.Value.Stats().IsHealthy() {
			return true
		}
	}
	return false
}

func (m *Monitor) maybeProbe(portNumber uint16, idx uint16, now time.Time) {
	key := probeKey{port: portNumber, idx: idx}

	m.mu.Lock()
	if _, inFlight := m.probeFlight[key]; inFlight {
		m.mu.Unlock()
		return
	}
	m.probeFlight[key] = struct{}{}
	m.mu.Unlock()

	msg := Msg{Kind: KindHealthProbe, PortIdx: portNumber, ServerIdx: uint8(idx), Timestamp: now}
	msg.Para16[0] = portNumber

	select {
	case m.probeCh <- msg:
	default:
		// Probe queue full: drop and clear in-flight so the next audit
		// tick retries, matching the non-blocking try_send contract for
		// audit-originated traffic.
		m.mu.Lock()
		delete(m.probeFlight, key)
		m.mu.Unlock()
	}
}

func (m *Monitor) clearInFlight(portNumber uint16, idx managedvec.Idx) {
	m.mu.Lock()
	delete(m.probeFlight, probeKey{port: portNumber, idx: uint16(idx)})
	m.mu.Unlock()
}
