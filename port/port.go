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

// Package port models InputPort (one listening endpoint and its target set)
// and Globals (the process-wide concurrent map of InputPorts). Mutation of
// an InputPort's counters and transitions is the exclusive business of
// NetworkMonitor; AdminController owns adding/removing ports and targets.
package port

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nabbar/wdproxy/managedvec"
	"github.com/nabbar/wdproxy/target"
)

// InputPort is one logical listening endpoint: a TCP port, its compact
// target registry, and the aggregate counters NetworkMonitor maintains.
// The zero value is not usable; build with New.
type InputPort struct {
	mu sync.RWMutex

	objID  uuid.UUID
	port   uint16
	target *managedvec.ManagedVec[target.TargetServer]

	deactivate         bool
	proxyServerRunning bool
	healthy            bool

	numOKReq     uint64
	numFailedReq uint64
	lastOKReq    time.Time
	lastFailReq  time.Time
	lastUp       time.Time
	lastDown     time.Time
}

// New allocates an InputPort for portNumber. The returned port starts with
// an empty target set, not running, and not deactivated.
func New(portNumber uint16) *InputPort {
	return &InputPort{
		objID:  uuid.New(),
		port:   portNumber,
		target: managedvec.New[target.TargetServer](),
	}
}

func (p *InputPort) ObjID() uuid.UUID { return p.objID }
func (p *InputPort) Port() uint16     { return p.port }

func (p *InputPort) IsDeactivated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.deactivate
}

// Deactivate is monotonic: once set it can never be cleared. A new InputPort
// must be constructed to reuse the port number.
func (p *InputPort) Deactivate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deactivate = true
}

func (p *InputPort) IsProxyServerRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.proxyServerRunning
}

func (p *InputPort) SetProxyServerRunning(running bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.proxyServerRunning = running
}

func (p *InputPort) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthy
}

func (p *InputPort) Counters() (numOK, numFailed uint64, lastOK, lastFail time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.numOKReq, p.numFailedReq, p.lastOKReq, p.lastFailReq
}

func (p *InputPort) Transitions() (lastUp, lastDown time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastUp, p.lastDown
}

// PushTarget adds a TargetServer to the port's ManagedVec, returning its
// index. Safe to call concurrently with request-path reads.
func (p *InputPort) PushTarget(t *target.TargetServer) managedvec.Idx {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target.Push(*t)
}

// RemoveTarget frees the slot at idx; in-flight requests already holding the
// *target.TargetServer pointer are unaffected because ManagedVec stores a
// pointer-stable element per push.
func (p *InputPort) RemoveTarget(idx managedvec.Idx) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target.Remove(idx)
}

func (p *InputPort) Target(idx managedvec.Idx) *target.TargetServer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.target.Get(idx)
}

// Targets returns a snapshot of the occupied target slots.
func (p *InputPort) Targets() []managedvec.Entry[target.TargetServer] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.target.Iter()
}

// RecordOK applies a successful request/probe to port-level counters and
// flips healthy true on the false->true edge. Exclusively called from
// NetworkMonitor.
func (p *InputPort) RecordOK(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.numOKReq++
	p.lastOKReq = now
	if !p.healthy {
		p.healthy = true
		p.lastUp = now
	}
}

// RecordFailed applies a failed request/probe to port-level counters.
// healthy only flips to false once no target remains healthy; callers pass
// anyTargetHealthy computed from the current target snapshot.
func (p *InputPort) RecordFailed(now time.Time, anyTargetHealthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.numFailedReq++
	p.lastFailReq = now
	if p.healthy && !anyTargetHealthy {
		p.healthy = false
		p.lastDown = now
	}
}

// RecomputeHealthy re-derives the aggregate healthy flag from the target
// set, for use by AuditTick. Returns whether the flag changed.
func (p *InputPort) RecomputeHealthy(now time.Time, anyTargetHealthy bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.healthy == anyTargetHealthy {
		return false
	}
	p.healthy = anyTargetHealthy
	if anyTargetHealthy {
		p.lastUp = now
	} else {
		p.lastDown = now
	}
	return true
}

// BestTarget returns the index and pointer of the target with the highest
// RelativeHealthScore, breaking ties by the lowest ManagedVec index. Returns
// (0, nil) if the port has no targets. It does not mutate.
func (p *InputPort) BestTarget() (managedvec.Idx, *target.TargetServer) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := p.target.Iter()
	if len(entries) == 0 {
		return 0, nil
	}

	best := entries[0]
	bestScore := best.Value.RelativeHealthScore()
	for _, e := range entries[1:] {
		if s := e.Value.RelativeHealthScore(); s > bestScore {
			best = e
			bestScore = s
		}
	}
	return best.Index, best.Value
}

// BestTargetExcluding is BestTarget restricted to targets whose index is not
// in excluded. ProxyServer uses this to fail over within one request without
// mutating any shared health score: the exclusion is request-local only.
func (p *InputPort) BestTargetExcluding(excluded map[managedvec.Idx]struct{}) (managedvec.Idx, *target.TargetServer) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var (
		best      managedvec.Entry[target.TargetServer]
		bestScore int32
		found     bool
	)
	for _, e := range p.target.Iter() {
		if _, skip := excluded[e.Index]; skip {
			continue
		}
		if s := e.Value.RelativeHealthScore(); !found || s > bestScore {
			best = e
			bestScore = s
			found = true
		}
	}
	if !found {
		return 0, nil
	}
	return best.Index, best.Value
}

// TargetCount reports how many targets are currently registered, for
// ProxyServer's "up to N-1 additional attempts" failover bound.
func (p *InputPort) TargetCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int(p.target.Len())
}
