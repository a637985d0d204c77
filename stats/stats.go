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

// Package stats tracks the rolling health and latency of one upstream
// target: success/failure counts, the last transition edge, and a bounded
// "relative health score" used to rank targets against each other.
package stats

import (
	"sync"
	"time"
)

const (
	scoreMin = -100
	scoreMax = 100

	scoreBonusSuccess = 5
	scorePenaltyFail  = 8

	// halfDecayInterval is how often, absent any fresh telemetry, the score
	// is pulled halfway back toward neutral by AuditTick (see netmon).
	halfDecayInterval = 10 * time.Second
)

// ServerStats is the rolling health record for one upstream. Every method
// takes the record's own lock, so concurrent readers are safe; in the
// daemon, mutation is serialized through NetworkMonitor.
type ServerStats struct {
	mu sync.RWMutex

	healthy        bool
	lastRefresh    time.Time
	lastTransition time.Time
	lastLatencyMs  int32
	score          int32
}

// New returns a ServerStats in the neutral, unknown-health state.
func New() *ServerStats {
	return &ServerStats{}
}

func (s *ServerStats) setHealthy(healthy bool, now time.Time) {
	if s.healthy != healthy {
		s.lastTransition = now
	}
	s.healthy = healthy
	s.lastRefresh = now
}

// ReportOK records a successful probe/request. last_transition is only
// touched on the false->true edge.
func (s *ServerStats) ReportOK() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.setHealthy(true, now)
	s.score += scoreBonusSuccess
	if s.score > scoreMax {
		s.score = scoreMax
	}
}

// ReportFailed records a failed probe/request. last_transition is only
// touched on the true->false edge.
func (s *ServerStats) ReportFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.setHealthy(false, now)
	s.score -= scorePenaltyFail
	if s.score < scoreMin {
		s.score = scoreMin
	}
}

// ReportLatency records a success with a measured latency, implying ReportOK.
func (s *ServerStats) ReportLatency(ms int32) {
	s.ReportOK()
	s.mu.Lock()
	s.lastLatencyMs = ms
	s.mu.Unlock()
}

func (s *ServerStats) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthy
}

// RelativeHealthScore returns the current score, bounded to [-100, 100].
func (s *ServerStats) RelativeHealthScore() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.score
}

func (s *ServerStats) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}

func (s *ServerStats) LastTransition() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTransition
}

func (s *ServerStats) LastLatencyMs() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastLatencyMs
}

// DecayTowardNeutral is invoked by AuditTick when no fresh telemetry arrived
// for this target since the last audit: it halves the distance between the
// score and neutral (0), so a target stops accruing a stale advantage or
// penalty once probing goes quiet.
func (s *ServerStats) DecayTowardNeutral() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score -= s.score / 2
}

// StaleSince reports whether lastRefresh is at least halfDecayInterval in
// the past, i.e. this target is due for a decay tick.
func (s *ServerStats) StaleSince(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRefresh.IsZero() {
		return false
	}
	return now.Sub(s.lastRefresh) >= halfDecayInterval
}
