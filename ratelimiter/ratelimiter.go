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

// Package ratelimiter implements a dual-window token bucket (per-second and
// per-minute), refilled lazily from elapsed wall-clock time rather than by a
// background ticker.
package ratelimiter

import (
	"sync"
	"time"

	"github.com/nabbar/wdproxy/errors"
)

func init() {
	errors.RegisterMessages(func(code errors.CodeError) string {
		switch code {
		case CodeConfigError:
			return "rate limiter: zero rate with non-zero capacity is invalid"
		case CodeRateLimitExceededSec:
			return "rate limit exceeded (per-second window)"
		case CodeRateLimitExceededMin:
			return "rate limit exceeded (per-minute window)"
		}
		return ""
	}, CodeConfigError, CodeRateLimitExceededSec, CodeRateLimitExceededMin)
}

const (
	CodeConfigError = errors.MinPkgRateLimiter + iota
	CodeRateLimitExceededSec
	CodeRateLimitExceededMin
)

// Window identifies which bucket rejected a try_acquire_token call.
type Window string

const (
	WindowSecond Window = "per-second"
	WindowMinute Window = "per-minute"
)

// ExceededError reports which window was empty when try-acquire failed.
type ExceededError struct {
	Window Window
}

func (e *ExceededError) Error() string {
	return "rate limit exceeded: " + string(e.Window) + " window"
}

type bucket struct {
	capacity   uint32
	tokens     float64
	rate       float64 // tokens per second
	lastRefill time.Time
}

// newBucket builds a bucket of the given capacity, refilling from a nominal
// rate measured per perSeconds wall-clock seconds (rate=rps,perSeconds=1 for
// the per-second window; rate=rpm,perSeconds=60 for the per-minute window).
// A capacity of 0 disables the window regardless of rate.
func newBucket(rate, capacity uint32, perSeconds float64) (bucket, error) {
	if rate == 0 && capacity != 0 {
		return bucket{}, CodeConfigError.Error(nil)
	}
	return bucket{capacity: capacity, rate: float64(rate) / perSeconds, lastRefill: time.Now()}, nil
}

func (b *bucket) refill(now time.Time) {
	if b.capacity == 0 {
		return
	}
	if b.lastRefill.IsZero() {
		b.lastRefill = now
		return
	}
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.rate
	if b.tokens > float64(b.capacity) {
		b.tokens = float64(b.capacity)
	}
	b.lastRefill = now
}

func (b *bucket) available(now time.Time) uint32 {
	if b.capacity == 0 {
		return ^uint32(0) // unlimited
	}
	b.refill(now)
	return uint32(b.tokens)
}

// RateLimiter holds one per-second and one per-minute token bucket. A
// capacity of 0 disables that window.
type RateLimiter struct {
	mu  sync.Mutex
	sec bucket
	min bucket
}

// New builds a RateLimiter whose per-second bucket has capacity rps
// (refilling at rps tokens/sec) and whose per-minute bucket has capacity rpm
// (refilling at rpm tokens/60s). Both buckets start empty: callers must
// wait one refill period before the first token appears. A capacity of 0
// disables that window. Returns CodeConfigError if a zero rate is paired
// with a non-zero capacity.
func New(rps, rpm uint32) (*RateLimiter, error) {
	sec, err := newBucket(rps, rps, 1)
	if err != nil {
		return nil, err
	}
	min, err := newBucket(rpm, rpm, 60)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{sec: sec, min: min}, nil
}

// TryAcquireToken attempts to take one token from both buckets atomically.
// Per-second exhaustion takes precedence in the reported error when both
// buckets are empty.
func (r *RateLimiter) TryAcquireToken() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	secAvail := r.sec.available(now)
	minAvail := r.min.available(now)

	if secAvail < 1 {
		return &ExceededError{Window: WindowSecond}
	}
	if minAvail < 1 {
		return &ExceededError{Window: WindowMinute}
	}

	if r.sec.capacity > 0 {
		r.sec.tokens--
	}
	if r.min.capacity > 0 {
		r.min.tokens--
	}
	return nil
}

// TokensAvailable returns min(tokens_sec, tokens_min) after a lazy refill. A
// disabled window (capacity 0) does not constrain the minimum.
func (r *RateLimiter) TokensAvailable() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	s := r.sec.available(now)
	m := r.min.available(now)
	if s < m {
		return s
	}
	return m
}
